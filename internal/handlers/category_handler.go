package handlers

import (
	"log"

	"storefront/internal/apperrors"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CategoryHandler handles HTTP requests for categories.
type CategoryHandler struct {
	service *services.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(service *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		service: service,
	}
}

// RegisterRoutes registers the category routes with the Fiber app.
// Reads are public (the storefront filter sidebar needs them); mutations
// are admin only.
func (h *CategoryHandler) RegisterRoutes(router fiber.Router, authRequired, admin fiber.Handler) {
	categories := router.Group("/categories")
	categories.Get("/", h.HandleGetCategories)
	categories.Get("/:id", h.HandleGetCategoryByID)
	categories.Post("/", authRequired, admin, h.HandleCreateCategory)
	categories.Put("/:id", authRequired, admin, h.HandleUpdateCategory)
	categories.Delete("/:id", authRequired, admin, h.HandleDeleteCategory)
}

// HandleGetCategories retrieves all categories.
func (h *CategoryHandler) HandleGetCategories(c *fiber.Ctx) error {
	categories, err := h.service.GetAllCategories(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(categories)
}

// HandleGetCategoryByID retrieves a single category.
func (h *CategoryHandler) HandleGetCategoryByID(c *fiber.Ctx) error {
	category, err := h.service.GetCategoryByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(category)
}

// categoryRequest is the body of category create and update requests.
type categoryRequest struct {
	Name string `json:"name"`
}

// HandleCreateCategory creates a category with a unique name.
func (h *CategoryHandler) HandleCreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing category request body: %v", err)
		return respondError(c, apperrors.Validation("invalid request body"))
	}

	category, err := h.service.CreateCategory(c.UserContext(), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// HandleUpdateCategory renames a category.
func (h *CategoryHandler) HandleUpdateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing category request body: %v", err)
		return respondError(c, apperrors.Validation("invalid request body"))
	}

	category, err := h.service.UpdateCategory(c.UserContext(), c.Params("id"), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(category)
}

// HandleDeleteCategory removes a category.
func (h *CategoryHandler) HandleDeleteCategory(c *fiber.Ctx) error {
	if err := h.service.DeleteCategory(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Category deleted successfully",
	})
}
