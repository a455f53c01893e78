package handlers

import (
	"storefront/internal/apperrors"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UploadHandler handles the generic upload endpoint.
type UploadHandler struct {
	service *services.UploadService
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(service *services.UploadService) *UploadHandler {
	return &UploadHandler{
		service: service,
	}
}

// RegisterRoutes registers the upload routes with the Fiber app. All of
// them are admin only.
func (h *UploadHandler) RegisterRoutes(router fiber.Router, authRequired, admin fiber.Handler) {
	uploads := router.Group("/upload", authRequired, admin)
	uploads.Post("/", h.HandleUpload)
	uploads.Get("/", h.HandleListUploads)
	uploads.Delete("/:id", h.HandleDeleteUpload)
}

// HandleUpload stores an uploaded image and records it.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return respondError(c, apperrors.Validation("please upload a file"))
	}

	userID, _ := c.Locals("user_id").(string)
	upload, err := h.service.Ingest(c.UserContext(), file, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "File uploaded successfully",
		"upload":  upload,
	})
}

// HandleListUploads lists all upload records, newest first.
func (h *UploadHandler) HandleListUploads(c *fiber.Ctx) error {
	uploads, err := h.service.ListUploads(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(uploads)
}

// HandleDeleteUpload removes an upload record and its backing file.
func (h *UploadHandler) HandleDeleteUpload(c *fiber.Ctx) error {
	if err := h.service.DeleteUpload(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "File deleted successfully",
	})
}
