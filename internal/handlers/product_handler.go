package handlers

import (
	"encoding/json"
	"log"
	"math"
	"mime/multipart"
	"strconv"
	"strings"

	"storefront/internal/apperrors"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// filterPageSize is the page size used by the filter endpoint; the plain
// listing uses repositories.DefaultPageSize.
const filterPageSize = 10

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	catalog *services.CatalogService
	reviews *services.ReviewService
	auth    *services.AuthService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(catalog *services.CatalogService, reviews *services.ReviewService, auth *services.AuthService) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		reviews: reviews,
		auth:    auth,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
// authRequired guards the review route; admin guards mutations.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, authRequired, admin fiber.Handler) {
	products := router.Group("/products")
	products.Get("/", h.HandleSearchProducts)
	products.Get("/top", h.HandleTopProducts)
	products.Get("/new", h.HandleNewProducts)
	products.Post("/filter", h.HandleFilterProducts)
	products.Get("/filtered-products", h.HandleFilterProducts)
	products.Post("/", authRequired, admin, h.HandleCreateProduct)
	products.Get("/:id", h.HandleGetProductByID)
	products.Put("/:id", authRequired, admin, h.HandleUpdateProduct)
	products.Delete("/:id", authRequired, admin, h.HandleDeleteProduct)
	products.Post("/:id/reviews", authRequired, h.HandleAddReview)
}

// HandleSearchProducts lists the catalog, optionally narrowed by a
// case-insensitive keyword, six products per page.
func (h *ProductHandler) HandleSearchProducts(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("pageNumber", "1"))

	result, err := h.catalog.Search(c.UserContext(), repositories.SearchCriteria{
		Keyword:  c.Query("keyword"),
		Page:     page,
		PageSize: repositories.DefaultPageSize,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// filterRequest is the body of POST /products/filter: a category id set
// and a two-element inclusive price bound. Either may be empty; a single
// price element leaves the upper bound open.
type filterRequest struct {
	Checked []string  `json:"checked"`
	Radio   []float64 `json:"radio"`
	Page    int       `json:"page"`
}

// HandleFilterProducts filters by category set and price range. POST takes
// a JSON body; GET takes the same arrays JSON-encoded in query strings.
func (h *ProductHandler) HandleFilterProducts(c *fiber.Ctx) error {
	var req filterRequest
	if c.Method() == fiber.MethodPost {
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return respondError(c, apperrors.Validation("invalid filter request body"))
			}
		}
	} else {
		if raw := c.Query("checked"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Checked); err != nil {
				return respondError(c, apperrors.Validation("invalid 'checked' query parameter"))
			}
		}
		if raw := c.Query("radio"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Radio); err != nil {
				return respondError(c, apperrors.Validation("invalid 'radio' query parameter"))
			}
		}
		req.Page, _ = strconv.Atoi(c.Query("page", "1"))
	}

	criteria := repositories.SearchCriteria{
		CategoryIDs: req.Checked,
		Page:        req.Page,
		PageSize:    filterPageSize,
	}
	if len(req.Radio) >= 1 {
		min := req.Radio[0]
		criteria.PriceMin = &min
	}
	if len(req.Radio) >= 2 {
		max := req.Radio[1]
		criteria.PriceMax = &max
	}

	result, err := h.catalog.Search(c.UserContext(), criteria)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleTopProducts returns the three highest rated products.
func (h *ProductHandler) HandleTopProducts(c *fiber.Ctx) error {
	products, err := h.catalog.TopRated(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// HandleNewProducts returns the five most recently added products.
func (h *ProductHandler) HandleNewProducts(c *fiber.Ctx) error {
	products, err := h.catalog.Newest(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product with its reviews.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.catalog.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// formFile returns the uploaded image, or nil when the field is absent so
// the service can report it together with the other missing fields.
func formFile(c *fiber.Ctx) *multipart.FileHeader {
	file, err := c.FormFile("image")
	if err != nil {
		return nil
	}
	return file
}

// HandleCreateProduct creates a product from a multipart request carrying
// the scalar fields and one image file.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	input := services.ProductInput{
		Name:        strings.TrimSpace(c.FormValue("name")),
		Description: strings.TrimSpace(c.FormValue("description")),
		CategoryID:  strings.TrimSpace(c.FormValue("category")),
		Brand:       strings.TrimSpace(c.FormValue("brand")),
	}
	if raw := c.FormValue("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return respondError(c, apperrors.Validation("price must be a number"))
		}
		input.Price = price
	}
	if raw := c.FormValue("countInStock"); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			return respondError(c, apperrors.Validation("countInStock must be an integer"))
		}
		input.CountInStock = count
	}

	product, err := h.catalog.CreateProduct(c.UserContext(), input, formFile(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct applies a partial update; only form fields present
// in the request change the product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var update services.ProductUpdate

	form, err := c.MultipartForm()
	if err != nil {
		return respondError(c, apperrors.Validation("a multipart form body is required"))
	}

	get := func(key string) *string {
		values, ok := form.Value[key]
		if !ok || len(values) == 0 {
			return nil
		}
		v := strings.TrimSpace(values[0])
		return &v
	}

	update.Name = get("name")
	update.Description = get("description")
	update.CategoryID = get("category")
	update.Brand = get("brand")
	if raw := get("price"); raw != nil {
		price, err := strconv.ParseFloat(*raw, 64)
		if err != nil {
			return respondError(c, apperrors.Validation("price must be a number"))
		}
		update.Price = &price
	}
	if raw := get("countInStock"); raw != nil {
		count, err := strconv.Atoi(*raw)
		if err != nil {
			return respondError(c, apperrors.Validation("countInStock must be an integer"))
		}
		update.CountInStock = &count
	}

	product, err := h.catalog.UpdateProduct(c.UserContext(), c.Params("id"), update, formFile(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct removes a product and its images.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.catalog.DeleteProduct(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Product deleted successfully",
	})
}

// reviewRequest is the body of POST /products/:id/reviews.
type reviewRequest struct {
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

// HandleAddReview appends a review by the authenticated user and returns
// the updated product.
func (h *ProductHandler) HandleAddReview(c *fiber.Ctx) error {
	var req reviewRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing review request body: %v", err)
		return respondError(c, apperrors.Validation("invalid review request body"))
	}
	if req.Rating != math.Trunc(req.Rating) {
		return respondError(c, apperrors.Validation("rating must be an integer between 1 and 5"))
	}

	userID, _ := c.Locals("user_id").(string)
	user, err := h.auth.GetUserByID(c.UserContext(), userID)
	if err != nil {
		return respondError(c, apperrors.Unauthorized("unknown user"))
	}

	product, err := h.reviews.AddReview(c.UserContext(), c.Params("id"), user, int(req.Rating), req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Review added successfully",
		"product": product,
	})
}
