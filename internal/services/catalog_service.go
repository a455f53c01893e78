package services

import (
	"context"
	"log"
	"math"
	"mime/multipart"
	"strings"

	"storefront/internal/apperrors"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/storage"
)

const (
	topRatedLimit = 3
	newestLimit   = 5
)

// EventPublisher publishes catalog events. *rabbitmq.Client satisfies it;
// a nil publisher disables publishing.
type EventPublisher interface {
	Publish(routingKey string, event interface{}) error
}

// Routing keys mirrored here so services do not import the broker package.
const (
	eventProductCreated = "product.created"
	eventProductUpdated = "product.updated"
	eventProductDeleted = "product.deleted"
)

// ProductInput carries the scalar fields of a product create request.
type ProductInput struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	CategoryID   string  `json:"category_id"`
	Brand        string  `json:"brand"`
	CountInStock int     `json:"count_in_stock"`
}

// ProductUpdate carries the optional fields of a product update request.
// Nil fields are left unchanged.
type ProductUpdate struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price"`
	CategoryID   *string  `json:"category_id"`
	Brand        *string  `json:"brand"`
	CountInStock *int     `json:"count_in_stock"`
}

// SearchResult is one page of catalog search results.
type SearchResult struct {
	Products []models.Product `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
}

// CatalogService handles catalog queries and product mutations.
type CatalogService struct {
	productRepo  repositories.ProductRepository
	categoryRepo repositories.CategoryRepository
	images       storage.ImageStore
	events       EventPublisher
}

// NewCatalogService creates a new CatalogService. events may be nil.
func NewCatalogService(productRepo repositories.ProductRepository, categoryRepo repositories.CategoryRepository, images storage.ImageStore, events EventPublisher) *CatalogService {
	return &CatalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		images:       images,
		events:       events,
	}
}

// Search returns one page of products matching the criteria and the total
// page count computed from the match count before pagination.
func (s *CatalogService) Search(ctx context.Context, criteria repositories.SearchCriteria) (*SearchResult, error) {
	if criteria.Page < 1 {
		criteria.Page = 1
	}
	if criteria.PageSize < 1 {
		criteria.PageSize = repositories.DefaultPageSize
	}

	products, count, err := s.productRepo.Search(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return &SearchResult{
		Products: products,
		Page:     criteria.Page,
		Pages:    int(math.Ceil(float64(count) / float64(criteria.PageSize))),
	}, nil
}

// TopRated retrieves the three highest rated products.
func (s *CatalogService) TopRated(ctx context.Context) ([]models.Product, error) {
	return s.productRepo.TopRated(ctx, topRatedLimit)
}

// Newest retrieves the five most recently added products.
func (s *CatalogService) Newest(ctx context.Context) ([]models.Product, error) {
	return s.productRepo.Newest(ctx, newestLimit)
}

// GetProductByID retrieves a single product with its reviews.
func (s *CatalogService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

// validateInput collects every missing or malformed field so the caller
// sees the full list in one response.
func validateInput(input ProductInput, image *multipart.FileHeader) error {
	var missing []string
	if strings.TrimSpace(input.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(input.Description) == "" {
		missing = append(missing, "description")
	}
	if input.Price <= 0 {
		missing = append(missing, "price")
	}
	if strings.TrimSpace(input.CategoryID) == "" {
		missing = append(missing, "category_id")
	}
	if strings.TrimSpace(input.Brand) == "" {
		missing = append(missing, "brand")
	}
	if input.CountInStock < 0 {
		missing = append(missing, "count_in_stock")
	}
	if image == nil {
		missing = append(missing, "image")
	}
	if len(missing) > 0 {
		return apperrors.Validation("missing or invalid fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// CreateProduct validates the input, stores the product image and persists
// the product. Image ingestion and persistence are not atomic: when
// persistence fails the stored image is deleted again so no orphan file
// remains. A cleanup failure is logged but never masks the persistence
// error.
func (s *CatalogService) CreateProduct(ctx context.Context, input ProductInput, image *multipart.FileHeader) (*models.Product, error) {
	if err := validateInput(input, image); err != nil {
		return nil, err
	}
	if _, err := s.categoryRepo.GetByID(ctx, input.CategoryID); err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.Validation("unknown category %s", input.CategoryID)
		}
		return nil, err
	}

	imageRef, err := s.images.Save(image)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:         input.Name,
		Slug:         models.Slugify(input.Name),
		Description:  input.Description,
		Price:        input.Price,
		CategoryID:   input.CategoryID,
		Brand:        input.Brand,
		CountInStock: input.CountInStock,
		Image:        imageRef,
		Rating:       0,
		NumReviews:   0,
		Reviews:      []models.Review{},
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		// Compensating action: the image is already on disk but the
		// product never made it to the store.
		if cleanupErr := s.images.Delete(imageRef); cleanupErr != nil {
			log.Printf("Failed to clean up image %s after create failure: %v", imageRef, cleanupErr)
		}
		return nil, err
	}

	s.publish(eventProductCreated, map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
		"slug":       product.Slug,
	})
	return product, nil
}

// UpdateProduct applies a partial update. When a new image is supplied it
// is stored first and the previous image is deleted only after the
// document update succeeds; if the update fails the new image is removed.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, update ProductUpdate, image *multipart.FileHeader) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return nil, apperrors.Validation("name must not be empty")
		}
		product.Name = *update.Name
		product.Slug = models.Slugify(*update.Name)
	}
	if update.Description != nil {
		product.Description = *update.Description
	}
	if update.Price != nil {
		if *update.Price <= 0 {
			return nil, apperrors.Validation("price must be greater than zero")
		}
		product.Price = *update.Price
	}
	if update.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *update.CategoryID); err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				return nil, apperrors.Validation("unknown category %s", *update.CategoryID)
			}
			return nil, err
		}
		product.CategoryID = *update.CategoryID
	}
	if update.Brand != nil {
		product.Brand = *update.Brand
	}
	if update.CountInStock != nil {
		if *update.CountInStock < 0 {
			return nil, apperrors.Validation("count_in_stock must not be negative")
		}
		product.CountInStock = *update.CountInStock
	}

	oldImage := ""
	if image != nil {
		newRef, err := s.images.Save(image)
		if err != nil {
			return nil, err
		}
		oldImage = product.Image
		product.Image = newRef
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		if image != nil {
			if cleanupErr := s.images.Delete(product.Image); cleanupErr != nil {
				log.Printf("Failed to clean up image %s after update failure: %v", product.Image, cleanupErr)
			}
		}
		return nil, err
	}

	// Old image is discarded only once the document update succeeded.
	if oldImage != "" && oldImage != product.Image {
		if err := s.images.Delete(oldImage); err != nil {
			log.Printf("Failed to delete replaced image %s: %v", oldImage, err)
		}
	}

	s.publish(eventProductUpdated, map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return product, nil
}

// DeleteProduct removes the product document and discards its image
// references.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	refs := append([]string{product.Image}, product.Images...)
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := s.images.Delete(ref); err != nil {
			log.Printf("Failed to delete image %s of product %s: %v", ref, id, err)
		}
	}

	s.publish(eventProductDeleted, map[string]interface{}{
		"product_id": id,
	})
	return nil
}

// publish sends a catalog event, best effort. Failures are logged and
// never surfaced to the caller.
func (s *CatalogService) publish(routingKey string, event map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(routingKey, event); err != nil {
		log.Printf("Warning: Failed to publish %s event: %v", routingKey, err)
	}
}
