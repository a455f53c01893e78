package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"

	"storefront/internal/apperrors"
	"storefront/internal/models"

	"github.com/google/uuid"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
type MockProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
	}
}

func (r *MockProductRepository) all() []models.Product {
	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		productList = append(productList, p)
	}
	// Insertion order approximated by creation time for stable pagination.
	sort.Slice(productList, func(i, j int) bool {
		if productList[i].CreatedAt.Equal(productList[j].CreatedAt) {
			return productList[i].ID < productList[j].ID
		}
		return productList[i].CreatedAt.Before(productList[j].CreatedAt)
	})
	return productList
}

func matches(p models.Product, c SearchCriteria) bool {
	if c.Keyword != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(c.Keyword)) {
		return false
	}
	if len(c.CategoryIDs) > 0 {
		found := false
		for _, id := range c.CategoryIDs {
			if p.CategoryID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.PriceMin != nil && p.Price < *c.PriceMin {
		return false
	}
	if c.PriceMax != nil && p.Price > *c.PriceMax {
		return false
	}
	if c.RatingFloor != nil && p.Rating < *c.RatingFloor {
		return false
	}
	return true
}

// Search filters and paginates the in-memory catalog.
func (r *MockProductRepository) Search(_ context.Context, c SearchCriteria) ([]models.Product, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.Product
	for _, p := range r.all() {
		if matches(p, c) {
			matched = append(matched, p)
		}
	}

	page := c.Page
	if page < 1 {
		page = 1
	}
	pageSize := c.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	start := pageSize * (page - 1)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], int64(len(matched)), nil
}

// TopRated returns the highest rated products.
func (r *MockProductRepository) TopRated(_ context.Context, limit int) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := r.all()
	sort.SliceStable(productList, func(i, j int) bool {
		return productList[i].Rating > productList[j].Rating
	})
	if limit < len(productList) {
		productList = productList[:limit]
	}
	return productList, nil
}

// Newest returns the most recently created products.
func (r *MockProductRepository) Newest(_ context.Context, limit int) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := r.all()
	sort.SliceStable(productList, func(i, j int) bool {
		return productList[i].CreatedAt.After(productList[j].CreatedAt)
	})
	if limit < len(productList) {
		productList = productList[:limit]
	}
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, apperrors.NotFound("product with ID %s not found", id)
	}
	return &product, nil
}

// Create adds a new product.
func (r *MockProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	r.products[product.ID] = *product
	return nil
}

// Update modifies an existing product.
func (r *MockProductRepository) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.products[product.ID]
	if !ok {
		return apperrors.NotFound("product with ID %s not found for update", product.ID)
	}
	r.products[product.ID] = *product
	return nil
}

// Delete removes a product by its ID.
func (r *MockProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.products[id]
	if !ok {
		return apperrors.NotFound("product with ID %s not found for deletion", id)
	}
	delete(r.products, id)
	return nil
}

// AddReview appends a review and recomputes the aggregates under the
// repository lock.
func (r *MockProductRepository) AddReview(_ context.Context, productID string, review *models.Review) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok {
		return nil, apperrors.NotFound("product with ID %s not found", productID)
	}
	for _, existing := range product.Reviews {
		if existing.UserID == review.UserID {
			return nil, apperrors.Conflict("product already reviewed")
		}
	}

	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	review.ProductID = productID
	product.Reviews = append(product.Reviews, *review)

	sum := 0
	for _, rv := range product.Reviews {
		sum += rv.Rating
	}
	product.NumReviews = len(product.Reviews)
	product.Rating = float64(sum) / float64(len(product.Reviews))

	r.products[productID] = product
	return &product, nil
}
