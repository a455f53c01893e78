package repositories

import (
	"context"

	"storefront/internal/models"
)

// DefaultPageSize is the number of products per search page.
const DefaultPageSize = 6

// SearchCriteria describes a catalog search. All supplied filters are
// applied conjunctively.
//
// A nil price bound is unbounded on that side. If both bounds are supplied
// and PriceMin > PriceMax the range matches nothing and the search returns
// an empty result, not an error.
type SearchCriteria struct {
	Keyword     string   // case-insensitive substring match on name
	CategoryIDs []string // match if the product's category is in the set
	PriceMin    *float64 // inclusive
	PriceMax    *float64 // inclusive
	RatingFloor *float64 // minimum rating
	Page        int      // 1-based, values < 1 are treated as 1
	PageSize    int      // values < 1 fall back to DefaultPageSize
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	// Search returns one page of matching products and the total match
	// count before pagination.
	Search(ctx context.Context, criteria SearchCriteria) ([]models.Product, int64, error)
	TopRated(ctx context.Context, limit int) ([]models.Product, error)
	Newest(ctx context.Context, limit int) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	// AddReview appends a review and recomputes the product's rating and
	// review count in a single transaction, returning the updated product
	// with its full review list.
	AddReview(ctx context.Context, productID string, review *models.Review) (*models.Product, error)
}
