package repositories

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/apperrors"
	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// storeErr classifies a database error: context deadline and connection
// failures become Unavailable, everything else Internal.
func storeErr(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.Unavailable("request timed out", err)
	}
	return apperrors.Unavailable(msg, err)
}

// Search applies the criteria conjunctively, counts the matches, then
// returns one page ordered by creation time.
func (r *GORMProductRepository) Search(ctx context.Context, c SearchCriteria) ([]models.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})

	if c.Keyword != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(c.Keyword)+"%")
	}
	if len(c.CategoryIDs) > 0 {
		q = q.Where("category_id IN ?", c.CategoryIDs)
	}
	if c.PriceMin != nil {
		q = q.Where("price >= ?", *c.PriceMin)
	}
	if c.PriceMax != nil {
		q = q.Where("price <= ?", *c.PriceMax)
	}
	if c.RatingFloor != nil {
		q = q.Where("rating >= ?", *c.RatingFloor)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, storeErr("failed to count products", err)
	}

	page := c.Page
	if page < 1 {
		page = 1
	}
	pageSize := c.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	var products []models.Product
	err := q.Order("created_at ASC, id ASC").
		Limit(pageSize).
		Offset(pageSize * (page - 1)).
		Find(&products).Error
	if err != nil {
		return nil, 0, storeErr("failed to search products", err)
	}
	return products, count, nil
}

// TopRated retrieves the highest rated products.
func (r *GORMProductRepository) TopRated(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Order("rating DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, storeErr("failed to get top rated products", err)
	}
	return products, nil
}

// Newest retrieves the most recently created products.
func (r *GORMProductRepository) Newest(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, storeErr("failed to get newest products", err)
	}
	return products, nil
}

// GetByID retrieves a single product with its reviews.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB {
			return db.Order("reviews.created_at ASC")
		}).
		First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product with ID %s not found", id)
		}
		return nil, storeErr("failed to get product", err)
	}
	return &product, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return storeErr("failed to create product", err)
	}
	return nil
}

// Update updates an existing product in the database.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	// Reviews and the derived aggregates are owned by AddReview; a field
	// update must not clobber them with a possibly stale read.
	res := r.db.WithContext(ctx).Omit("Reviews", "rating", "num_reviews").Save(product)
	if res.Error != nil {
		return storeErr("failed to update product", res.Error)
	}
	if res.RowsAffected == 0 {
		// GORM's Save does not return ErrRecordNotFound for an update that
		// matched nothing, so we check RowsAffected.
		return apperrors.NotFound("product with ID %s not found for update", product.ID)
	}
	return nil
}

// Delete deletes a product and its reviews by product ID.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return storeErr("failed to delete product", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("product with ID %s not found for deletion", id)
		}
		if err := tx.Delete(&models.Review{}, "product_id = ?", id).Error; err != nil {
			return storeErr("failed to delete product reviews", err)
		}
		return nil
	})
}

// AddReview inserts the review and recomputes the product's aggregates in
// one transaction. The duplicate check runs inside the transaction and the
// (product_id, user_id) unique index backs it up, so two submissions by the
// same user cannot both land. Callers serialize per product on top of this
// so concurrent submissions by different users cannot compute the mean
// from the same stale review list.
func (r *GORMProductRepository) AddReview(ctx context.Context, productID string, review *models.Review) (*models.Product, error) {
	var updated models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("product with ID %s not found", productID)
			}
			return storeErr("failed to get product", err)
		}

		var existing int64
		err := tx.Model(&models.Review{}).
			Where("product_id = ? AND user_id = ?", productID, review.UserID).
			Count(&existing).Error
		if err != nil {
			return storeErr("failed to check existing review", err)
		}
		if existing > 0 {
			return apperrors.Conflict("product already reviewed")
		}

		if review.ID == "" {
			review.ID = uuid.New().String()
		}
		review.ProductID = productID
		if err := tx.Create(review).Error; err != nil {
			return storeErr("failed to create review", err)
		}

		var reviews []models.Review
		if err := tx.Where("product_id = ?", productID).Order("created_at ASC, id ASC").Find(&reviews).Error; err != nil {
			return storeErr("failed to load reviews", err)
		}

		sum := 0
		for _, rv := range reviews {
			sum += rv.Rating
		}
		product.NumReviews = len(reviews)
		product.Rating = float64(sum) / float64(len(reviews))

		err = tx.Model(&models.Product{}).
			Where("id = ?", productID).
			Updates(map[string]interface{}{
				"num_reviews": product.NumReviews,
				"rating":      product.Rating,
			}).Error
		if err != nil {
			return storeErr("failed to update product aggregates", err)
		}

		product.Reviews = reviews
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
