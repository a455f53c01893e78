package services

import (
	"context"
	"log"
	"sync"

	"storefront/internal/apperrors"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

const eventReviewAdded = "review.added"

// productLocks hands out one mutex per product ID so review submissions
// for the same product are serialized within this process.
type productLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *productLocks) get(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	return lock
}

// ReviewService handles review submission and rating aggregation.
type ReviewService struct {
	productRepo repositories.ProductRepository
	events      EventPublisher
	locks       *productLocks
}

// NewReviewService creates a new ReviewService. events may be nil.
func NewReviewService(productRepo repositories.ProductRepository, events EventPublisher) *ReviewService {
	return &ReviewService{
		productRepo: productRepo,
		events:      events,
		locks:       newProductLocks(),
	}
}

// AddReview appends a review by the given user to the product and returns
// the full updated product so the caller can refresh derived fields in one
// round trip.
//
// Two concurrent submissions on the same product must not compute the
// aggregates from the same stale review list, so the whole
// read-insert-recompute runs under a per-product lock on top of the
// repository's transaction. The (product_id, user_id) unique index is the
// last line of defense against a duplicate slipping through.
func (s *ReviewService) AddReview(ctx context.Context, productID string, author *models.User, rating int, comment string) (*models.Product, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.Validation("rating must be an integer between 1 and 5")
	}
	if author == nil || author.ID == "" {
		return nil, apperrors.Unauthorized("a signed-in user is required to review")
	}

	lock := s.locks.get(productID)
	lock.Lock()
	defer lock.Unlock()

	review := &models.Review{
		UserID:  author.ID,
		Name:    author.DisplayName(),
		Rating:  rating,
		Comment: comment,
	}

	product, err := s.productRepo.AddReview(ctx, productID, review)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		event := map[string]interface{}{
			"product_id":  product.ID,
			"user_id":     author.ID,
			"rating":      rating,
			"num_reviews": product.NumReviews,
			"avg_rating":  product.Rating,
		}
		if err := s.events.Publish(eventReviewAdded, event); err != nil {
			log.Printf("Warning: Failed to publish review.added event for product %s: %v", product.ID, err)
		}
	}

	return product, nil
}
