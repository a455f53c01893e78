package models

import (
	"regexp"
	"strings"

	"gorm.io/gorm"
)

// Product represents a product in the catalog.
//
// Rating and NumReviews are derived from Reviews and are recomputed inside
// the same transaction that appends a review; they must never be written
// directly by callers.
type Product struct {
	ID           string   `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name         string   `json:"name" validate:"required,min=1,max=100"`
	Slug         string   `json:"slug" gorm:"index"`
	Description  string   `json:"description" validate:"required,max=2000"`
	Price        float64  `json:"price" validate:"required,gt=0"`
	CategoryID   string   `json:"category_id" gorm:"type:varchar(36);index" validate:"required"`
	Brand        string   `json:"brand" validate:"required"`
	CountInStock int      `json:"count_in_stock" validate:"gte=0"`
	Image        string   `json:"image"`
	Images       []string `json:"images,omitempty" gorm:"serializer:json"`
	Rating       float64  `json:"rating"`
	NumReviews   int      `json:"num_reviews"`
	Reviews      []Review `json:"reviews" gorm:"foreignKey:ProductID"`
	gorm.Model   // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// Review is a single user review, owned by its parent product.
// The (product_id, user_id) unique index enforces one review per user per
// product at the store level; the review service checks it first to return
// a clean conflict error.
type Review struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID  string `json:"product_id" gorm:"type:varchar(36);uniqueIndex:idx_product_reviewer"`
	UserID     string `json:"user_id" gorm:"type:varchar(36);uniqueIndex:idx_product_reviewer"`
	Name       string `json:"name"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Comment    string `json:"comment"`
	gorm.Model // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a product name: lowercase, runs of
// non-alphanumerics collapsed to a single '-', no leading or trailing '-'.
func Slugify(name string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
