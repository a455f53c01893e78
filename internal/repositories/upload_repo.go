package repositories

import (
	"context"

	"storefront/internal/models"
)

// UploadRepository defines the interface for upload record data access.
type UploadRepository interface {
	GetAll(ctx context.Context) ([]models.Upload, error)
	GetByID(ctx context.Context, id string) (*models.Upload, error)
	Create(ctx context.Context, upload *models.Upload) error
	Delete(ctx context.Context, id string) error
}
