package repositories

import (
	"context"
	"errors"

	"storefront/internal/apperrors"
	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUploadRepository is a GORM implementation of UploadRepository.
type GORMUploadRepository struct {
	db *gorm.DB
}

// NewGORMUploadRepository creates a new instance of GORMUploadRepository.
func NewGORMUploadRepository(db *gorm.DB) *GORMUploadRepository {
	return &GORMUploadRepository{
		db: db,
	}
}

// GetAll retrieves all upload records, newest first.
func (r *GORMUploadRepository) GetAll(ctx context.Context) ([]models.Upload, error) {
	var uploads []models.Upload
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&uploads).Error; err != nil {
		return nil, storeErr("failed to get uploads", err)
	}
	return uploads, nil
}

// GetByID retrieves a single upload record by its ID.
func (r *GORMUploadRepository) GetByID(ctx context.Context, id string) (*models.Upload, error) {
	var upload models.Upload
	if err := r.db.WithContext(ctx).First(&upload, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("upload with ID %s not found", id)
		}
		return nil, storeErr("failed to get upload", err)
	}
	return &upload, nil
}

// Create creates a new upload record in the database.
func (r *GORMUploadRepository) Create(ctx context.Context, upload *models.Upload) error {
	if upload.ID == "" {
		upload.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(upload).Error; err != nil {
		return storeErr("failed to create upload record", err)
	}
	return nil
}

// Delete removes an upload record by its ID.
func (r *GORMUploadRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Upload{}, "id = ?", id)
	if res.Error != nil {
		return storeErr("failed to delete upload record", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("upload with ID %s not found for deletion", id)
	}
	return nil
}
