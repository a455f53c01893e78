package services

import (
	"context"
	"log"
	"mime/multipart"
	"path"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/storage"
)

// UploadService handles the generic upload endpoint: files stored through
// it get an Upload record with a lifecycle independent from product
// images.
type UploadService struct {
	repo   repositories.UploadRepository
	images storage.ImageStore
}

// NewUploadService creates a new UploadService.
func NewUploadService(repo repositories.UploadRepository, images storage.ImageStore) *UploadService {
	return &UploadService{
		repo:   repo,
		images: images,
	}
}

// Ingest validates and stores the file, then records it. If the record
// cannot be persisted the stored file is removed again.
func (s *UploadService) Ingest(ctx context.Context, file *multipart.FileHeader, userID string) (*models.Upload, error) {
	ref, err := s.images.Save(file)
	if err != nil {
		return nil, err
	}

	upload := &models.Upload{
		Filename:   path.Base(ref),
		Path:       ref,
		MimeType:   file.Header.Get("Content-Type"),
		Size:       file.Size,
		UploadedBy: userID,
	}
	if err := s.repo.Create(ctx, upload); err != nil {
		if cleanupErr := s.images.Delete(ref); cleanupErr != nil {
			log.Printf("Failed to clean up file %s after record failure: %v", ref, cleanupErr)
		}
		return nil, err
	}
	return upload, nil
}

// ListUploads retrieves all upload records, newest first.
func (s *UploadService) ListUploads(ctx context.Context) ([]models.Upload, error) {
	return s.repo.GetAll(ctx)
}

// DeleteUpload removes both the backing file and the record.
func (s *UploadService) DeleteUpload(ctx context.Context, id string) error {
	upload, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.images.Delete(upload.Path); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
