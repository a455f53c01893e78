package services

import (
	"context"
	"strings"

	"storefront/internal/apperrors"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// CategoryService handles business logic related to categories.
type CategoryService struct {
	repo repositories.CategoryRepository
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(repo repositories.CategoryRepository) *CategoryService {
	return &CategoryService{
		repo: repo,
	}
}

// GetAllCategories retrieves all categories.
func (s *CategoryService) GetAllCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.GetAll(ctx)
}

// GetCategoryByID retrieves a single category by its ID.
func (s *CategoryService) GetCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateCategory creates a new category with a unique, non-empty name.
func (s *CategoryService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("category name is required")
	}
	if existing, err := s.repo.GetByName(ctx, name); err == nil && existing != nil {
		return nil, apperrors.Conflict("category '%s' already exists", name)
	}

	category := &models.Category{Name: name}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory renames an existing category, keeping names unique.
func (s *CategoryService) UpdateCategory(ctx context.Context, id, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("category name is required")
	}

	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing, err := s.repo.GetByName(ctx, name); err == nil && existing != nil && existing.ID != id {
		return nil, apperrors.Conflict("category '%s' already exists", name)
	}

	category.Name = name
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory deletes a category by its ID. Products referencing it
// keep their dangling category id and simply stop matching filters.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
