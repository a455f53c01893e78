package services_test

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"

	"storefront/internal/apperrors"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Search(ctx context.Context, c repositories.SearchCriteria) ([]models.Product, int64, error) {
	args := m.Called(ctx, c)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) TopRated(ctx context.Context, limit int) ([]models.Product, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) Newest(ctx context.Context, limit int) ([]models.Product, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) AddReview(ctx context.Context, productID string, review *models.Review) (*models.Product, error) {
	args := m.Called(ctx, productID, review)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

// MockCategoryRepository is a mock implementation of repositories.CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// fakeImageStore records saves and deletes instead of touching disk.
type fakeImageStore struct {
	saved   []string
	deleted []string
}

func (f *fakeImageStore) Save(file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", apperrors.Validation("please upload an image")
	}
	ref := fmt.Sprintf("/uploads/fake-%d.jpg", len(f.saved))
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fakeImageStore) Delete(ref string) error {
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeImageStore) FilePath(ref string) string {
	return ref
}

// fakePublisher records published routing keys.
type fakePublisher struct {
	keys []string
}

func (f *fakePublisher) Publish(routingKey string, event interface{}) error {
	f.keys = append(f.keys, routingKey)
	return nil
}

// makeFileHeader builds a real multipart.FileHeader for tests.
func makeFileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	assert.NoError(t, err)
	_, err = part.Write(content)
	assert.NoError(t, err)
	assert.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	assert.NoError(t, err)
	return form.File["image"][0]
}

func validInput() services.ProductInput {
	return services.ProductInput{
		Name:         "Test Product",
		Description:  "A product for testing",
		Price:        10,
		CategoryID:   "cat-1",
		Brand:        "Acme",
		CountInStock: 5,
	}
}

func TestCatalogService_Search_ComputesPages(t *testing.T) {
	mockRepo := new(MockProductRepository)
	images := &fakeImageStore{}
	service := services.NewCatalogService(mockRepo, new(MockCategoryRepository), images, nil)

	matched := []models.Product{{ID: "1"}, {ID: "2"}}
	wantCriteria := repositories.SearchCriteria{Keyword: "lap", Page: 1, PageSize: repositories.DefaultPageSize}
	mockRepo.On("Search", mock.Anything, wantCriteria).Return(matched, int64(13), nil).Once()

	// Page and PageSize below 1 are normalized before the repo sees them.
	result, err := service.Search(context.Background(), repositories.SearchCriteria{Keyword: "lap"})

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 3, result.Pages) // ceil(13/6)
	assert.Len(t, result.Products, 2)
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_Search_EmptyResultIsNotNil(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewCatalogService(mockRepo, new(MockCategoryRepository), &fakeImageStore{}, nil)

	mockRepo.On("Search", mock.Anything, mock.Anything).Return([]models.Product(nil), int64(0), nil).Once()

	result, err := service.Search(context.Background(), repositories.SearchCriteria{})
	assert.NoError(t, err)
	assert.NotNil(t, result.Products)
	assert.Empty(t, result.Products)
	assert.Equal(t, 0, result.Pages)
}

func TestCatalogService_CreateProduct_MissingFields(t *testing.T) {
	mockRepo := new(MockProductRepository)
	images := &fakeImageStore{}
	service := services.NewCatalogService(mockRepo, new(MockCategoryRepository), images, nil)

	// Everything missing, including the image.
	_, err := service.CreateProduct(context.Background(), services.ProductInput{}, nil)

	assert.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	for _, field := range []string{"name", "description", "price", "category_id", "brand", "image"} {
		assert.Contains(t, err.Error(), field)
	}
	// Nothing was persisted and no file was stored.
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, images.saved)
}

func TestCatalogService_CreateProduct_Success(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockCategories := new(MockCategoryRepository)
	images := &fakeImageStore{}
	events := &fakePublisher{}
	service := services.NewCatalogService(mockRepo, mockCategories, images, events)

	mockCategories.On("GetByID", mock.Anything, "cat-1").Return(&models.Category{ID: "cat-1", Name: "Gadgets"}, nil).Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Product")).Return(nil).Once()

	file := makeFileHeader(t, "photo.jpg", "image/jpeg", []byte("jpegdata"))
	product, err := service.CreateProduct(context.Background(), validInput(), file)

	assert.NoError(t, err)
	assert.Equal(t, "Test Product", product.Name)
	assert.Equal(t, "test-product", product.Slug)
	assert.Equal(t, images.saved[0], product.Image)
	assert.Zero(t, product.Rating)
	assert.Zero(t, product.NumReviews)
	assert.Empty(t, product.Reviews)
	assert.Equal(t, []string{"product.created"}, events.keys)
	mockRepo.AssertExpectations(t)
	mockCategories.AssertExpectations(t)
}

func TestCatalogService_CreateProduct_UnknownCategory(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockCategories := new(MockCategoryRepository)
	images := &fakeImageStore{}
	service := services.NewCatalogService(mockRepo, mockCategories, images, nil)

	mockCategories.On("GetByID", mock.Anything, "cat-1").Return(nil, apperrors.NotFound("category with ID cat-1 not found")).Once()

	file := makeFileHeader(t, "photo.jpg", "image/jpeg", []byte("jpegdata"))
	_, err := service.CreateProduct(context.Background(), validInput(), file)

	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	assert.Empty(t, images.saved)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCatalogService_CreateProduct_CompensatesImageOnPersistFailure(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockCategories := new(MockCategoryRepository)
	images := &fakeImageStore{}
	service := services.NewCatalogService(mockRepo, mockCategories, images, nil)

	mockCategories.On("GetByID", mock.Anything, "cat-1").Return(&models.Category{ID: "cat-1"}, nil).Once()
	storeDown := apperrors.Unavailable("failed to create product", fmt.Errorf("connection refused"))
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(storeDown).Once()

	file := makeFileHeader(t, "photo.jpg", "image/jpeg", []byte("jpegdata"))
	_, err := service.CreateProduct(context.Background(), validInput(), file)

	// The original persistence error is surfaced and the stored image is
	// deleted again, so no orphan file remains.
	assert.True(t, apperrors.Is(err, apperrors.KindUnavailable))
	assert.Len(t, images.saved, 1)
	assert.Equal(t, images.saved, images.deleted)
}

func TestCatalogService_UpdateProduct_PartialFields(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewCatalogService(mockRepo, new(MockCategoryRepository), &fakeImageStore{}, nil)

	existing := &models.Product{ID: "p1", Name: "Old Name", Slug: "old-name", Price: 10, Brand: "Acme"}
	mockRepo.On("GetByID", mock.Anything, "p1").Return(existing, nil).Once()
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Product) bool {
		return p.Price == 25 && p.Name == "Old Name" && p.Brand == "Acme"
	})).Return(nil).Once()

	price := 25.0
	updated, err := service.UpdateProduct(context.Background(), "p1", services.ProductUpdate{Price: &price}, nil)

	assert.NoError(t, err)
	assert.Equal(t, 25.0, updated.Price)
	assert.Equal(t, "Old Name", updated.Name)
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_UpdateProduct_ReplacesImageAfterSuccess(t *testing.T) {
	mockRepo := new(MockProductRepository)
	images := &fakeImageStore{}
	service := services.NewCatalogService(mockRepo, new(MockCategoryRepository), images, nil)

	existing := &models.Product{ID: "p1", Name: "Thing", Image: "/uploads/old.jpg"}
	mockRepo.On("GetByID", mock.Anything, "p1").Return(existing, nil).Once()
	mockRepo.On("Update", mock.Anything, mock.Anything).Return(nil).Once()

	file := makeFileHeader(t, "new.png", "image/png", []byte("pngdata"))
	updated, err := service.UpdateProduct(context.Background(), "p1", services.ProductUpdate{}, file)

	assert.NoError(t, err)
	assert.Equal(t, images.saved[0], updated.Image)
	// Old image discarded only after the document update succeeded.
	assert.Equal(t, []string{"/uploads/old.jpg"}, images.deleted)
}

func TestCatalogService_UpdateProduct_KeepsOldImageOnFailure(t *testing.T) {
	mockRepo := new(MockProductRepository)
	images := &fakeImageStore{}
	service := services.NewCatalogService(mockRepo, new(MockCategoryRepository), images, nil)

	existing := &models.Product{ID: "p1", Name: "Thing", Image: "/uploads/old.jpg"}
	mockRepo.On("GetByID", mock.Anything, "p1").Return(existing, nil).Once()
	mockRepo.On("Update", mock.Anything, mock.Anything).Return(apperrors.Unavailable("failed to update product", fmt.Errorf("down"))).Once()

	file := makeFileHeader(t, "new.png", "image/png", []byte("pngdata"))
	_, err := service.UpdateProduct(context.Background(), "p1", services.ProductUpdate{}, file)

	assert.Error(t, err)
	// The freshly stored image is rolled back; the old one stays.
	assert.Equal(t, images.saved, images.deleted)
	assert.NotContains(t, images.deleted, "/uploads/old.jpg")
}

func TestCatalogService_DeleteProduct_DiscardsImages(t *testing.T) {
	mockRepo := new(MockProductRepository)
	images := &fakeImageStore{}
	events := &fakePublisher{}
	service := services.NewCatalogService(mockRepo, new(MockCategoryRepository), images, events)

	existing := &models.Product{ID: "p1", Image: "/uploads/a.jpg", Images: []string{"/uploads/b.jpg"}}
	mockRepo.On("GetByID", mock.Anything, "p1").Return(existing, nil).Once()
	mockRepo.On("Delete", mock.Anything, "p1").Return(nil).Once()

	err := service.DeleteProduct(context.Background(), "p1")

	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"/uploads/a.jpg", "/uploads/b.jpg"}, images.deleted)
	assert.Equal(t, []string{"product.deleted"}, events.keys)
}

func TestCatalogService_DeleteProduct_NotFound(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewCatalogService(mockRepo, new(MockCategoryRepository), &fakeImageStore{}, nil)

	mockRepo.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NotFound("product with ID missing not found")).Once()

	err := service.DeleteProduct(context.Background(), "missing")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
