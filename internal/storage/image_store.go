// Package storage provides the disk-backed image store used by product
// mutations and the generic upload endpoint.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"storefront/internal/apperrors"

	"github.com/google/uuid"
)

// MaxImageSize is the largest accepted upload, 5 MiB.
const MaxImageSize = 5 * 1024 * 1024

// allowedImageTypes maps accepted MIME types to their canonical extension.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// ImageStore stores uploaded image files and returns path references that
// can be persisted on products and upload records.
type ImageStore interface {
	// Save validates and stores the uploaded file, returning a reference
	// like "/uploads/<name>".
	Save(file *multipart.FileHeader) (string, error)
	// Delete removes the file behind a reference returned by Save.
	// A reference whose file is already gone is not an error.
	Delete(ref string) error
	// FilePath maps a reference to the path of the file on disk.
	FilePath(ref string) string
}

// DiskImageStore is an ImageStore writing to a local directory served
// under /uploads.
type DiskImageStore struct {
	dir string
}

// NewDiskImageStore creates the directory if needed and returns a store.
func NewDiskImageStore(dir string) (*DiskImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &DiskImageStore{dir: dir}, nil
}

// Dir returns the backing directory, for static file serving.
func (s *DiskImageStore) Dir() string {
	return s.dir
}

// Save validates MIME type, extension and size, then writes the file under
// a generated unique name.
func (s *DiskImageStore) Save(file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", apperrors.Validation("please upload an image")
	}
	if file.Size > MaxImageSize {
		return "", apperrors.Validation("image exceeds the maximum size of 5 MiB")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return "", apperrors.Validation("invalid file type, only JPEG, PNG, JPG and WEBP are allowed")
	}
	if mimeType := file.Header.Get("Content-Type"); mimeType != "" {
		if _, ok := allowedImageTypes[strings.ToLower(mimeType)]; !ok {
			return "", apperrors.Validation("invalid file type, only JPEG, PNG, JPG and WEBP are allowed")
		}
	}

	src, err := file.Open()
	if err != nil {
		return "", apperrors.Internal("failed to open uploaded file", err)
	}
	defer src.Close()

	filename := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(s.dir, filename))
	if err != nil {
		return "", apperrors.Internal("failed to store uploaded file", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", apperrors.Internal("failed to store uploaded file", err)
	}

	return "/uploads/" + filename, nil
}

// Delete removes the backing file for a reference.
func (s *DiskImageStore) Delete(ref string) error {
	if ref == "" {
		return nil
	}
	err := os.Remove(s.FilePath(ref))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image %s: %w", ref, err)
	}
	return nil
}

// FilePath maps "/uploads/<name>" to the on-disk path. The reference is
// reduced to its base name so a crafted reference cannot escape the
// upload directory.
func (s *DiskImageStore) FilePath(ref string) string {
	return filepath.Join(s.dir, path.Base(ref))
}
