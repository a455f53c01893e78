package models

import "gorm.io/gorm"

// Upload is a record of a file stored through the generic upload endpoint.
// Its lifecycle is independent from product images: deleting an Upload
// removes both the record and the backing file.
type Upload struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Filename   string `json:"filename"`
	Path       string `json:"path"`
	MimeType   string `json:"mimetype"`
	Size       int64  `json:"size"`
	UploadedBy string `json:"uploaded_by" gorm:"type:varchar(36);index"`
	gorm.Model        // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
