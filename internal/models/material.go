package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Material is a document distributed to students, either an uploaded file or an external link.
// FileName is set only for files stored on local disk.
type Material struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	FileURL     string     `gorm:"size:1024;not null" json:"file_url"`
	FileType    string     `gorm:"size:128" json:"file_type"`
	FileName    string     `gorm:"size:255" json:"-"`
	ClassID     *uuid.UUID `gorm:"type:uuid;index" json:"class_id"`
	GroupID     *uuid.UUID `gorm:"type:uuid;index" json:"group_id"`
	SubjectID   *uuid.UUID `gorm:"type:uuid;index" json:"subject_id"`
	UploadedBy  *uuid.UUID `gorm:"type:uuid" json:"uploaded_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (m *Material) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// IsStored reports whether the material owns a file on local storage.
func (m Material) IsStored() bool {
	return m.FileName != ""
}
