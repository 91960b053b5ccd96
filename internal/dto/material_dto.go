package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// MaterialRequest is read from a multipart form. FileURL is used only when no file is attached.
type MaterialRequest struct {
	Title       string `form:"title" json:"title" validate:"required,min=1,max=255"`
	Description string `form:"description" json:"description" validate:"omitempty,max=5000"`
	FileURL     string `form:"file_url" json:"file_url" validate:"omitempty,url,max=1024"`
	ClassID     string `form:"class_id" json:"class_id" validate:"omitempty,uuid"`
	GroupID     string `form:"group_id" json:"group_id" validate:"omitempty,uuid"`
	SubjectID   string `form:"subject_id" json:"subject_id" validate:"omitempty,uuid"`
}

// MaterialListRequest filters the admin document list.
type MaterialListRequest struct {
	ClassID *uuid.UUID
	GroupID *uuid.UUID
}

// MaterialResponse serializes a material.
type MaterialResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	FileURL     string     `json:"file_url"`
	FileType    string     `json:"file_type"`
	ClassID     *uuid.UUID `json:"class_id"`
	GroupID     *uuid.UUID `json:"group_id"`
	SubjectID   *uuid.UUID `json:"subject_id"`
	UploadedBy  *uuid.UUID `json:"uploaded_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewMaterialResponse converts a material model into a DTO.
func NewMaterialResponse(material models.Material) MaterialResponse {
	return MaterialResponse{
		ID:          material.ID,
		Title:       material.Title,
		Description: material.Description,
		FileURL:     material.FileURL,
		FileType:    material.FileType,
		ClassID:     material.ClassID,
		GroupID:     material.GroupID,
		SubjectID:   material.SubjectID,
		UploadedBy:  material.UploadedBy,
		CreatedAt:   material.CreatedAt,
		UpdatedAt:   material.UpdatedAt,
	}
}
