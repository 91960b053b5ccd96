package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// ClassRequest is used for both creating and updating a class.
type ClassRequest struct {
	Name      string     `json:"name" validate:"required,min=1,max=255"`
	Fee       int64      `json:"fee" validate:"gte=0"`
	SubjectID *uuid.UUID `json:"subject_id"`
	StartDate string     `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string     `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Schedule  string     `json:"schedule" validate:"omitempty,max=512"`
}

// GroupRequest creates a group inside a class.
type GroupRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

// EnrollStudentRequest adds an existing student to a class.
type EnrollStudentRequest struct {
	StudentID uuid.UUID `json:"student_id" validate:"required"`
}

// GroupResponse serializes a group with its member count.
type GroupResponse struct {
	ID           uuid.UUID `json:"id"`
	ClassID      uuid.UUID `json:"class_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	StudentCount int64     `json:"student_count"`
}

// NewGroupResponse converts a group model into a DTO.
func NewGroupResponse(group models.Group, studentCount int64) GroupResponse {
	return GroupResponse{
		ID:           group.ID,
		ClassID:      group.ClassID,
		Name:         group.Name,
		Description:  group.Description,
		StudentCount: studentCount,
	}
}

// ClassResponse serializes a class for admin and public listings.
type ClassResponse struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Fee          int64           `json:"fee"`
	SubjectID    *uuid.UUID      `json:"subject_id"`
	SubjectName  string          `json:"subject_name,omitempty"`
	StartDate    *string         `json:"start_date"`
	EndDate      *string         `json:"end_date"`
	Schedule     string          `json:"schedule"`
	StudentCount int64           `json:"student_count"`
	GroupCount   int             `json:"group_count"`
	Groups       []GroupResponse `json:"groups"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewClassResponse converts a class model into a DTO without aggregates.
func NewClassResponse(class models.Class) ClassResponse {
	return ClassResponse{
		ID:        class.ID,
		Name:      class.Name,
		Fee:       class.Fee,
		SubjectID: class.SubjectID,
		StartDate: FormatDate(class.StartDate),
		EndDate:   FormatDate(class.EndDate),
		Schedule:  class.Schedule,
		Groups:    []GroupResponse{},
		CreatedAt: class.CreatedAt,
	}
}

// ClassStudentResponse is one row of a class roster.
type ClassStudentResponse struct {
	ID          uuid.UUID  `json:"id"`
	FullName    string     `json:"full_name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	GroupID     *uuid.UUID `json:"group_id"`
	UnpaidCount int64      `json:"unpaid_count"`
}

// SubjectResponse serializes a subject.
type SubjectResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ClassDeleteResponse summarises what a class deletion removed.
type ClassDeleteResponse struct {
	ID                uuid.UUID `json:"id"`
	MaterialsDetached int64     `json:"materials_detached"`
	BatchesRemoved    int64     `json:"batches_removed"`
	RecordsRemoved    int64     `json:"records_removed"`
	StudentsRemoved   int64     `json:"students_removed"`
	EnrollmentsCut    int64     `json:"enrollments_removed"`
}
