package dto

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// AdminStudentListRequest defines filters for listing students.
type AdminStudentListRequest struct {
	Page     int
	PageSize int
	Search   string
}

// AdminStudentCreateRequest captures the payload for creating a student with enrollments.
// When Password is empty a one-time initial password is generated.
type AdminStudentCreateRequest struct {
	FullName string      `json:"full_name" validate:"required,min=2,max=255"`
	Email    string      `json:"email" validate:"required,email,max=255"`
	Phone    string      `json:"phone" validate:"omitempty,max=32"`
	Password string      `json:"password" validate:"omitempty,min=6,max=72"`
	ClassIDs []uuid.UUID `json:"class_ids" validate:"required,min=1,dive,required"`
}

// AdminStudentUpdateRequest captures partial updates. A nil or empty ClassIDs leaves enrollments untouched.
type AdminStudentUpdateRequest struct {
	FullName *string     `json:"full_name" validate:"omitempty,min=2,max=255"`
	Email    *string     `json:"email" validate:"omitempty,email,max=255"`
	Phone    *string     `json:"phone" validate:"omitempty,max=32"`
	Password *string     `json:"password" validate:"omitempty,min=6,max=72"`
	ClassIDs []uuid.UUID `json:"class_ids" validate:"omitempty,dive,required"`
}

// AdminStudentResponse serializes student data for admin endpoints.
type AdminStudentResponse struct {
	ID          uuid.UUID      `json:"id"`
	FullName    string         `json:"full_name"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	Classes     []ClassSummary `json:"classes"`
	UnpaidCount int64          `json:"unpaid_count"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewAdminStudentResponse converts a user model into a DTO.
func NewAdminStudentResponse(user models.User, classes []ClassSummary, unpaid int64) AdminStudentResponse {
	if classes == nil {
		classes = []ClassSummary{}
	}
	return AdminStudentResponse{
		ID:          user.ID,
		FullName:    user.FullName,
		Email:       user.Email,
		Phone:       user.Phone,
		Classes:     classes,
		UnpaidCount: unpaid,
		CreatedAt:   user.CreatedAt,
	}
}

// AdminStudentCreateResponse carries the created student and, when generated, the initial password.
type AdminStudentCreateResponse struct {
	Student         AdminStudentResponse `json:"student"`
	InitialPassword string               `json:"initial_password,omitempty"`
}

// AdminStudentListResponse wraps a paginated student response.
type AdminStudentListResponse struct {
	Items      []AdminStudentResponse `json:"items"`
	Pagination PaginationMeta         `json:"pagination"`
}

// AdminActivityListRequest defines filters for retrieving activity logs.
type AdminActivityListRequest struct {
	Page       int
	PageSize   int
	ActorID    uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Since      *time.Time
	Until      *time.Time
}

// AdminActivityResponse serializes activity log entries.
type AdminActivityResponse struct {
	ID         uuid.UUID              `json:"id"`
	ActorID    uuid.UUID              `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uuid.UUID             `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// AdminActivityListResponse wraps paginated activity logs.
type AdminActivityListResponse struct {
	Items      []AdminActivityResponse `json:"items"`
	Pagination PaginationMeta          `json:"pagination"`
}

// NewAdminActivityResponse converts a model into an activity DTO.
func NewAdminActivityResponse(entry models.ActivityLog) AdminActivityResponse {
	return AdminActivityResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   metadataFromJSON(entry.Metadata),
		CreatedAt:  entry.CreatedAt,
	}
}

func metadataFromJSON(data datatypes.JSONMap) map[string]interface{} {
	result := make(map[string]interface{}, len(data))
	for key, value := range data {
		result[key] = value
	}
	return result
}
