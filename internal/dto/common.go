package dto

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ClassSummary is the compact class reference embedded in other payloads.
type ClassSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// GroupSummary is the compact group reference embedded in other payloads.
type GroupSummary struct {
	ID      uuid.UUID `json:"id"`
	ClassID uuid.UUID `json:"class_id"`
	Name    string    `json:"name"`
}

// FormatDate renders an optional date using DateLayout.
func FormatDate(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(DateLayout)
	return &formatted
}
