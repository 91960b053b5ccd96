package dto

import "github.com/google/uuid"

// ClassmateResponse is another student sharing a class.
type ClassmateResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
}

// StudentClassResponse is a class as seen by one of its students. Sources lists how the student
// is related to it: enrollment, group or billing.
type StudentClassResponse struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Fee         int64               `json:"fee"`
	Schedule    string              `json:"schedule"`
	StartDate   *string             `json:"start_date"`
	EndDate     *string             `json:"end_date"`
	SubjectName string              `json:"subject_name,omitempty"`
	Sources     []string            `json:"sources"`
	Group       *GroupSummary       `json:"group"`
	Groups      []GroupSummary      `json:"groups"`
	Classmates  []ClassmateResponse `json:"classmates"`
}
