package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// TuitionBatchCreateRequest opens a billing batch for a class.
type TuitionBatchCreateRequest struct {
	ClassID uuid.UUID `json:"class_id" validate:"required"`
	Title   string    `json:"title" validate:"required,min=1,max=255"`
	Amount  *int64    `json:"amount" validate:"required,gte=0"`
}

// TuitionBatchResponse serializes a batch. StudentCount is the number of records under it.
type TuitionBatchResponse struct {
	ID           uuid.UUID `json:"id"`
	ClassID      uuid.UUID `json:"class_id"`
	Title        string    `json:"title"`
	Amount       int64     `json:"amount"`
	StudentCount int64     `json:"student_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewTuitionBatchResponse converts a batch model into a DTO.
func NewTuitionBatchResponse(batch models.TuitionBatch, studentCount int64) TuitionBatchResponse {
	return TuitionBatchResponse{
		ID:           batch.ID,
		ClassID:      batch.ClassID,
		Title:        batch.Title,
		Amount:       batch.Amount,
		StudentCount: studentCount,
		CreatedAt:    batch.CreatedAt,
	}
}

// TuitionRecordResponse is one line of a batch roster.
type TuitionRecordResponse struct {
	ID        uuid.UUID  `json:"id"`
	BatchID   uuid.UUID  `json:"batch_id"`
	StudentID uuid.UUID  `json:"student_id"`
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	Status    string     `json:"status"`
	PaidAt    *time.Time `json:"paid_at"`
}

// TuitionRosterSummary counts records per status.
type TuitionRosterSummary struct {
	Paid   int `json:"paid"`
	Unpaid int `json:"unpaid"`
}

// BatchTuitionsResponse is the reconciled roster of a batch.
type BatchTuitionsResponse struct {
	Batch   TuitionBatchResponse    `json:"batch"`
	Records []TuitionRecordResponse `json:"records"`
	Summary TuitionRosterSummary    `json:"summary"`
}

// StudentTuitionResponse is one entry in a student's tuition history.
type StudentTuitionResponse struct {
	ID         uuid.UUID  `json:"id"`
	BatchID    uuid.UUID  `json:"batch_id"`
	BatchTitle string     `json:"batch_title"`
	Amount     int64      `json:"amount"`
	ClassID    uuid.UUID  `json:"class_id"`
	ClassName  string     `json:"class_name"`
	Status     string     `json:"status"`
	PaidAt     *time.Time `json:"paid_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TuitionStatusResponse is returned after a status transition.
type TuitionStatusResponse struct {
	ID        uuid.UUID  `json:"id"`
	BatchID   uuid.UUID  `json:"batch_id"`
	StudentID uuid.UUID  `json:"student_id"`
	Status    string     `json:"status"`
	PaidAt    *time.Time `json:"paid_at"`
}

// NewTuitionStatusResponse converts a record model into a DTO.
func NewTuitionStatusResponse(record models.TuitionRecord) TuitionStatusResponse {
	return TuitionStatusResponse{
		ID:        record.ID,
		BatchID:   record.BatchID,
		StudentID: record.StudentID,
		Status:    string(record.Status),
		PaidAt:    record.PaidAt,
	}
}

// TuitionBatchDeleteResponse reports how many records went with a deleted batch.
type TuitionBatchDeleteResponse struct {
	ID             uuid.UUID `json:"id"`
	RecordsRemoved int64     `json:"records_removed"`
}
