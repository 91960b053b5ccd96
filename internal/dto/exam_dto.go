package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// ExamRequest creates or replaces an exam together with its class links.
type ExamRequest struct {
	Title    string      `json:"title" validate:"required,min=1,max=255"`
	ExamDate string      `json:"exam_date" validate:"required,datetime=2006-01-02"`
	MaxScore *float64    `json:"max_score" validate:"omitempty,gt=0"`
	ClassIDs []uuid.UUID `json:"class_ids" validate:"required,min=1,dive,required"`
}

// ExamResponse serializes an exam.
type ExamResponse struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	ExamDate    string      `json:"exam_date"`
	MaxScore    float64     `json:"max_score"`
	ClassIDs    []uuid.UUID `json:"class_ids"`
	GradedCount int64       `json:"graded_count"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewExamResponse converts an exam model into a DTO.
func NewExamResponse(exam models.Exam, classIDs []uuid.UUID, graded int64) ExamResponse {
	if classIDs == nil {
		classIDs = []uuid.UUID{}
	}
	return ExamResponse{
		ID:          exam.ID,
		Title:       exam.Title,
		ExamDate:    exam.ExamDate.UTC().Format(DateLayout),
		MaxScore:    exam.MaxScore,
		ClassIDs:    classIDs,
		GradedCount: graded,
		CreatedAt:   exam.CreatedAt,
	}
}

// GradeEntry is one line of a bulk grade save. A nil Score removes the grade.
type GradeEntry struct {
	StudentID uuid.UUID `json:"student_id" validate:"required"`
	Score     *float64  `json:"score" validate:"omitempty,gte=0"`
	Comment   string    `json:"comment" validate:"omitempty,max=2000"`
}

// SaveGradesRequest wraps a bulk grade save.
type SaveGradesRequest struct {
	Grades []GradeEntry `json:"grades" validate:"required,dive"`
}

// SaveGradesResponse reports the effect of a bulk save.
type SaveGradesResponse struct {
	Saved   int `json:"saved"`
	Removed int `json:"removed"`
}

// GradeSheetEntry is one student row on an exam's grade sheet.
type GradeSheetEntry struct {
	StudentID uuid.UUID `json:"student_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Score     *float64  `json:"score"`
	Comment   string    `json:"comment"`
}

// GradeSheetResponse is the grading view of an exam.
type GradeSheetResponse struct {
	Exam   ExamResponse      `json:"exam"`
	Grades []GradeSheetEntry `json:"grades"`
}

// StudentGradeResponse is one exam as seen by a student.
type StudentGradeResponse struct {
	ExamID     uuid.UUID `json:"exam_id"`
	Title      string    `json:"title"`
	ExamDate   string    `json:"exam_date"`
	MaxScore   float64   `json:"max_score"`
	Score      *float64  `json:"score"`
	Comment    string    `json:"comment"`
	ClassNames string    `json:"class_names"`
}
