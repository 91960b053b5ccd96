package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultExamMaxScore applies when an exam is created without an explicit maximum.
const DefaultExamMaxScore = 10

// Exam is an assessment shared by one or more classes.
type Exam struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	ExamDate  time.Time `gorm:"not null" json:"exam_date"`
	MaxScore  float64   `gorm:"not null;default:10" json:"max_score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Exam) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	if e.MaxScore <= 0 {
		e.MaxScore = DefaultExamMaxScore
	}
	return nil
}

// ExamClass links an exam to a class.
type ExamClass struct {
	ExamID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"exam_id"`
	ClassID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"class_id"`
}

func (ExamClass) TableName() string {
	return "exam_classes"
}

// Grade is a student's score on an exam. A grade without a score is represented by the absence of a row.
type Grade struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExamID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_grade_exam_student" json:"exam_id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_grade_exam_student;index" json:"student_id"`
	Score     float64   `gorm:"not null" json:"score"`
	Comment   string    `gorm:"type:text" json:"comment"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Grade) TableName() string {
	return "exam_grades"
}

func (g *Grade) BeforeCreate(*gorm.DB) error {
	assignID(&g.ID)
	return nil
}
