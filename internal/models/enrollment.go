package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Enrollment is the direct membership of a student in a class.
type Enrollment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_class" json:"student_id"`
	ClassID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_class;index" json:"class_id"`
	EnrolledAt time.Time `gorm:"autoCreateTime" json:"enrolled_at"`
}

func (Enrollment) TableName() string {
	return "class_enrollments"
}

func (e *Enrollment) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}

// GroupMembership places a student in a group.
type GroupMembership struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_student_group" json:"student_id"`
	GroupID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_student_group;index" json:"group_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (GroupMembership) TableName() string {
	return "student_groups"
}

func (m *GroupMembership) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
