package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subject is the academic subject a class or material can be tagged with.
type Subject struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:128;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Subject) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// Class is a course students enroll in. Fee is stored in minor currency units.
type Class struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	Fee       int64      `gorm:"not null;default:0" json:"fee"`
	SubjectID *uuid.UUID `gorm:"type:uuid;index" json:"subject_id"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Schedule  string     `gorm:"size:512" json:"schedule"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *Class) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// Group is a named subdivision of a class.
type Group struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClassID     uuid.UUID `gorm:"type:uuid;not null;index" json:"class_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName keeps the table clear of the GROUPS keyword.
func (Group) TableName() string {
	return "class_groups"
}

func (g *Group) BeforeCreate(*gorm.DB) error {
	assignID(&g.ID)
	return nil
}
