package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TuitionStatus is the two-state lifecycle of a tuition record.
type TuitionStatus string

const (
	TuitionStatusUnpaid TuitionStatus = "unpaid"
	TuitionStatusPaid   TuitionStatus = "paid"
)

// PaymentStatus describes a baseline payment written on enrollment.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// TuitionBatch is one billing event for a class. Amount is a snapshot taken at creation.
type TuitionBatch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClassID   uuid.UUID `gorm:"type:uuid;not null;index" json:"class_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Amount    int64     `gorm:"not null" json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func (TuitionBatch) TableName() string {
	return "tuition_batches"
}

func (b *TuitionBatch) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}

// TuitionRecord is the obligation of one student under one batch.
type TuitionRecord struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID   uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_tuition_batch_student" json:"batch_id"`
	StudentID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_tuition_batch_student;index" json:"student_id"`
	Status    TuitionStatus `gorm:"size:16;not null;default:'unpaid';index" json:"status"`
	PaidAt    *time.Time    `json:"paid_at"`
}

func (TuitionRecord) TableName() string {
	return "tuitions"
}

func (r *TuitionRecord) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	if r.Status == "" {
		r.Status = TuitionStatusUnpaid
	}
	return nil
}

// IsPaid reports whether the record is settled.
func (r TuitionRecord) IsPaid() bool {
	return r.Status == TuitionStatusPaid && r.PaidAt != nil
}

// MarkPaid transitions the record to paid at the given instant.
func (r *TuitionRecord) MarkPaid(at time.Time) {
	r.Status = TuitionStatusPaid
	r.PaidAt = &at
}

// MarkUnpaid reverts the record and clears the paid timestamp.
func (r *TuitionRecord) MarkUnpaid() {
	r.Status = TuitionStatusUnpaid
	r.PaidAt = nil
}

// TuitionPayment is the baseline entry written when a student joins a class.
type TuitionPayment struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID uuid.UUID     `gorm:"type:uuid;not null;index" json:"student_id"`
	ClassID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"class_id"`
	Amount    int64         `gorm:"not null" json:"amount"`
	Status    PaymentStatus `gorm:"size:16;not null" json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

func (TuitionPayment) TableName() string {
	return "tuition_payments"
}

func (p *TuitionPayment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	if p.Status == "" {
		p.Status = PaymentStatusPaid
	}
	return nil
}
