package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// AdminTotals holds the aggregates shown on the admin dashboard. Amounts are summed batch amounts per record.
type AdminTotals struct {
	TotalStudents  int64
	TotalClasses   int64
	TotalMaterials int64
	PaidAmount     int64
	UnpaidAmount   int64
	PaidRecords    int64
	UnpaidRecords  int64
}

// DashboardRepository computes admin aggregates directly from the tables.
type DashboardRepository interface {
	AdminTotals(ctx context.Context) (AdminTotals, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository constructs the dashboard repository.
func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) AdminTotals(ctx context.Context) (AdminTotals, error) {
	var totals AdminTotals
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.User{}).Where("role = ?", models.RoleStudent).Count(&totals.TotalStudents).Error; err != nil {
		return AdminTotals{}, err
	}
	if err := db.Model(&models.Class{}).Count(&totals.TotalClasses).Error; err != nil {
		return AdminTotals{}, err
	}
	if err := db.Model(&models.Material{}).Count(&totals.TotalMaterials).Error; err != nil {
		return AdminTotals{}, err
	}

	var buckets []struct {
		Status  models.TuitionStatus
		Records int64
		Amount  int64
	}
	err := db.Table("tuitions").
		Select("tuitions.status, COUNT(*) AS records, CAST(COALESCE(SUM(tuition_batches.amount), 0) AS BIGINT) AS amount").
		Joins("JOIN tuition_batches ON tuition_batches.id = tuitions.batch_id").
		Group("tuitions.status").
		Scan(&buckets).Error
	if err != nil {
		return AdminTotals{}, err
	}

	for _, bucket := range buckets {
		switch bucket.Status {
		case models.TuitionStatusPaid:
			totals.PaidAmount = bucket.Amount
			totals.PaidRecords = bucket.Records
		case models.TuitionStatusUnpaid:
			totals.UnpaidAmount = bucket.Amount
			totals.UnpaidRecords = bucket.Records
		}
	}

	return totals, nil
}
