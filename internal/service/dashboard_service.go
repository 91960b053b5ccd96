package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/repository"
)

// DashboardService aggregates the admin landing page. Totals are recomputed on every call.
type DashboardService interface {
	Admin(ctx context.Context) (dto.AdminDashboardResponse, error)
}

type dashboardService struct {
	repo   repository.DashboardRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(repo repository.DashboardRepository, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		logger: logger.With().Str("component", "dashboard_service").Logger(),
		now:    time.Now,
	}
}

func (s *dashboardService) Admin(ctx context.Context) (dto.AdminDashboardResponse, error) {
	totals, err := s.repo.AdminTotals(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to aggregate admin dashboard")
		return dto.AdminDashboardResponse{}, err
	}

	return dto.AdminDashboardResponse{
		TotalStudents:  totals.TotalStudents,
		TotalClasses:   totals.TotalClasses,
		TotalMaterials: totals.TotalMaterials,
		PaidAmount:     totals.PaidAmount,
		UnpaidAmount:   totals.UnpaidAmount,
		PaidRecords:    totals.PaidRecords,
		UnpaidRecords:  totals.UnpaidRecords,
		GeneratedAt:    s.now().UTC(),
	}, nil
}
