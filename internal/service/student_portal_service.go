package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/repository"
)

// StudentPortalService serves the read-only student area.
type StudentPortalService interface {
	MyClasses(ctx context.Context, studentID uuid.UUID) ([]dto.StudentClassResponse, error)
	Dashboard(ctx context.Context, studentID uuid.UUID) (dto.StudentDashboardResponse, error)
}

type studentPortalService struct {
	repo   repository.StudentPortalRepository
	logger zerolog.Logger
}

// NewStudentPortalService constructs the student portal service.
func NewStudentPortalService(repo repository.StudentPortalRepository, logger zerolog.Logger) StudentPortalService {
	return &studentPortalService{
		repo:   repo,
		logger: logger.With().Str("component", "student_portal_service").Logger(),
	}
}

// MyClasses returns every class the student is related to through enrollment, group membership
// or a tuition record, with the class groups, the student's own group and their classmates.
func (s *studentPortalService) MyClasses(ctx context.Context, studentID uuid.UUID) ([]dto.StudentClassResponse, error) {
	classIDs, sources, err := s.memberships(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(classIDs) == 0 {
		return []dto.StudentClassResponse{}, nil
	}

	classes, err := s.repo.Classes(ctx, classIDs)
	if err != nil {
		return nil, err
	}
	groups, err := s.repo.Groups(ctx, classIDs)
	if err != nil {
		return nil, err
	}
	ownGroups, err := s.repo.StudentGroups(ctx, studentID)
	if err != nil {
		return nil, err
	}
	classmates, err := s.repo.Classmates(ctx, studentID, classIDs)
	if err != nil {
		return nil, err
	}

	groupsByClass := make(map[uuid.UUID][]dto.GroupSummary)
	for _, group := range groups {
		groupsByClass[group.ClassID] = append(groupsByClass[group.ClassID], dto.GroupSummary{ID: group.ID, ClassID: group.ClassID, Name: group.Name})
	}
	ownByClass := make(map[uuid.UUID]dto.GroupSummary)
	for _, group := range ownGroups {
		if _, ok := ownByClass[group.ClassID]; !ok {
			ownByClass[group.ClassID] = dto.GroupSummary{ID: group.GroupID, ClassID: group.ClassID, Name: group.Name}
		}
	}
	matesByClass := make(map[uuid.UUID][]dto.ClassmateResponse)
	for _, mate := range classmates {
		matesByClass[mate.ClassID] = append(matesByClass[mate.ClassID], dto.ClassmateResponse{ID: mate.StudentID, FullName: mate.FullName})
	}

	responses := make([]dto.StudentClassResponse, 0, len(classes))
	for _, class := range classes {
		response := dto.StudentClassResponse{
			ID:          class.ID,
			Name:        class.Name,
			Fee:         class.Fee,
			Schedule:    class.Schedule,
			StartDate:   dto.FormatDate(class.StartDate),
			EndDate:     dto.FormatDate(class.EndDate),
			SubjectName: class.SubjectName,
			Sources:     sources[class.ID],
			Groups:      groupsByClass[class.ID],
			Classmates:  matesByClass[class.ID],
		}
		if own, ok := ownByClass[class.ID]; ok {
			own := own
			response.Group = &own
		}
		if response.Groups == nil {
			response.Groups = []dto.GroupSummary{}
		}
		if response.Classmates == nil {
			response.Classmates = []dto.ClassmateResponse{}
		}
		responses = append(responses, response)
	}
	return responses, nil
}

// Dashboard covers every class the student is related to. Both totals come from the
// student's tuition records in those classes: all batch amounts, and the unpaid ones.
func (s *studentPortalService) Dashboard(ctx context.Context, studentID uuid.UUID) (dto.StudentDashboardResponse, error) {
	response := dto.StudentDashboardResponse{Classes: []dto.ClassResponse{}}

	classIDs, _, err := s.memberships(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}
	if len(classIDs) == 0 {
		return response, nil
	}

	classes, err := s.repo.Classes(ctx, classIDs)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}
	totals, err := s.repo.TuitionTotals(ctx, studentID, classIDs)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	response.Summary = dto.StudentDashboardSummary{
		TotalClasses:  len(classIDs),
		TotalFee:      totals.Billed,
		UnpaidTuition: totals.Unpaid,
	}
	for _, class := range classes {
		item := dto.NewClassResponse(class.Class)
		item.SubjectName = class.SubjectName
		item.StudentCount = class.StudentCount
		response.Classes = append(response.Classes, item)
	}
	return response, nil
}

// memberships returns the related class ids in first-seen order and the sources per class.
func (s *studentPortalService) memberships(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, map[uuid.UUID][]string, error) {
	rows, err := s.repo.Memberships(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	sources := make(map[uuid.UUID][]string)
	classIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if _, seen := sources[row.ClassID]; !seen {
			classIDs = append(classIDs, row.ClassID)
		}
		sources[row.ClassID] = append(sources[row.ClassID], row.Source)
	}
	return classIDs, sources, nil
}
