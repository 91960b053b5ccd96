package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/models"
	"github.com/noah-isme/chemclass-api/internal/repository"
)

// ClassService manages classes, their groups and direct enrollments.
type ClassService interface {
	List(ctx context.Context) ([]dto.ClassResponse, error)
	Create(ctx context.Context, payload dto.ClassRequest, actor ActivityActor) (dto.ClassResponse, error)
	Update(ctx context.Context, id uuid.UUID, payload dto.ClassRequest, actor ActivityActor) (dto.ClassResponse, error)
	Delete(ctx context.Context, id uuid.UUID, actor ActivityActor) (dto.ClassDeleteResponse, error)
	CreateGroup(ctx context.Context, classID uuid.UUID, payload dto.GroupRequest, actor ActivityActor) (dto.GroupResponse, error)
	DeleteGroup(ctx context.Context, groupID uuid.UUID, actor ActivityActor) error
	Roster(ctx context.Context, classID uuid.UUID) ([]dto.ClassStudentResponse, error)
	Enroll(ctx context.Context, classID uuid.UUID, payload dto.EnrollStudentRequest, actor ActivityActor) error
}

type classService struct {
	repo      repository.ClassRepository
	subjects  repository.SubjectRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewClassService constructs the class service.
func NewClassService(repo repository.ClassRepository, subjects repository.SubjectRepository, validator *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) ClassService {
	return &classService{
		repo:      repo,
		subjects:  subjects,
		validator: validator,
		activity:  activity,
		logger:    logger.With().Str("component", "class_service").Logger(),
	}
}

func (s *classService) List(ctx context.Context) ([]dto.ClassResponse, error) {
	classes, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(classes))
	for _, class := range classes {
		ids = append(ids, class.ID)
	}
	groups, err := s.repo.ListGroups(ctx, ids)
	if err != nil {
		return nil, err
	}

	byClass := make(map[uuid.UUID][]dto.GroupResponse, len(classes))
	for _, group := range groups {
		byClass[group.ClassID] = append(byClass[group.ClassID], dto.NewGroupResponse(group.Group, group.StudentCount))
	}

	responses := make([]dto.ClassResponse, 0, len(classes))
	for _, class := range classes {
		response := dto.NewClassResponse(class.Class)
		response.SubjectName = class.SubjectName
		response.StudentCount = class.StudentCount
		if classGroups, ok := byClass[class.ID]; ok {
			response.Groups = classGroups
		}
		response.GroupCount = len(response.Groups)
		responses = append(responses, response)
	}
	return responses, nil
}

func (s *classService) Create(ctx context.Context, payload dto.ClassRequest, actor ActivityActor) (dto.ClassResponse, error) {
	class, err := s.classFromRequest(ctx, &payload)
	if err != nil {
		return dto.ClassResponse{}, err
	}

	if err := s.repo.Create(ctx, &class); err != nil {
		s.logger.Error().Err(err).Msg("failed to create class")
		return dto.ClassResponse{}, err
	}

	recordActivity(ctx, s.activity, actor, "class.created", "class", &class.ID, map[string]interface{}{
		"name": class.Name,
		"fee":  class.Fee,
	})
	return dto.NewClassResponse(class), nil
}

// Update replaces every editable field. A fee change is carried into the class's pending baseline payments.
func (s *classService) Update(ctx context.Context, id uuid.UUID, payload dto.ClassRequest, actor ActivityActor) (dto.ClassResponse, error) {
	class, err := s.classFromRequest(ctx, &payload)
	if err != nil {
		return dto.ClassResponse{}, err
	}

	updates := map[string]interface{}{
		"name":       class.Name,
		"fee":        class.Fee,
		"subject_id": class.SubjectID,
		"start_date": class.StartDate,
		"end_date":   class.EndDate,
		"schedule":   class.Schedule,
	}
	updated, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ClassResponse{}, ErrClassNotFound
		}
		s.logger.Error().Err(err).Str("class_id", id.String()).Msg("failed to update class")
		return dto.ClassResponse{}, err
	}

	recordActivity(ctx, s.activity, actor, "class.updated", "class", &id, map[string]interface{}{
		"name": updated.Name,
		"fee":  updated.Fee,
	})
	return dto.NewClassResponse(updated), nil
}

func (s *classService) Delete(ctx context.Context, id uuid.UUID, actor ActivityActor) (dto.ClassDeleteResponse, error) {
	result, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ClassDeleteResponse{}, ErrClassNotFound
		}
		s.logger.Error().Err(err).Str("class_id", id.String()).Msg("class deletion rolled back")
		return dto.ClassDeleteResponse{}, err
	}

	s.logger.Info().
		Str("class_id", id.String()).
		Int64("students_removed", result.StudentsRemoved).
		Int64("batches_removed", result.BatchesRemoved).
		Msg("class deleted")
	recordActivity(ctx, s.activity, actor, "class.deleted", "class", &id, map[string]interface{}{
		"students_removed": result.StudentsRemoved,
		"batches_removed":  result.BatchesRemoved,
		"records_removed":  result.RecordsRemoved,
	})

	return dto.ClassDeleteResponse{
		ID:                id,
		MaterialsDetached: result.MaterialsDetached,
		BatchesRemoved:    result.BatchesRemoved,
		RecordsRemoved:    result.RecordsRemoved,
		StudentsRemoved:   result.StudentsRemoved,
		EnrollmentsCut:    result.EnrollmentsCut,
	}, nil
}

func (s *classService) CreateGroup(ctx context.Context, classID uuid.UUID, payload dto.GroupRequest, actor ActivityActor) (dto.GroupResponse, error) {
	payload.Name = sanitizeText(payload.Name)
	payload.Description = sanitizeText(payload.Description)
	if err := s.validator.Struct(payload); err != nil {
		return dto.GroupResponse{}, err
	}

	group := models.Group{
		ClassID:     classID,
		Name:        payload.Name,
		Description: payload.Description,
	}
	if err := s.repo.CreateGroup(ctx, &group); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GroupResponse{}, ErrClassNotFound
		}
		return dto.GroupResponse{}, err
	}

	recordActivity(ctx, s.activity, actor, "group.created", "group", &group.ID, map[string]interface{}{
		"class_id": classID.String(),
		"name":     group.Name,
	})
	return dto.NewGroupResponse(group, 0), nil
}

func (s *classService) DeleteGroup(ctx context.Context, groupID uuid.UUID, actor ActivityActor) error {
	if err := s.repo.DeleteGroup(ctx, groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	recordActivity(ctx, s.activity, actor, "group.deleted", "group", &groupID, nil)
	return nil
}

func (s *classService) Roster(ctx context.Context, classID uuid.UUID) ([]dto.ClassStudentResponse, error) {
	if _, err := s.repo.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	rows, err := s.repo.Roster(ctx, classID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ClassStudentResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, dto.ClassStudentResponse{
			ID:          row.ID,
			FullName:    row.FullName,
			Email:       row.Email,
			Phone:       row.Phone,
			EnrolledAt:  row.EnrolledAt,
			GroupID:     row.GroupID,
			UnpaidCount: row.UnpaidCount,
		})
	}
	return responses, nil
}

func (s *classService) Enroll(ctx context.Context, classID uuid.UUID, payload dto.EnrollStudentRequest, actor ActivityActor) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassNotFound
		}
		return err
	}

	if err := s.repo.Enroll(ctx, classID, payload.StudentID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrStudentNotFound
		case isUniqueViolation(err):
			return ErrAlreadyEnrolled
		}
		s.logger.Error().Err(err).Str("class_id", classID.String()).Msg("failed to enroll student")
		return err
	}

	recordActivity(ctx, s.activity, actor, "class.enrolled", "class", &classID, map[string]interface{}{
		"student_id": payload.StudentID.String(),
	})
	return nil
}

func (s *classService) classFromRequest(ctx context.Context, payload *dto.ClassRequest) (models.Class, error) {
	payload.Name = sanitizeText(payload.Name)
	payload.Schedule = sanitizeText(payload.Schedule)
	if err := s.validator.Struct(payload); err != nil {
		return models.Class{}, err
	}

	start, err := parseOptionalDate(payload.StartDate, "start_date")
	if err != nil {
		return models.Class{}, err
	}
	end, err := parseOptionalDate(payload.EndDate, "end_date")
	if err != nil {
		return models.Class{}, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return models.Class{}, ErrInvalidDateRange
	}

	if payload.SubjectID != nil {
		if _, err := s.subjects.GetByID(ctx, *payload.SubjectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Class{}, validationError("unknown subject id")
			}
			return models.Class{}, err
		}
	}

	return models.Class{
		Name:      payload.Name,
		Fee:       payload.Fee,
		SubjectID: payload.SubjectID,
		StartDate: start,
		EndDate:   end,
		Schedule:  payload.Schedule,
	}, nil
}

func parseOptionalDate(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dto.DateLayout, value)
	if err != nil {
		return nil, validationError("%s must use the %s layout", field, dto.DateLayout)
	}
	parsed = parsed.UTC()
	return &parsed, nil
}
