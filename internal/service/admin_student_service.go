package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/models"
	"github.com/noah-isme/chemclass-api/internal/repository"
)

// AdminStudentService orchestrates admin student management use cases.
type AdminStudentService interface {
	List(ctx context.Context, req dto.AdminStudentListRequest) (dto.AdminStudentListResponse, error)
	Get(ctx context.Context, id uuid.UUID) (dto.AdminStudentResponse, error)
	Create(ctx context.Context, payload dto.AdminStudentCreateRequest, actor ActivityActor) (dto.AdminStudentCreateResponse, error)
	Update(ctx context.Context, id uuid.UUID, payload dto.AdminStudentUpdateRequest, actor ActivityActor) (dto.AdminStudentResponse, error)
	Delete(ctx context.Context, id uuid.UUID, actor ActivityActor) error
	AssignGroup(ctx context.Context, studentID, groupID uuid.UUID, actor ActivityActor) error
	TransferGroup(ctx context.Context, studentID, fromGroupID, toGroupID uuid.UUID, actor ActivityActor) error
	RemoveGroup(ctx context.Context, studentID, groupID uuid.UUID, actor ActivityActor) error
}

type adminStudentService struct {
	repo      repository.AdminStudentRepository
	users     repository.UserRepository
	classes   repository.ClassRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewAdminStudentService constructs the admin student service.
func NewAdminStudentService(repo repository.AdminStudentRepository, users repository.UserRepository, classes repository.ClassRepository, validator *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AdminStudentService {
	return &adminStudentService{
		repo:      repo,
		users:     users,
		classes:   classes,
		validator: validator,
		activity:  activity,
		logger:    logger.With().Str("component", "admin_student_service").Logger(),
	}
}

func (s *adminStudentService) List(ctx context.Context, req dto.AdminStudentListRequest) (dto.AdminStudentListResponse, error) {
	filter := repository.AdminStudentFilter{
		Search:   strings.TrimSpace(req.Search),
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AdminStudentListResponse{}, err
	}

	responses, err := s.responses(ctx, students)
	if err != nil {
		return dto.AdminStudentListResponse{}, err
	}

	return dto.AdminStudentListResponse{
		Items:      responses,
		Pagination: paginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func (s *adminStudentService) Get(ctx context.Context, id uuid.UUID) (dto.AdminStudentResponse, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AdminStudentResponse{}, ErrStudentNotFound
		}
		return dto.AdminStudentResponse{}, err
	}
	return s.response(ctx, student)
}

// Create inserts the student with every enrollment in one transaction. Without a supplied password a
// random one is generated and returned once; only its hash is stored.
func (s *adminStudentService) Create(ctx context.Context, payload dto.AdminStudentCreateRequest, actor ActivityActor) (dto.AdminStudentCreateResponse, error) {
	payload.FullName = sanitizeText(payload.FullName)
	payload.Email = normalizeEmail(payload.Email)
	payload.Phone = strings.TrimSpace(payload.Phone)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AdminStudentCreateResponse{}, err
	}

	taken, err := s.users.EmailTaken(ctx, payload.Email, nil)
	if err != nil {
		return dto.AdminStudentCreateResponse{}, err
	}
	if taken {
		return dto.AdminStudentCreateResponse{}, ErrEmailTaken
	}

	password := payload.Password
	var generated string
	if password == "" {
		if generated, err = generateInitialPassword(); err != nil {
			return dto.AdminStudentCreateResponse{}, err
		}
		password = generated
	}
	hash, err := hashPassword(password)
	if err != nil {
		return dto.AdminStudentCreateResponse{}, err
	}

	student := models.User{
		Email:        payload.Email,
		PasswordHash: hash,
		FullName:     payload.FullName,
		Phone:        payload.Phone,
		Role:         models.RoleStudent,
	}
	if err := s.repo.Create(ctx, &student, payload.ClassIDs); err != nil {
		switch {
		case errors.Is(err, repository.ErrUnknownReference):
			return dto.AdminStudentCreateResponse{}, ErrUnknownClass
		case isUniqueViolation(err):
			return dto.AdminStudentCreateResponse{}, ErrEmailTaken
		}
		s.logger.Error().Err(err).Msg("failed to create student")
		return dto.AdminStudentCreateResponse{}, err
	}

	response, err := s.response(ctx, student)
	if err != nil {
		return dto.AdminStudentCreateResponse{}, err
	}

	recordActivity(ctx, s.activity, actor, "student.created", "student", &student.ID, map[string]interface{}{
		"classes":        len(response.Classes),
		"auto_generated": generated != "",
	})
	return dto.AdminStudentCreateResponse{Student: response, InitialPassword: generated}, nil
}

func (s *adminStudentService) Update(ctx context.Context, id uuid.UUID, payload dto.AdminStudentUpdateRequest, actor ActivityActor) (dto.AdminStudentResponse, error) {
	if payload.FullName != nil {
		name := sanitizeText(*payload.FullName)
		payload.FullName = &name
	}
	if payload.Email != nil {
		email := normalizeEmail(*payload.Email)
		payload.Email = &email
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AdminStudentResponse{}, err
	}

	updates := make(map[string]interface{})
	changedFields := make([]string, 0)

	if payload.FullName != nil {
		updates["full_name"] = *payload.FullName
		changedFields = append(changedFields, "full_name")
	}
	if payload.Email != nil {
		taken, err := s.users.EmailTaken(ctx, *payload.Email, &id)
		if err != nil {
			return dto.AdminStudentResponse{}, err
		}
		if taken {
			return dto.AdminStudentResponse{}, ErrEmailTaken
		}
		updates["email"] = *payload.Email
		changedFields = append(changedFields, "email")
	}
	if payload.Phone != nil {
		updates["phone"] = strings.TrimSpace(*payload.Phone)
		changedFields = append(changedFields, "phone")
	}
	if payload.Password != nil {
		hash, err := hashPassword(*payload.Password)
		if err != nil {
			return dto.AdminStudentResponse{}, err
		}
		updates["password_hash"] = hash
		changedFields = append(changedFields, "password")
	}
	if len(payload.ClassIDs) > 0 {
		changedFields = append(changedFields, "classes")
	}

	student, err := s.repo.Update(ctx, id, updates, payload.ClassIDs)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.AdminStudentResponse{}, ErrStudentNotFound
		case errors.Is(err, repository.ErrUnknownReference):
			return dto.AdminStudentResponse{}, ErrUnknownClass
		case isUniqueViolation(err):
			return dto.AdminStudentResponse{}, ErrEmailTaken
		}
		s.logger.Error().Err(err).Str("student_id", id.String()).Msg("failed to update student")
		return dto.AdminStudentResponse{}, err
	}

	recordActivity(ctx, s.activity, actor, "student.updated", "student", &id, map[string]interface{}{
		"fields": changedFields,
	})
	return s.response(ctx, student)
}

func (s *adminStudentService) Delete(ctx context.Context, id uuid.UUID, actor ActivityActor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, actor, "student.deleted", "student", &id, nil)
	return nil
}

// AssignGroup places an enrolled student in a group. A student holds at most one group per class.
func (s *adminStudentService) AssignGroup(ctx context.Context, studentID, groupID uuid.UUID, actor ActivityActor) error {
	group, err := s.group(ctx, groupID)
	if err != nil {
		return err
	}
	if err := s.requireEnrolled(ctx, studentID, group.ClassID); err != nil {
		return err
	}

	current, err := s.repo.GroupInClass(ctx, studentID, group.ClassID)
	if err != nil {
		return err
	}
	if current != nil {
		return ErrAlreadyInGroup
	}

	if err := s.repo.AddToGroup(ctx, studentID, groupID); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyInGroup
		}
		return err
	}

	recordActivity(ctx, s.activity, actor, "group.assigned", "student", &studentID, map[string]interface{}{
		"group_id": groupID.String(),
	})
	return nil
}

// TransferGroup moves a student between two groups of the same class.
func (s *adminStudentService) TransferGroup(ctx context.Context, studentID, fromGroupID, toGroupID uuid.UUID, actor ActivityActor) error {
	if fromGroupID == toGroupID {
		return validationError("target group must differ from the current group")
	}
	from, err := s.group(ctx, fromGroupID)
	if err != nil {
		return err
	}
	to, err := s.group(ctx, toGroupID)
	if err != nil {
		return err
	}
	if from.ClassID != to.ClassID {
		return ErrGroupMismatch
	}

	if err := s.repo.MoveGroup(ctx, studentID, fromGroupID, toGroupID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrMembershipAbsent
		case isUniqueViolation(err):
			return ErrAlreadyInGroup
		}
		return err
	}

	recordActivity(ctx, s.activity, actor, "group.transferred", "student", &studentID, map[string]interface{}{
		"from_group_id": fromGroupID.String(),
		"to_group_id":   toGroupID.String(),
	})
	return nil
}

func (s *adminStudentService) RemoveGroup(ctx context.Context, studentID, groupID uuid.UUID, actor ActivityActor) error {
	if err := s.repo.RemoveFromGroup(ctx, studentID, groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMembershipAbsent
		}
		return err
	}

	recordActivity(ctx, s.activity, actor, "group.removed", "student", &studentID, map[string]interface{}{
		"group_id": groupID.String(),
	})
	return nil
}

func (s *adminStudentService) group(ctx context.Context, id uuid.UUID) (models.Group, error) {
	group, err := s.classes.GetGroup(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Group{}, ErrGroupNotFound
		}
		return models.Group{}, err
	}
	return group, nil
}

func (s *adminStudentService) requireEnrolled(ctx context.Context, studentID, classID uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}
	enrolled, err := s.classes.IsEnrolled(ctx, classID, studentID)
	if err != nil {
		return err
	}
	if !enrolled {
		return ErrNotEnrolled
	}
	return nil
}

func (s *adminStudentService) response(ctx context.Context, student models.User) (dto.AdminStudentResponse, error) {
	responses, err := s.responses(ctx, []models.User{student})
	if err != nil {
		return dto.AdminStudentResponse{}, err
	}
	return responses[0], nil
}

func (s *adminStudentService) responses(ctx context.Context, students []models.User) ([]dto.AdminStudentResponse, error) {
	ids := make([]uuid.UUID, 0, len(students))
	for _, student := range students {
		ids = append(ids, student.ID)
	}

	rows, err := s.repo.Classes(ctx, ids)
	if err != nil {
		return nil, err
	}
	unpaid, err := s.repo.UnpaidCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	classes := make(map[uuid.UUID][]dto.ClassSummary, len(students))
	for _, row := range rows {
		classes[row.StudentID] = append(classes[row.StudentID], dto.ClassSummary{ID: row.ClassID, Name: row.ClassName})
	}

	responses := make([]dto.AdminStudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, dto.NewAdminStudentResponse(student, classes[student.ID], unpaid[student.ID]))
	}
	return responses, nil
}
