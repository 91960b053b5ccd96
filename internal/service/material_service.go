package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/models"
	"github.com/noah-isme/chemclass-api/internal/repository"
)

// LinkFileType marks materials that point to an external URL instead of a stored file.
const LinkFileType = "link/text"

// MaterialService manages documents distributed to students.
type MaterialService interface {
	List(ctx context.Context, filter dto.MaterialListRequest) ([]dto.MaterialResponse, error)
	ListForStudent(ctx context.Context, studentID uuid.UUID) ([]dto.MaterialResponse, error)
	Create(ctx context.Context, payload dto.MaterialRequest, file *multipart.FileHeader, actor ActivityActor) (dto.MaterialResponse, error)
	Update(ctx context.Context, id uuid.UUID, payload dto.MaterialRequest, file *multipart.FileHeader, actor ActivityActor) (dto.MaterialResponse, error)
	Delete(ctx context.Context, id uuid.UUID, actor ActivityActor) error
}

type materialService struct {
	repo      repository.MaterialRepository
	classes   repository.ClassRepository
	subjects  repository.SubjectRepository
	uploads   *uploader
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewMaterialService constructs the material service. maxUploadMB <= 0 falls back to DefaultUploadMaxMB.
func NewMaterialService(
	repo repository.MaterialRepository,
	classes repository.ClassRepository,
	subjects repository.SubjectRepository,
	store FileStorage,
	maxUploadMB int,
	validator *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) MaterialService {
	componentLogger := logger.With().Str("component", "material_service").Logger()
	return &materialService{
		repo:      repo,
		classes:   classes,
		subjects:  subjects,
		uploads:   newUploader(store, maxUploadMB, componentLogger),
		validator: validator,
		activity:  activity,
		logger:    componentLogger,
		tracer:    otel.Tracer("github.com/noah-isme/chemclass-api/internal/service/material"),
	}
}

func (s *materialService) List(ctx context.Context, filter dto.MaterialListRequest) ([]dto.MaterialResponse, error) {
	materials, err := s.repo.List(ctx, repository.MaterialFilter{ClassID: filter.ClassID, GroupID: filter.GroupID})
	if err != nil {
		return nil, err
	}
	return materialResponses(materials), nil
}

func (s *materialService) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]dto.MaterialResponse, error) {
	materials, err := s.repo.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return materialResponses(materials), nil
}

// Create stores the attached file, or records the file_url link when no file is sent.
func (s *materialService) Create(ctx context.Context, payload dto.MaterialRequest, file *multipart.FileHeader, actor ActivityActor) (dto.MaterialResponse, error) {
	ctx, span := s.tracer.Start(ctx, "material.create")
	defer span.End()
	span.SetAttributes(attribute.Bool("material.file_present", file != nil))

	scope, err := s.scopeFromRequest(ctx, &payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.MaterialResponse{}, err
	}
	if file == nil && payload.FileURL == "" {
		span.SetStatus(codes.Error, "validation failed")
		return dto.MaterialResponse{}, ErrFileRequired
	}

	material := models.Material{
		Title:       payload.Title,
		Description: payload.Description,
		ClassID:     scope.classID,
		GroupID:     scope.groupID,
		SubjectID:   scope.subjectID,
	}
	if actor.ID != uuid.Nil {
		uploadedBy := actor.ID
		material.UploadedBy = &uploadedBy
	}

	if file != nil {
		stored, err := s.uploads.store(ctx, span, file)
		if err != nil {
			return dto.MaterialResponse{}, err
		}
		material.FileURL = stored.URL
		material.FileName = stored.Name
		material.FileType = stored.MimeType
	} else {
		material.FileURL = payload.FileURL
		material.FileType = LinkFileType
	}

	if err := s.repo.Create(ctx, &material); err != nil {
		s.uploads.discard(ctx, material.FileName, "create failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		s.logger.Error().Err(err).Msg("failed to create material")
		return dto.MaterialResponse{}, err
	}

	span.SetAttributes(attribute.String("material.id", material.ID.String()))
	span.SetStatus(codes.Ok, "stored")
	recordActivity(ctx, s.activity, actor, "material.created", "material", &material.ID, map[string]interface{}{
		"title":     material.Title,
		"file_type": material.FileType,
	})
	return dto.NewMaterialResponse(material), nil
}

// Update replaces the material fields. A replacement file is written first and the previous file
// is removed only after the row is updated; a failed update removes the new file instead.
func (s *materialService) Update(ctx context.Context, id uuid.UUID, payload dto.MaterialRequest, file *multipart.FileHeader, actor ActivityActor) (dto.MaterialResponse, error) {
	ctx, span := s.tracer.Start(ctx, "material.update", trace.WithAttributes(attribute.String("material.id", id.String())))
	defer span.End()

	scope, err := s.scopeFromRequest(ctx, &payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.MaterialResponse{}, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MaterialResponse{}, ErrMaterialNotFound
		}
		return dto.MaterialResponse{}, err
	}

	updates := map[string]interface{}{
		"title":       payload.Title,
		"description": payload.Description,
		"class_id":    scope.classID,
		"group_id":    scope.groupID,
		"subject_id":  scope.subjectID,
	}

	var replacement string
	switch {
	case file != nil:
		stored, err := s.uploads.store(ctx, span, file)
		if err != nil {
			return dto.MaterialResponse{}, err
		}
		replacement = stored.Name
		updates["file_url"] = stored.URL
		updates["file_name"] = stored.Name
		updates["file_type"] = stored.MimeType
	case payload.FileURL != "" && payload.FileURL != current.FileURL:
		updates["file_url"] = payload.FileURL
		updates["file_name"] = ""
		updates["file_type"] = LinkFileType
	}

	updated, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		s.uploads.discard(ctx, replacement, "update failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MaterialResponse{}, ErrMaterialNotFound
		}
		return dto.MaterialResponse{}, err
	}

	if current.IsStored() && current.FileName != updated.FileName {
		s.uploads.discard(ctx, current.FileName, "replaced")
	}

	span.SetStatus(codes.Ok, "updated")
	recordActivity(ctx, s.activity, actor, "material.updated", "material", &updated.ID, map[string]interface{}{
		"title":         updated.Title,
		"file_replaced": current.FileURL != updated.FileURL,
	})
	return dto.NewMaterialResponse(updated), nil
}

// Delete removes the row and then the stored file, if any.
func (s *materialService) Delete(ctx context.Context, id uuid.UUID, actor ActivityActor) error {
	ctx, span := s.tracer.Start(ctx, "material.delete", trace.WithAttributes(attribute.String("material.id", id.String())))
	defer span.End()

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMaterialNotFound
		}
		return err
	}

	if removed.IsStored() {
		s.uploads.discard(ctx, removed.FileName, "deleted")
	}

	recordActivity(ctx, s.activity, actor, "material.deleted", "material", &id, map[string]interface{}{
		"title": removed.Title,
	})
	return nil
}

type materialScope struct {
	classID   *uuid.UUID
	groupID   *uuid.UUID
	subjectID *uuid.UUID
}

func (s *materialService) scopeFromRequest(ctx context.Context, payload *dto.MaterialRequest) (materialScope, error) {
	payload.Title = sanitizeText(payload.Title)
	payload.Description = sanitizeText(payload.Description)
	payload.FileURL = strings.TrimSpace(payload.FileURL)
	payload.ClassID = strings.TrimSpace(payload.ClassID)
	payload.GroupID = strings.TrimSpace(payload.GroupID)
	payload.SubjectID = strings.TrimSpace(payload.SubjectID)
	if err := s.validator.Struct(payload); err != nil {
		return materialScope{}, err
	}

	var scope materialScope
	if payload.ClassID != "" {
		id := uuid.MustParse(payload.ClassID)
		if _, err := s.classes.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return materialScope{}, ErrUnknownClass
			}
			return materialScope{}, err
		}
		scope.classID = &id
	}
	if payload.GroupID != "" {
		id := uuid.MustParse(payload.GroupID)
		group, err := s.classes.GetGroup(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return materialScope{}, validationError("unknown group id")
			}
			return materialScope{}, err
		}
		if scope.classID != nil && *scope.classID != group.ClassID {
			return materialScope{}, validationError("group does not belong to the selected class")
		}
		scope.groupID = &id
	}
	if payload.SubjectID != "" {
		id := uuid.MustParse(payload.SubjectID)
		if _, err := s.subjects.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return materialScope{}, validationError("unknown subject id")
			}
			return materialScope{}, err
		}
		scope.subjectID = &id
	}
	return scope, nil
}

func materialResponses(materials []models.Material) []dto.MaterialResponse {
	responses := make([]dto.MaterialResponse, 0, len(materials))
	for _, material := range materials {
		responses = append(responses, dto.NewMaterialResponse(material))
	}
	return responses
}
