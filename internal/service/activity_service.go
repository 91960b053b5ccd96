package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/models"
	"github.com/noah-isme/chemclass-api/internal/repository"
)

// ActivityActor is the authenticated caller behind an administrative mutation.
type ActivityActor struct {
	ID   uuid.UUID
	Role string
}

// ActivityEntry is one audit event. Action is "<entity>.<verb>", e.g. "tuition_batch.created".
type ActivityEntry struct {
	ActorID    uuid.UUID
	ActorRole  string
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	Metadata   map[string]interface{}
}

// ActivityRecorder is the write side handed to the domain services.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.AdminActivityResponse, error)
}

// ActivityService records and lists the audit trail.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.AdminActivityListRequest) (dto.AdminActivityListResponse, error)
}

// Metadata keys containing any of these fragments are stored as "***".
var redactedMetadataKeys = []string{"password", "email", "token", "secret"}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.AdminActivityResponse, error) {
	action := strings.ToLower(strings.TrimSpace(entry.Action))
	entityType := strings.ToLower(strings.TrimSpace(entry.EntityType))
	switch {
	case action == "":
		return dto.AdminActivityResponse{}, validationError("action is required")
	case entityType == "":
		return dto.AdminActivityResponse{}, validationError("entity type is required")
	}

	model := models.ActivityLog{
		ActorID:    entry.ActorID,
		ActorRole:  normalizeRole(entry.ActorRole),
		Action:     action,
		EntityType: entityType,
		EntityID:   entry.EntityID,
		Metadata:   redactMetadata(entry.Metadata),
	}
	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", action).Str("entity_type", entityType).Msg("failed to persist activity log")
		return dto.AdminActivityResponse{}, err
	}
	return dto.NewAdminActivityResponse(model), nil
}

func (s *activityService) List(ctx context.Context, req dto.AdminActivityListRequest) (dto.AdminActivityListResponse, error) {
	if req.Since != nil && req.Until != nil && !req.Since.Before(*req.Until) {
		return dto.AdminActivityListResponse{}, validationError("since must be before until")
	}

	filter := repository.ActivityLogFilter{
		Page:       req.Page,
		PageSize:   req.PageSize,
		Action:     strings.ToLower(strings.TrimSpace(req.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(req.EntityType)),
		ActorID:    optionalID(req.ActorID),
		EntityID:   optionalID(req.EntityID),
		Since:      req.Since,
		Until:      req.Until,
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AdminActivityListResponse{}, err
	}

	items := make([]dto.AdminActivityResponse, len(entries))
	for i, entry := range entries {
		items[i] = dto.NewAdminActivityResponse(entry)
	}
	return dto.AdminActivityListResponse{
		Items:      items,
		Pagination: paginationMeta(req.Page, req.PageSize, total),
	}, nil
}

// recordActivity writes an audit entry; a failure is logged by the recorder and never
// fails the mutation that triggered it.
func recordActivity(ctx context.Context, recorder ActivityRecorder, actor ActivityActor, action, entityType string, entityID *uuid.UUID, metadata map[string]interface{}) {
	if recorder == nil {
		return
	}
	_, _ = recorder.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
	})
}

func redactMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(metadata))
	for key, value := range metadata {
		if isRedactedKey(key) {
			out[key] = "***"
			continue
		}
		if text, ok := value.(string); ok {
			value = sanitizeText(text)
		}
		out[key] = value
	}
	return out
}

func isRedactedKey(key string) bool {
	lower := strings.ToLower(key)
	for _, fragment := range redactedMetadataKeys {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
