package service

import (
	"context"
	"errors"
	"time"

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
	"github.com/noah-isme/chemclass-api/internal/observability"
	"github.com/noah-isme/chemclass-api/internal/repository"
	"github.com/noah-isme/chemclass-api/pkg/events"
)

// TuitionService runs the billing workflow: batches, reconciliation against enrollment and payment status.
type TuitionService interface {
	CreateBatch(ctx context.Context, payload dto.TuitionBatchCreateRequest, actor ActivityActor) (dto.TuitionBatchResponse, error)
	ListBatches(ctx context.Context, classID uuid.UUID) ([]dto.TuitionBatchResponse, error)
	SyncAndList(ctx context.Context, batchID uuid.UUID) (dto.BatchTuitionsResponse, error)
	MarkPaid(ctx context.Context, recordID uuid.UUID, actor ActivityActor) (dto.TuitionStatusResponse, error)
	MarkUnpaid(ctx context.Context, recordID uuid.UUID, actor ActivityActor) (dto.TuitionStatusResponse, error)
	DeleteBatch(ctx context.Context, batchID uuid.UUID, actor ActivityActor) (dto.TuitionBatchDeleteResponse, error)
	History(ctx context.Context, studentID uuid.UUID) ([]dto.StudentTuitionResponse, error)
}

type tuitionService struct {
	repo      repository.TuitionRepository
	classes   repository.ClassRepository
	validator *validator.Validate
	publisher events.Publisher
	activity  ActivityRecorder
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewTuitionService constructs the tuition service. A nil publisher disables domain events.
func NewTuitionService(repo repository.TuitionRepository, classes repository.ClassRepository, validator *validator.Validate, publisher events.Publisher, activity ActivityRecorder, logger zerolog.Logger) TuitionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &tuitionService{
		repo:      repo,
		classes:   classes,
		validator: validator,
		publisher: publisher,
		activity:  activity,
		logger:    logger.With().Str("component", "tuition_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/chemclass-api/internal/service/tuition"),
		now:       time.Now,
	}
}

func (s *tuitionService) CreateBatch(ctx context.Context, payload dto.TuitionBatchCreateRequest, actor ActivityActor) (dto.TuitionBatchResponse, error) {
	ctx, span := s.tracer.Start(ctx, "tuition.create_batch")
	defer span.End()

	payload.Title = sanitizeText(payload.Title)
	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.TuitionBatchResponse{}, err
	}
	span.SetAttributes(attribute.String("tuition.class_id", payload.ClassID.String()))

	class, err := s.classes.GetByID(ctx, payload.ClassID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "class not found")
			return dto.TuitionBatchResponse{}, ErrClassNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "class lookup failed")
		return dto.TuitionBatchResponse{}, err
	}

	batch := models.TuitionBatch{
		ClassID: class.ID,
		Title:   payload.Title,
		Amount:  *payload.Amount,
	}
	created, err := s.repo.CreateBatch(ctx, &batch)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TuitionBatchResponse{}, ErrClassNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "create batch failed")
		s.logger.Error().Err(err).Str("class_id", class.ID.String()).Msg("failed to create tuition batch")
		return dto.TuitionBatchResponse{}, err
	}

	observability.TuitionRecordsCreated().Add(float64(created))
	span.SetAttributes(attribute.Int64("tuition.records_created", created))
	span.SetStatus(codes.Ok, "created")

	s.publish(ctx, events.TuitionBatchCreated, batch.ID, map[string]interface{}{
		"class_id": batch.ClassID.String(),
		"title":    batch.Title,
		"amount":   batch.Amount,
		"records":  created,
	})
	recordActivity(ctx, s.activity, actor, "tuition_batch.created", "tuition_batch", &batch.ID, map[string]interface{}{
		"class_id": batch.ClassID.String(),
		"amount":   batch.Amount,
		"records":  created,
	})

	return dto.NewTuitionBatchResponse(batch, created), nil
}

func (s *tuitionService) ListBatches(ctx context.Context, classID uuid.UUID) ([]dto.TuitionBatchResponse, error) {
	if _, err := s.classes.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	batches, err := s.repo.ListBatches(ctx, classID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.TuitionBatchResponse, 0, len(batches))
	for _, batch := range batches {
		responses = append(responses, dto.NewTuitionBatchResponse(batch.TuitionBatch, batch.StudentCount))
	}
	return responses, nil
}

// SyncAndList reconciles the batch with current enrollment before listing it, so it writes even though it reads like a query.
func (s *tuitionService) SyncAndList(ctx context.Context, batchID uuid.UUID) (dto.BatchTuitionsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "tuition.sync_batch")
	defer span.End()
	span.SetAttributes(attribute.String("tuition.batch_id", batchID.String()))

	batch, rows, result, err := s.repo.SyncAndList(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "batch not found")
			return dto.BatchTuitionsResponse{}, ErrBatchNotFound
		}
		observability.TuitionReconciliations().WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconciliation failed")
		s.logger.Error().Err(err).Str("batch_id", batchID.String()).Msg("failed to reconcile tuition batch")
		return dto.BatchTuitionsResponse{}, err
	}

	outcome := "unchanged"
	if result.Created > 0 || result.Removed > 0 {
		outcome = "changed"
		s.logger.Info().
			Str("batch_id", batchID.String()).
			Int64("created", result.Created).
			Int64("removed", result.Removed).
			Msg("tuition batch reconciled")
	}
	observability.TuitionReconciliations().WithLabelValues(outcome).Inc()
	observability.TuitionRecordsCreated().Add(float64(result.Created))
	observability.TuitionRecordsRemoved().Add(float64(result.Removed))
	span.SetAttributes(
		attribute.Int64("tuition.records_created", result.Created),
		attribute.Int64("tuition.records_removed", result.Removed),
	)
	span.SetStatus(codes.Ok, outcome)

	response := dto.BatchTuitionsResponse{
		Batch:   dto.NewTuitionBatchResponse(batch, int64(len(rows))),
		Records: make([]dto.TuitionRecordResponse, 0, len(rows)),
	}
	for _, row := range rows {
		response.Records = append(response.Records, dto.TuitionRecordResponse{
			ID:        row.ID,
			BatchID:   row.BatchID,
			StudentID: row.StudentID,
			FullName:  row.FullName,
			Email:     row.Email,
			Status:    string(row.Status),
			PaidAt:    row.PaidAt,
		})
		if row.Status == models.TuitionStatusPaid {
			response.Summary.Paid++
		} else {
			response.Summary.Unpaid++
		}
	}
	return response, nil
}

func (s *tuitionService) MarkPaid(ctx context.Context, recordID uuid.UUID, actor ActivityActor) (dto.TuitionStatusResponse, error) {
	ctx, span := s.tracer.Start(ctx, "tuition.mark_paid")
	defer span.End()

	record, err := s.repo.MarkPaid(ctx, recordID, s.now().UTC())
	if err != nil {
		return dto.TuitionStatusResponse{}, s.transitionError(span, recordID, err)
	}
	span.SetStatus(codes.Ok, "paid")

	s.publish(ctx, events.TuitionRecordPaid, record.ID, map[string]interface{}{
		"batch_id":   record.BatchID.String(),
		"student_id": record.StudentID.String(),
	})
	recordActivity(ctx, s.activity, actor, "tuition.paid", "tuition", &record.ID, nil)
	return dto.NewTuitionStatusResponse(record), nil
}

func (s *tuitionService) MarkUnpaid(ctx context.Context, recordID uuid.UUID, actor ActivityActor) (dto.TuitionStatusResponse, error) {
	ctx, span := s.tracer.Start(ctx, "tuition.mark_unpaid")
	defer span.End()

	record, err := s.repo.MarkUnpaid(ctx, recordID)
	if err != nil {
		return dto.TuitionStatusResponse{}, s.transitionError(span, recordID, err)
	}
	span.SetStatus(codes.Ok, "unpaid")

	s.publish(ctx, events.TuitionRecordUnpaid, record.ID, map[string]interface{}{
		"batch_id":   record.BatchID.String(),
		"student_id": record.StudentID.String(),
	})
	recordActivity(ctx, s.activity, actor, "tuition.unpaid", "tuition", &record.ID, nil)
	return dto.NewTuitionStatusResponse(record), nil
}

func (s *tuitionService) transitionError(span trace.Span, recordID uuid.UUID, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, "record not found")
		return ErrTuitionNotFound
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "status update failed")
	s.logger.Error().Err(err).Str("record_id", recordID.String()).Msg("failed to update tuition status")
	return err
}

func (s *tuitionService) DeleteBatch(ctx context.Context, batchID uuid.UUID, actor ActivityActor) (dto.TuitionBatchDeleteResponse, error) {
	ctx, span := s.tracer.Start(ctx, "tuition.delete_batch")
	defer span.End()

	removed, err := s.repo.DeleteBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "batch not found")
			return dto.TuitionBatchDeleteResponse{}, ErrBatchNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return dto.TuitionBatchDeleteResponse{}, err
	}

	observability.TuitionRecordsRemoved().Add(float64(removed))
	span.SetStatus(codes.Ok, "deleted")
	recordActivity(ctx, s.activity, actor, "tuition_batch.deleted", "tuition_batch", &batchID, map[string]interface{}{
		"records_removed": removed,
	})

	return dto.TuitionBatchDeleteResponse{ID: batchID, RecordsRemoved: removed}, nil
}

func (s *tuitionService) History(ctx context.Context, studentID uuid.UUID) ([]dto.StudentTuitionResponse, error) {
	rows, err := s.repo.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.StudentTuitionResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, dto.StudentTuitionResponse{
			ID:         row.ID,
			BatchID:    row.BatchID,
			BatchTitle: row.BatchTitle,
			Amount:     row.Amount,
			ClassID:    row.ClassID,
			ClassName:  row.ClassName,
			Status:     string(row.Status),
			PaidAt:     row.PaidAt,
			CreatedAt:  row.CreatedAt,
		})
	}
	return responses, nil
}

// publish is best-effort: a broker outage never fails a billing write.
func (s *tuitionService) publish(ctx context.Context, eventType string, entityID uuid.UUID, payload map[string]interface{}) {
	event := events.Event{
		Type:       eventType,
		EntityID:   entityID.String(),
		Payload:    payload,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Str("entity_id", event.EntityID).Msg("failed to publish tuition event")
	}
}
