package service

import (
	"context"
	"errors"
	"strings"
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
	"github.com/noah-isme/chemclass-api/internal/repository"
)

// ExamService manages exams, their class links and grade sheets.
type ExamService interface {
	ListByClass(ctx context.Context, classID uuid.UUID) ([]dto.ExamResponse, error)
	Create(ctx context.Context, payload dto.ExamRequest, actor ActivityActor) (dto.ExamResponse, error)
	Update(ctx context.Context, id uuid.UUID, payload dto.ExamRequest, actor ActivityActor) (dto.ExamResponse, error)
	Delete(ctx context.Context, id uuid.UUID, actor ActivityActor) error
	GradeSheet(ctx context.Context, examID uuid.UUID) (dto.GradeSheetResponse, error)
	SaveGrades(ctx context.Context, examID uuid.UUID, payload dto.SaveGradesRequest, actor ActivityActor) (dto.SaveGradesResponse, error)
	StudentGrades(ctx context.Context, studentID uuid.UUID) ([]dto.StudentGradeResponse, error)
}

type examService struct {
	repo      repository.ExamRepository
	classes   repository.ClassRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewExamService constructs the exam service.
func NewExamService(repo repository.ExamRepository, classes repository.ClassRepository, validator *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) ExamService {
	return &examService{
		repo:      repo,
		classes:   classes,
		validator: validator,
		activity:  activity,
		logger:    logger.With().Str("component", "exam_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/chemclass-api/internal/service/exam"),
		now:       time.Now,
	}
}

func (s *examService) ListByClass(ctx context.Context, classID uuid.UUID) ([]dto.ExamResponse, error) {
	if _, err := s.classes.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	exams, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(exams))
	for _, exam := range exams {
		ids = append(ids, exam.ID)
	}
	links, err := s.repo.ClassIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ExamResponse, 0, len(exams))
	for _, exam := range exams {
		responses = append(responses, dto.NewExamResponse(exam.Exam, links[exam.ID], exam.GradedCount))
	}
	return responses, nil
}

func (s *examService) Create(ctx context.Context, payload dto.ExamRequest, actor ActivityActor) (dto.ExamResponse, error) {
	exam, err := s.examFromRequest(&payload)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	if err := s.repo.Create(ctx, &exam, payload.ClassIDs); err != nil {
		if errors.Is(err, repository.ErrUnknownReference) {
			return dto.ExamResponse{}, ErrUnknownClass
		}
		s.logger.Error().Err(err).Msg("failed to create exam")
		return dto.ExamResponse{}, err
	}

	recordActivity(ctx, s.activity, actor, "exam.created", "exam", &exam.ID, map[string]interface{}{
		"title":   exam.Title,
		"classes": len(payload.ClassIDs),
	})
	return s.response(ctx, exam, 0)
}

func (s *examService) Update(ctx context.Context, id uuid.UUID, payload dto.ExamRequest, actor ActivityActor) (dto.ExamResponse, error) {
	exam, err := s.examFromRequest(&payload)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	updates := map[string]interface{}{
		"title":     exam.Title,
		"exam_date": exam.ExamDate,
	}
	if payload.MaxScore != nil {
		updates["max_score"] = exam.MaxScore
	}
	updated, err := s.repo.Update(ctx, id, updates, payload.ClassIDs)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.ExamResponse{}, ErrExamNotFound
		case errors.Is(err, repository.ErrUnknownReference):
			return dto.ExamResponse{}, ErrUnknownClass
		}
		s.logger.Error().Err(err).Str("exam_id", id.String()).Msg("failed to update exam")
		return dto.ExamResponse{}, err
	}

	recordActivity(ctx, s.activity, actor, "exam.updated", "exam", &id, map[string]interface{}{
		"title": updated.Title,
	})
	return s.response(ctx, updated, 0)
}

func (s *examService) Delete(ctx context.Context, id uuid.UUID, actor ActivityActor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExamNotFound
		}
		return err
	}
	recordActivity(ctx, s.activity, actor, "exam.deleted", "exam", &id, nil)
	return nil
}

func (s *examService) GradeSheet(ctx context.Context, examID uuid.UUID) (dto.GradeSheetResponse, error) {
	exam, err := s.repo.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeSheetResponse{}, ErrExamNotFound
		}
		return dto.GradeSheetResponse{}, err
	}

	rows, err := s.repo.GradeSheet(ctx, examID)
	if err != nil {
		return dto.GradeSheetResponse{}, err
	}

	var graded int64
	entries := make([]dto.GradeSheetEntry, 0, len(rows))
	for _, row := range rows {
		if row.Score != nil {
			graded++
		}
		entries = append(entries, dto.GradeSheetEntry{
			StudentID: row.StudentID,
			FullName:  row.FullName,
			Email:     row.Email,
			Score:     row.Score,
			Comment:   row.Comment,
		})
	}

	response, err := s.response(ctx, exam, graded)
	if err != nil {
		return dto.GradeSheetResponse{}, err
	}
	return dto.GradeSheetResponse{Exam: response, Grades: entries}, nil
}

// SaveGrades checks every score against the exam maximum before writing anything.
func (s *examService) SaveGrades(ctx context.Context, examID uuid.UUID, payload dto.SaveGradesRequest, actor ActivityActor) (dto.SaveGradesResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grades.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("exam.id", examID.String()),
		attribute.Int("grades.entries", len(payload.Grades)),
	)

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.SaveGradesResponse{}, err
	}

	exam, err := s.repo.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "exam not found")
			return dto.SaveGradesResponse{}, ErrExamNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "exam lookup failed")
		return dto.SaveGradesResponse{}, err
	}

	entries := make([]repository.GradeUpsert, 0, len(payload.Grades))
	for _, grade := range payload.Grades {
		if grade.Score != nil && (*grade.Score < 0 || *grade.Score > exam.MaxScore) {
			span.SetStatus(codes.Error, "score out of range")
			return dto.SaveGradesResponse{}, ErrScoreOutOfRange
		}
		entries = append(entries, repository.GradeUpsert{
			StudentID: grade.StudentID,
			Score:     grade.Score,
			Comment:   sanitizeText(grade.Comment),
		})
	}

	saved, removed, err := s.repo.SaveGrades(ctx, examID, entries, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			span.SetStatus(codes.Error, "exam not found")
			return dto.SaveGradesResponse{}, ErrExamNotFound
		case errors.Is(err, repository.ErrUnknownReference):
			span.SetStatus(codes.Error, "unknown student")
			return dto.SaveGradesResponse{}, ErrUnknownStudent
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		s.logger.Error().Err(err).Str("exam_id", examID.String()).Msg("failed to save grades")
		return dto.SaveGradesResponse{}, err
	}

	span.SetAttributes(attribute.Int("grades.saved", saved), attribute.Int("grades.removed", removed))
	span.SetStatus(codes.Ok, "saved")
	recordActivity(ctx, s.activity, actor, "grades.saved", "exam", &examID, map[string]interface{}{
		"saved":   saved,
		"removed": removed,
	})
	return dto.SaveGradesResponse{Saved: saved, Removed: removed}, nil
}

func (s *examService) StudentGrades(ctx context.Context, studentID uuid.UUID) ([]dto.StudentGradeResponse, error) {
	rows, err := s.repo.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	names, err := s.repo.ClassNamesForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	byExam := make(map[uuid.UUID][]string)
	for _, name := range names {
		byExam[name.ExamID] = append(byExam[name.ExamID], name.ClassName)
	}

	responses := make([]dto.StudentGradeResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, dto.StudentGradeResponse{
			ExamID:     row.ExamID,
			Title:      row.Title,
			ExamDate:   row.ExamDate.UTC().Format(dto.DateLayout),
			MaxScore:   row.MaxScore,
			Score:      row.Score,
			Comment:    row.Comment,
			ClassNames: strings.Join(byExam[row.ExamID], ", "),
		})
	}
	return responses, nil
}

func (s *examService) examFromRequest(payload *dto.ExamRequest) (models.Exam, error) {
	payload.Title = sanitizeText(payload.Title)
	if err := s.validator.Struct(payload); err != nil {
		return models.Exam{}, err
	}

	date, err := time.Parse(dto.DateLayout, payload.ExamDate)
	if err != nil {
		return models.Exam{}, validationError("exam_date must use the %s layout", dto.DateLayout)
	}

	exam := models.Exam{
		Title:    payload.Title,
		ExamDate: date.UTC(),
		MaxScore: models.DefaultExamMaxScore,
	}
	if payload.MaxScore != nil {
		exam.MaxScore = *payload.MaxScore
	}
	return exam, nil
}

func (s *examService) response(ctx context.Context, exam models.Exam, graded int64) (dto.ExamResponse, error) {
	links, err := s.repo.ClassIDs(ctx, []uuid.UUID{exam.ID})
	if err != nil {
		return dto.ExamResponse{}, err
	}
	return dto.NewExamResponse(exam, links[exam.ID], graded), nil
}
