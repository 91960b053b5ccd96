package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/models"
	"github.com/noah-isme/chemclass-api/internal/repository"
	"github.com/noah-isme/chemclass-api/pkg/events"
)

func newTuitionTestService(t *testing.T, publisher events.Publisher) (TuitionService, *gorm.DB, *memoryActivityRepo) {
	t.Helper()
	db := setupServiceDB(t)
	activityRepo := &memoryActivityRepo{}
	svc := NewTuitionService(
		repository.NewTuitionRepository(db),
		repository.NewClassRepository(db),
		testValidator(),
		publisher,
		NewActivityService(activityRepo, testLogger()),
		testLogger(),
	)
	return svc, db, activityRepo
}

func TestTuitionServiceCreateBatchValidates(t *testing.T) {
	svc, _, _ := newTuitionTestService(t, nil)
	ctx := context.Background()

	_, err := svc.CreateBatch(ctx, dto.TuitionBatchCreateRequest{ClassID: uuid.New(), Title: "Jan"}, ActivityActor{})
	require.True(t, IsValidation(err), "missing amount must be a validation error")

	_, err = svc.CreateBatch(ctx, dto.TuitionBatchCreateRequest{ClassID: uuid.New(), Title: "<b></b>", Amount: int64Ptr(10)}, ActivityActor{})
	require.True(t, IsValidation(err), "title that sanitizes to empty must be rejected")

	_, err = svc.CreateBatch(ctx, dto.TuitionBatchCreateRequest{ClassID: uuid.New(), Title: "Jan", Amount: int64Ptr(-1)}, ActivityActor{})
	require.True(t, IsValidation(err))

	_, err = svc.CreateBatch(ctx, dto.TuitionBatchCreateRequest{ClassID: uuid.New(), Title: "Jan", Amount: int64Ptr(10)}, ActivityActor{})
	require.ErrorIs(t, err, ErrClassNotFound)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTuitionServiceWorkflowPublishesEvents(t *testing.T) {
	publisher := &recordingPublisher{}
	svc, db, activity := newTuitionTestService(t, publisher)
	ctx := context.Background()

	class := seedClass(t, db, "Chemistry", 1000)
	ana := seedStudent(t, db, "Ana", "ana@example.com")
	seedEnrollment(t, db, ana.ID, class.ID)

	actor := ActivityActor{ID: uuid.New(), Role: "ADMIN"}
	batch, err := svc.CreateBatch(ctx, dto.TuitionBatchCreateRequest{ClassID: class.ID, Title: " January ", Amount: int64Ptr(1500)}, actor)
	require.NoError(t, err)
	require.Equal(t, "January", batch.Title)
	require.Equal(t, int64(1500), batch.Amount)
	require.Equal(t, int64(1), batch.StudentCount)

	budi := seedStudent(t, db, "Budi", "budi@example.com")
	seedEnrollment(t, db, budi.ID, class.ID)

	roster, err := svc.SyncAndList(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, roster.Records, 2)
	require.Equal(t, "Ana", roster.Records[0].FullName)
	require.Equal(t, "Budi", roster.Records[1].FullName)
	require.Equal(t, dto.TuitionRosterSummary{Paid: 0, Unpaid: 2}, roster.Summary)

	paid, err := svc.MarkPaid(ctx, roster.Records[0].ID, actor)
	require.NoError(t, err)
	require.Equal(t, string(models.TuitionStatusPaid), paid.Status)
	require.NotNil(t, paid.PaidAt)

	unpaid, err := svc.MarkUnpaid(ctx, roster.Records[0].ID, actor)
	require.NoError(t, err)
	require.Equal(t, string(models.TuitionStatusUnpaid), unpaid.Status)
	require.Nil(t, unpaid.PaidAt)

	require.Equal(t, []string{events.TuitionBatchCreated, events.TuitionRecordPaid, events.TuitionRecordUnpaid}, publisher.types())
	require.Equal(t, []string{"tuition_batch.created", "tuition.paid", "tuition.unpaid"}, activity.actions())

	history, err := svc.History(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "Chemistry", history[0].ClassName)
	require.Equal(t, int64(1500), history[0].Amount)

	batches, err := svc.ListBatches(ctx, class.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, int64(2), batches[0].StudentCount)

	deleted, err := svc.DeleteBatch(ctx, batch.ID, actor)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted.RecordsRemoved)

	_, err = svc.DeleteBatch(ctx, batch.ID, actor)
	require.ErrorIs(t, err, ErrBatchNotFound)
	_, err = svc.SyncAndList(ctx, batch.ID)
	require.ErrorIs(t, err, ErrBatchNotFound)
}

func TestTuitionServicePublishFailureDoesNotFailWrite(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker down")}
	svc, db, _ := newTuitionTestService(t, publisher)

	class := seedClass(t, db, "Physics", 500)
	batch, err := svc.CreateBatch(context.Background(), dto.TuitionBatchCreateRequest{ClassID: class.ID, Title: "Feb", Amount: int64Ptr(0)}, ActivityActor{})
	require.NoError(t, err)
	require.Equal(t, int64(0), batch.StudentCount)
	require.Empty(t, publisher.types())
}

func TestTuitionServiceUnknownRecord(t *testing.T) {
	svc, _, _ := newTuitionTestService(t, nil)

	_, err := svc.MarkPaid(context.Background(), uuid.New(), ActivityActor{})
	require.ErrorIs(t, err, ErrTuitionNotFound)
	_, err = svc.MarkUnpaid(context.Background(), uuid.New(), ActivityActor{})
	require.ErrorIs(t, err, ErrTuitionNotFound)
	_, err = svc.ListBatches(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestTuitionServiceUsesInjectedClock(t *testing.T) {
	svc, db, _ := newTuitionTestService(t, nil)
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.(*tuitionService).now = func() time.Time { return fixed }

	class := seedClass(t, db, "Biology", 100)
	student := seedStudent(t, db, "Cici", "cici@example.com")
	seedEnrollment(t, db, student.ID, class.ID)
	batch, err := svc.CreateBatch(context.Background(), dto.TuitionBatchCreateRequest{ClassID: class.ID, Title: "Mar", Amount: int64Ptr(100)}, ActivityActor{})
	require.NoError(t, err)

	roster, err := svc.SyncAndList(context.Background(), batch.ID)
	require.NoError(t, err)
	paid, err := svc.MarkPaid(context.Background(), roster.Records[0].ID, ActivityActor{})
	require.NoError(t, err)
	require.True(t, fixed.Equal(*paid.PaidAt))
}
