package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/models"
)

func TestTuitionRepositoryCreateBatchSnapshotsEnrollment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTuitionRepository(db)
	ctx := context.Background()
	chem := createClass(t, db, "Chemistry", 150000)
	for _, name := range []string{"Ana", "Budi", "Cici"} {
		student := createStudent(t, db, name, name+"@example.com")
		enroll(t, db, student.ID, chem)
	}

	batch := models.TuitionBatch{ClassID: chem.ID, Title: "July", Amount: 150000}
	created, err := repo.CreateBatch(ctx, &batch)
	require.NoError(t, err)
	require.Equal(t, int64(3), created)

	require.NoError(t, db.Model(&models.Class{}).Where("id = ?", chem.ID).Update("fee", 999).Error)
	stored, err := repo.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, int64(150000), stored.Amount, "batch amount is a snapshot")

	var unpaid int64
	require.NoError(t, db.Model(&models.TuitionRecord{}).Where("batch_id = ? AND status = ?", batch.ID, models.TuitionStatusUnpaid).Count(&unpaid).Error)
	require.Equal(t, int64(3), unpaid)

	batches, err := repo.ListBatches(ctx, chem.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, int64(3), batches[0].StudentCount)
}

func TestTuitionRepositoryCreateBatchUnknownClass(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTuitionRepository(db)

	batch := models.TuitionBatch{ClassID: uuid.New(), Title: "July", Amount: 10}
	_, err := repo.CreateBatch(context.Background(), &batch)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var count int64
	require.NoError(t, db.Model(&models.TuitionBatch{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestTuitionRepositoryCreateBatchRollsBackWhenRecordInsertFails(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTuitionRepository(db)
	chem := createClass(t, db, "Chemistry", 150000)
	for _, name := range []string{"Ana", "Budi"} {
		student := createStudent(t, db, name, name+"@example.com")
		enroll(t, db, student.ID, chem)
	}
	require.NoError(t, db.Exec(`CREATE TRIGGER reject_tuition_records BEFORE INSERT ON tuitions
BEGIN SELECT RAISE(ABORT, 'record insert rejected'); END`).Error)

	batch := models.TuitionBatch{ClassID: chem.ID, Title: "July", Amount: 150000}
	created, err := repo.CreateBatch(context.Background(), &batch)
	require.ErrorContains(t, err, "record insert rejected")
	require.Zero(t, created)

	var batches, records int64
	require.NoError(t, db.Model(&models.TuitionBatch{}).Count(&batches).Error)
	require.NoError(t, db.Model(&models.TuitionRecord{}).Count(&records).Error)
	require.Zero(t, batches)
	require.Zero(t, records)
}

func TestTuitionRepositorySyncIsIdempotentAndFollowsEnrollment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTuitionRepository(db)
	ctx := context.Background()
	chem := createClass(t, db, "Chemistry", 1000)

	zed := createStudent(t, db, "Zed", "zed@example.com")
	amy := createStudent(t, db, "Amy", "amy@example.com")
	enroll(t, db, zed.ID, chem)
	enroll(t, db, amy.ID, chem)

	batch := models.TuitionBatch{ClassID: chem.ID, Title: "August", Amount: 1000}
	_, err := repo.CreateBatch(ctx, &batch)
	require.NoError(t, err)

	_, first, result, err := repo.SyncAndList(ctx, batch.ID)
	require.NoError(t, err)
	require.Zero(t, result.Created)
	require.Zero(t, result.Removed)
	require.Len(t, first, 2)
	require.Equal(t, "Amy", first[0].FullName)
	require.Equal(t, "Zed", first[1].FullName)

	_, second, result, err := repo.SyncAndList(ctx, batch.ID)
	require.NoError(t, err)
	require.Zero(t, result.Created)
	require.Equal(t, first, second, "repeated sync yields the same roster")

	late := createStudent(t, db, "Budi", "budi@example.com")
	enroll(t, db, late.ID, chem)
	require.NoError(t, db.Where("student_id = ? AND class_id = ?", zed.ID, chem.ID).Delete(&models.Enrollment{}).Error)

	_, roster, result, err := repo.SyncAndList(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Created)
	require.Equal(t, int64(1), result.Removed)
	require.Len(t, roster, 2)
	require.Equal(t, "Amy", roster[0].FullName)
	require.Equal(t, "Budi", roster[1].FullName)
	require.Equal(t, models.TuitionStatusUnpaid, roster[1].Status)
}

func TestTuitionRepositorySyncOrdersByteWise(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTuitionRepository(db)
	chem := createClass(t, db, "Chemistry", 1000)
	for _, name := range []string{"bella", "Zara", "Adam"} {
		student := createStudent(t, db, name, name+"@example.com")
		enroll(t, db, student.ID, chem)
	}
	batch := models.TuitionBatch{ClassID: chem.ID, Title: "September", Amount: 1000}
	_, err := repo.CreateBatch(context.Background(), &batch)
	require.NoError(t, err)

	_, roster, _, err := repo.SyncAndList(context.Background(), batch.ID)
	require.NoError(t, err)
	names := []string{roster[0].FullName, roster[1].FullName, roster[2].FullName}
	require.Equal(t, []string{"Adam", "Zara", "bella"}, names)
}

func TestTuitionRepositorySyncUnknownBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTuitionRepository(db)

	_, _, _, err := repo.SyncAndList(context.Background(), uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTuitionRepositoryStatusTransitions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTuitionRepository(db)
	ctx := context.Background()
	chem := createClass(t, db, "Chemistry", 1000)
	student := createStudent(t, db, "Ana", "ana@example.com")
	enroll(t, db, student.ID, chem)
	batch := models.TuitionBatch{ClassID: chem.ID, Title: "October", Amount: 1000}
	_, err := repo.CreateBatch(ctx, &batch)
	require.NoError(t, err)

	var record models.TuitionRecord
	require.NoError(t, db.First(&record, "batch_id = ?", batch.ID).Error)

	paidAt := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	paid, err := repo.MarkPaid(ctx, record.ID, paidAt)
	require.NoError(t, err)
	require.True(t, paid.IsPaid())
	require.NotNil(t, paid.PaidAt)
	require.True(t, paid.PaidAt.Equal(paidAt))

	unpaid, err := repo.MarkUnpaid(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, models.TuitionStatusUnpaid, unpaid.Status)
	require.Nil(t, unpaid.PaidAt)

	_, err = repo.MarkPaid(ctx, uuid.New(), paidAt)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.MarkUnpaid(ctx, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTuitionRepositoryDeleteBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTuitionRepository(db)
	ctx := context.Background()
	chem := createClass(t, db, "Chemistry", 1000)
	student := createStudent(t, db, "Ana", "ana@example.com")
	enroll(t, db, student.ID, chem)
	batch := models.TuitionBatch{ClassID: chem.ID, Title: "November", Amount: 1000}
	_, err := repo.CreateBatch(ctx, &batch)
	require.NoError(t, err)

	_, err = repo.DeleteBatch(ctx, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	var remaining int64
	require.NoError(t, db.Model(&models.TuitionRecord{}).Count(&remaining).Error)
	require.Equal(t, int64(1), remaining)

	removed, err := repo.DeleteBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	require.NoError(t, db.Model(&models.TuitionRecord{}).Count(&remaining).Error)
	require.Zero(t, remaining)
}

func TestTuitionRepositoryListForStudent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTuitionRepository(db)
	ctx := context.Background()
	chem := createClass(t, db, "Chemistry", 1000)
	student := createStudent(t, db, "Ana", "ana@example.com")
	enroll(t, db, student.ID, chem)

	first := models.TuitionBatch{ClassID: chem.ID, Title: "First", Amount: 1000, CreatedAt: time.Now().Add(-time.Hour)}
	second := models.TuitionBatch{ClassID: chem.ID, Title: "Second", Amount: 1200}
	_, err := repo.CreateBatch(ctx, &first)
	require.NoError(t, err)
	_, err = repo.CreateBatch(ctx, &second)
	require.NoError(t, err)

	rows, err := repo.ListForStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Second", rows[0].BatchTitle)
	require.Equal(t, int64(1200), rows[0].Amount)
	require.Equal(t, "Chemistry", rows[0].ClassName)
}
