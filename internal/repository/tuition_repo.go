package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// TuitionBatchWithCount is a batch together with the number of records under it.
type TuitionBatchWithCount struct {
	models.TuitionBatch
	StudentCount int64
}

// TuitionRosterRow is one reconciled record joined with its student.
type TuitionRosterRow struct {
	ID        uuid.UUID
	BatchID   uuid.UUID
	StudentID uuid.UUID
	FullName  string
	Email     string
	Status    models.TuitionStatus
	PaidAt    *time.Time
}

// StudentTuitionRow is a record in a student's billing history.
type StudentTuitionRow struct {
	ID         uuid.UUID
	BatchID    uuid.UUID
	BatchTitle string
	Amount     int64
	ClassID    uuid.UUID
	ClassName  string
	Status     models.TuitionStatus
	PaidAt     *time.Time
	CreatedAt  time.Time
}

// ReconcileResult reports how many records a sync created and removed.
type ReconcileResult struct {
	Created int64
	Removed int64
}

// TuitionRepository keeps tuition records consistent with class enrollment.
type TuitionRepository interface {
	CreateBatch(ctx context.Context, batch *models.TuitionBatch) (int64, error)
	GetBatch(ctx context.Context, id uuid.UUID) (models.TuitionBatch, error)
	ListBatches(ctx context.Context, classID uuid.UUID) ([]TuitionBatchWithCount, error)
	SyncAndList(ctx context.Context, batchID uuid.UUID) (models.TuitionBatch, []TuitionRosterRow, ReconcileResult, error)
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (models.TuitionRecord, error)
	MarkUnpaid(ctx context.Context, id uuid.UUID) (models.TuitionRecord, error)
	DeleteBatch(ctx context.Context, id uuid.UUID) (int64, error)
	ListForStudent(ctx context.Context, studentID uuid.UUID) ([]StudentTuitionRow, error)
}

type tuitionRepository struct {
	db *gorm.DB
}

// NewTuitionRepository constructs the tuition repository.
func NewTuitionRepository(db *gorm.DB) TuitionRepository {
	return &tuitionRepository{db: db}
}

// CreateBatch inserts the batch and one unpaid record per student enrolled at this moment.
// It returns the number of records generated. Nothing is persisted when any insert fails.
func (r *tuitionRepository) CreateBatch(ctx context.Context, batch *models.TuitionBatch) (int64, error) {
	var created int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var class models.Class
		if err := tx.Select("id").First(&class, "id = ?", batch.ClassID).Error; err != nil {
			return err
		}

		if err := tx.Create(batch).Error; err != nil {
			return err
		}

		var studentIDs []uuid.UUID
		if err := tx.Model(&models.Enrollment{}).
			Where("class_id = ?", batch.ClassID).
			Order("student_id").
			Pluck("student_id", &studentIDs).Error; err != nil {
			return err
		}
		if len(studentIDs) == 0 {
			return nil
		}

		records := newUnpaidRecords(batch.ID, studentIDs)
		if err := tx.Create(&records).Error; err != nil {
			return err
		}
		created = int64(len(records))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (r *tuitionRepository) GetBatch(ctx context.Context, id uuid.UUID) (models.TuitionBatch, error) {
	var batch models.TuitionBatch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		return models.TuitionBatch{}, err
	}
	return batch, nil
}

func (r *tuitionRepository) ListBatches(ctx context.Context, classID uuid.UUID) ([]TuitionBatchWithCount, error) {
	var rows []TuitionBatchWithCount
	err := r.db.WithContext(ctx).
		Table("tuition_batches").
		Select("tuition_batches.*, (SELECT COUNT(*) FROM tuitions WHERE tuitions.batch_id = tuition_batches.id) AS student_count").
		Where("tuition_batches.class_id = ?", classID).
		Order("tuition_batches.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SyncAndList reconciles the batch against the enrollment table and returns the roster ordered by name.
// Students enrolled without a record gain an unpaid one; records of students who left are removed.
func (r *tuitionRepository) SyncAndList(ctx context.Context, batchID uuid.UUID) (models.TuitionBatch, []TuitionRosterRow, ReconcileResult, error) {
	var (
		batch  models.TuitionBatch
		rows   []TuitionRosterRow
		result ReconcileResult
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&batch, "id = ?", batchID).Error; err != nil {
			return err
		}

		var missing []uuid.UUID
		if err := tx.Model(&models.Enrollment{}).
			Where("class_id = ?", batch.ClassID).
			Where("student_id NOT IN (?)", tx.Model(&models.TuitionRecord{}).Select("student_id").Where("batch_id = ?", batch.ID)).
			Order("student_id").
			Pluck("student_id", &missing).Error; err != nil {
			return err
		}

		if len(missing) > 0 {
			records := newUnpaidRecords(batch.ID, missing)
			insert := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&records)
			if insert.Error != nil {
				return insert.Error
			}
			result.Created = insert.RowsAffected
		}

		removal := tx.Where("batch_id = ?", batch.ID).
			Where("student_id NOT IN (?)", tx.Model(&models.Enrollment{}).Select("student_id").Where("class_id = ?", batch.ClassID)).
			Delete(&models.TuitionRecord{})
		if removal.Error != nil {
			return removal.Error
		}
		result.Removed = removal.RowsAffected

		return tx.Table("tuitions").
			Select("tuitions.id, tuitions.batch_id, tuitions.student_id, users.full_name, users.email, tuitions.status, tuitions.paid_at").
			Joins("JOIN users ON users.id = tuitions.student_id").
			Where("tuitions.batch_id = ?", batch.ID).
			Order("users.full_name ASC").
			Order("tuitions.id ASC").
			Scan(&rows).Error
	})
	if err != nil {
		return models.TuitionBatch{}, nil, ReconcileResult{}, err
	}

	// Byte-wise ordering regardless of the database collation.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].FullName < rows[j].FullName
	})

	return batch, rows, result, nil
}

func (r *tuitionRepository) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (models.TuitionRecord, error) {
	var record models.TuitionRecord
	record.MarkPaid(at)
	return r.transition(ctx, id, record)
}

func (r *tuitionRepository) MarkUnpaid(ctx context.Context, id uuid.UUID) (models.TuitionRecord, error) {
	var record models.TuitionRecord
	record.MarkUnpaid()
	return r.transition(ctx, id, record)
}

func (r *tuitionRepository) transition(ctx context.Context, id uuid.UUID, target models.TuitionRecord) (models.TuitionRecord, error) {
	update := r.db.WithContext(ctx).
		Model(&models.TuitionRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  target.Status,
			"paid_at": target.PaidAt,
		})
	if update.Error != nil {
		return models.TuitionRecord{}, update.Error
	}
	if update.RowsAffected == 0 {
		return models.TuitionRecord{}, gorm.ErrRecordNotFound
	}

	var record models.TuitionRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return models.TuitionRecord{}, err
	}
	return record, nil
}

// DeleteBatch removes the batch and its records atomically. The affected-row count of the batch
// delete decides existence, so an unknown id rolls back without touching any record.
func (r *tuitionRepository) DeleteBatch(ctx context.Context, id uuid.UUID) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		records := tx.Where("batch_id = ?", id).Delete(&models.TuitionRecord{})
		if records.Error != nil {
			return records.Error
		}

		batch := tx.Where("id = ?", id).Delete(&models.TuitionBatch{})
		if batch.Error != nil {
			return batch.Error
		}
		if batch.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		removed = records.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *tuitionRepository) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]StudentTuitionRow, error) {
	var rows []StudentTuitionRow
	err := r.db.WithContext(ctx).
		Table("tuitions").
		Select(`tuitions.id, tuitions.batch_id, tuition_batches.title AS batch_title, tuition_batches.amount,
			tuition_batches.class_id, classes.name AS class_name, tuitions.status, tuitions.paid_at,
			tuition_batches.created_at`).
		Joins("JOIN tuition_batches ON tuition_batches.id = tuitions.batch_id").
		Joins("JOIN classes ON classes.id = tuition_batches.class_id").
		Where("tuitions.student_id = ?", studentID).
		Order("tuition_batches.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func newUnpaidRecords(batchID uuid.UUID, studentIDs []uuid.UUID) []models.TuitionRecord {
	records := make([]models.TuitionRecord, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		records = append(records, models.TuitionRecord{
			BatchID:   batchID,
			StudentID: studentID,
			Status:    models.TuitionStatusUnpaid,
		})
	}
	return records
}
