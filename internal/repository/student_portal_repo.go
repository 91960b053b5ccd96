package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// Membership sources a student can be related to a class through.
const (
	SourceEnrollment = "enrollment"
	SourceGroup      = "group"
	SourceBilling    = "billing"
)

// MembershipRow relates a student to a class through one source.
type MembershipRow struct {
	ClassID uuid.UUID
	Source  string
}

// StudentGroupRow is a group the student belongs to.
type StudentGroupRow struct {
	GroupID uuid.UUID
	ClassID uuid.UUID
	Name    string
}

// StudentTuitionTotals sums the batch amounts behind a student's tuition records.
type StudentTuitionTotals struct {
	Billed int64
	Unpaid int64
}

// ClassmateRow is a student related to a class through any source.
type ClassmateRow struct {
	ClassID   uuid.UUID
	StudentID uuid.UUID
	FullName  string
}

// StudentPortalRepository answers the read-only questions of the student area.
// Every call recomputes from the current tables.
type StudentPortalRepository interface {
	Memberships(ctx context.Context, studentID uuid.UUID) ([]MembershipRow, error)
	Classes(ctx context.Context, classIDs []uuid.UUID) ([]ClassWithStats, error)
	Groups(ctx context.Context, classIDs []uuid.UUID) ([]models.Group, error)
	StudentGroups(ctx context.Context, studentID uuid.UUID) ([]StudentGroupRow, error)
	Classmates(ctx context.Context, studentID uuid.UUID, classIDs []uuid.UUID) ([]ClassmateRow, error)
	TuitionTotals(ctx context.Context, studentID uuid.UUID, classIDs []uuid.UUID) (StudentTuitionTotals, error)
}

type studentPortalRepository struct {
	db *gorm.DB
}

// NewStudentPortalRepository constructs the student portal repository.
func NewStudentPortalRepository(db *gorm.DB) StudentPortalRepository {
	return &studentPortalRepository{db: db}
}

const membershipUnion = `
SELECT class_enrollments.class_id AS class_id, '` + SourceEnrollment + `' AS source, class_enrollments.student_id AS student_id
FROM class_enrollments
UNION
SELECT class_groups.class_id, '` + SourceGroup + `', student_groups.student_id
FROM student_groups JOIN class_groups ON class_groups.id = student_groups.group_id
UNION
SELECT tuition_batches.class_id, '` + SourceBilling + `', tuitions.student_id
FROM tuitions JOIN tuition_batches ON tuition_batches.id = tuitions.batch_id`

func (r *studentPortalRepository) Memberships(ctx context.Context, studentID uuid.UUID) ([]MembershipRow, error) {
	query := `SELECT DISTINCT m.class_id, m.source FROM (` + membershipUnion + `) m WHERE m.student_id = ? ORDER BY m.class_id, m.source`

	var rows []MembershipRow
	if err := r.db.WithContext(ctx).Raw(query, studentID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *studentPortalRepository) Classes(ctx context.Context, classIDs []uuid.UUID) ([]ClassWithStats, error) {
	ids := uniqueIDs(classIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	return r.classes(r.db.WithContext(ctx).Where("classes.id IN ?", ids))
}

func (r *studentPortalRepository) classes(scope *gorm.DB) ([]ClassWithStats, error) {
	var rows []ClassWithStats
	err := scope.
		Table("classes").
		Select(`classes.*, COALESCE(subjects.name, '') AS subject_name,
			(SELECT COUNT(*) FROM class_enrollments WHERE class_enrollments.class_id = classes.id) AS student_count`).
		Joins("LEFT JOIN subjects ON subjects.id = classes.subject_id").
		Order("classes.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *studentPortalRepository) Groups(ctx context.Context, classIDs []uuid.UUID) ([]models.Group, error) {
	ids := uniqueIDs(classIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	var groups []models.Group
	if err := r.db.WithContext(ctx).Where("class_id IN ?", ids).Order("name ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *studentPortalRepository) StudentGroups(ctx context.Context, studentID uuid.UUID) ([]StudentGroupRow, error) {
	var rows []StudentGroupRow
	err := r.db.WithContext(ctx).
		Table("student_groups").
		Select("class_groups.id AS group_id, class_groups.class_id, class_groups.name").
		Joins("JOIN class_groups ON class_groups.id = student_groups.group_id").
		Where("student_groups.student_id = ?", studentID).
		Order("class_groups.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Classmates lists, per class, every other student related to it through any membership source.
func (r *studentPortalRepository) Classmates(ctx context.Context, studentID uuid.UUID, classIDs []uuid.UUID) ([]ClassmateRow, error) {
	ids := uniqueIDs(classIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT DISTINCT m.class_id, users.id AS student_id, users.full_name
FROM (` + membershipUnion + `) m
JOIN users ON users.id = m.student_id
WHERE m.class_id IN ? AND m.student_id <> ? AND users.role = ?
ORDER BY users.full_name ASC`

	var rows []ClassmateRow
	if err := r.db.WithContext(ctx).Raw(query, ids, studentID, models.RoleStudent).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// TuitionTotals sums, over the student's records in the given classes, every batch amount
// and the amounts still unpaid.
func (r *studentPortalRepository) TuitionTotals(ctx context.Context, studentID uuid.UUID, classIDs []uuid.UUID) (StudentTuitionTotals, error) {
	var totals StudentTuitionTotals
	ids := uniqueIDs(classIDs)
	if len(ids) == 0 {
		return totals, nil
	}
	err := r.db.WithContext(ctx).
		Table("tuitions").
		Select(`CAST(COALESCE(SUM(tuition_batches.amount), 0) AS BIGINT) AS billed,
			CAST(COALESCE(SUM(CASE WHEN tuitions.status = ? THEN tuition_batches.amount ELSE 0 END), 0) AS BIGINT) AS unpaid`, models.TuitionStatusUnpaid).
		Joins("JOIN tuition_batches ON tuition_batches.id = tuitions.batch_id").
		Where("tuitions.student_id = ? AND tuition_batches.class_id IN ?", studentID, ids).
		Scan(&totals).Error
	if err != nil {
		return StudentTuitionTotals{}, err
	}
	return totals, nil
}
