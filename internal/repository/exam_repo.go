package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// ExamWithStats is an exam with the number of grades recorded for it.
type ExamWithStats struct {
	models.Exam
	GradedCount int64
}

// GradeUpsert is one entry of a bulk grade save. A nil Score removes the grade.
type GradeUpsert struct {
	StudentID uuid.UUID
	Score     *float64
	Comment   string
}

// GradeSheetRow is a roster student with their grade, if any.
type GradeSheetRow struct {
	StudentID uuid.UUID
	FullName  string
	Email     string
	Score     *float64
	Comment   string
}

// StudentGradeRow is an exam visible to a student with their grade, if any.
type StudentGradeRow struct {
	ExamID   uuid.UUID
	Title    string
	ExamDate time.Time
	MaxScore float64
	Score    *float64
	Comment  string
}

// ExamClassNameRow maps an exam to the name of a linked class.
type ExamClassNameRow struct {
	ExamID    uuid.UUID
	ClassName string
}

// ExamRepository persists exams, their class links and grades.
type ExamRepository interface {
	ListByClass(ctx context.Context, classID uuid.UUID) ([]ExamWithStats, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Exam, error)
	ClassIDs(ctx context.Context, examIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
	Create(ctx context.Context, exam *models.Exam, classIDs []uuid.UUID) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}, classIDs []uuid.UUID) (models.Exam, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GradeSheet(ctx context.Context, examID uuid.UUID) ([]GradeSheetRow, error)
	SaveGrades(ctx context.Context, examID uuid.UUID, entries []GradeUpsert, at time.Time) (saved int, removed int, err error)
	ListForStudent(ctx context.Context, studentID uuid.UUID) ([]StudentGradeRow, error)
	ClassNamesForStudent(ctx context.Context, studentID uuid.UUID) ([]ExamClassNameRow, error)
}

type examRepository struct {
	db *gorm.DB
}

// NewExamRepository constructs the exam repository.
func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) ListByClass(ctx context.Context, classID uuid.UUID) ([]ExamWithStats, error) {
	var rows []ExamWithStats
	err := r.db.WithContext(ctx).
		Table("exams").
		Select("exams.*, (SELECT COUNT(*) FROM exam_grades WHERE exam_grades.exam_id = exams.id) AS graded_count").
		Joins("JOIN exam_classes ON exam_classes.exam_id = exams.id").
		Where("exam_classes.class_id = ?", classID).
		Order("exams.exam_date DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *examRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Exam, error) {
	var exam models.Exam
	if err := r.db.WithContext(ctx).First(&exam, "id = ?", id).Error; err != nil {
		return models.Exam{}, err
	}
	return exam, nil
}

func (r *examRepository) ClassIDs(ctx context.Context, examIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	result := make(map[uuid.UUID][]uuid.UUID)
	ids := uniqueIDs(examIDs)
	if len(ids) == 0 {
		return result, nil
	}

	var links []models.ExamClass
	if err := r.db.WithContext(ctx).Where("exam_id IN ?", ids).Order("class_id").Find(&links).Error; err != nil {
		return nil, err
	}
	for _, link := range links {
		result[link.ExamID] = append(result[link.ExamID], link.ClassID)
	}
	return result, nil
}

func (r *examRepository) Create(ctx context.Context, exam *models.Exam, classIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(exam).Error; err != nil {
			return err
		}
		return replaceExamClasses(tx, exam.ID, classIDs)
	})
}

// Update writes the exam row and fully replaces its class links in the same transaction.
func (r *examRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}, classIDs []uuid.UUID) (models.Exam, error) {
	var exam models.Exam
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Exam{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := replaceExamClasses(tx, id, classIDs); err != nil {
			return err
		}
		return tx.First(&exam, "id = ?", id).Error
	})
	if err != nil {
		return models.Exam{}, err
	}
	return exam, nil
}

func replaceExamClasses(tx *gorm.DB, examID uuid.UUID, classIDs []uuid.UUID) error {
	if err := tx.Where("exam_id = ?", examID).Delete(&models.ExamClass{}).Error; err != nil {
		return err
	}

	classes, err := loadClasses(tx, classIDs)
	if err != nil {
		return err
	}
	if len(classes) == 0 {
		return nil
	}

	links := make([]models.ExamClass, 0, len(classes))
	for _, class := range classes {
		links = append(links, models.ExamClass{ExamID: examID, ClassID: class.ID})
	}
	return tx.Create(&links).Error
}

func (r *examRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", id).Delete(&models.Grade{}).Error; err != nil {
			return err
		}
		if err := tx.Where("exam_id = ?", id).Delete(&models.ExamClass{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&models.Exam{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// GradeSheet lists every student related to a linked class through enrollment, group membership
// or a non-failed baseline payment, with their grade when one exists.
func (r *examRepository) GradeSheet(ctx context.Context, examID uuid.UUID) ([]GradeSheetRow, error) {
	const query = `
SELECT users.id AS student_id, users.full_name, users.email, exam_grades.score,
	COALESCE(exam_grades.comment, '') AS comment
FROM users
LEFT JOIN exam_grades ON exam_grades.student_id = users.id AND exam_grades.exam_id = ?
WHERE users.role = ? AND (
	users.id IN (
		SELECT class_enrollments.student_id FROM class_enrollments
		JOIN exam_classes ON exam_classes.class_id = class_enrollments.class_id
		WHERE exam_classes.exam_id = ?)
	OR users.id IN (
		SELECT student_groups.student_id FROM student_groups
		JOIN class_groups ON class_groups.id = student_groups.group_id
		JOIN exam_classes ON exam_classes.class_id = class_groups.class_id
		WHERE exam_classes.exam_id = ?)
	OR users.id IN (
		SELECT tuition_payments.student_id FROM tuition_payments
		JOIN exam_classes ON exam_classes.class_id = tuition_payments.class_id
		WHERE exam_classes.exam_id = ? AND tuition_payments.status <> ?)
)
ORDER BY users.full_name ASC`

	var rows []GradeSheetRow
	err := r.db.WithContext(ctx).
		Raw(query, examID, models.RoleStudent, examID, examID, examID, models.PaymentStatusFailed).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveGrades applies the whole batch in one transaction: entries without a score delete the grade,
// the rest are upserted on (exam, student).
func (r *examRepository) SaveGrades(ctx context.Context, examID uuid.UUID, entries []GradeUpsert, at time.Time) (int, int, error) {
	var saved, removed int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exam models.Exam
		if err := tx.Select("id").First(&exam, "id = ?", examID).Error; err != nil {
			return err
		}

		studentIDs := make([]uuid.UUID, 0, len(entries))
		for _, entry := range entries {
			studentIDs = append(studentIDs, entry.StudentID)
		}
		studentIDs = uniqueIDs(studentIDs)
		if len(studentIDs) > 0 {
			var known int64
			if err := tx.Model(&models.User{}).
				Where("id IN ? AND role = ?", studentIDs, models.RoleStudent).
				Count(&known).Error; err != nil {
				return err
			}
			if known != int64(len(studentIDs)) {
				return ErrUnknownReference
			}
		}

		for _, entry := range entries {
			if entry.Score == nil {
				res := tx.Where("exam_id = ? AND student_id = ?", examID, entry.StudentID).Delete(&models.Grade{})
				if res.Error != nil {
					return res.Error
				}
				removed += int(res.RowsAffected)
				continue
			}

			grade := models.Grade{
				ExamID:    examID,
				StudentID: entry.StudentID,
				Score:     *entry.Score,
				Comment:   entry.Comment,
				UpdatedAt: at,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "exam_id"}, {Name: "student_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"score", "comment", "updated_at"}),
			}).Create(&grade).Error
			if err != nil {
				return err
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return saved, removed, nil
}

func (r *examRepository) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]StudentGradeRow, error) {
	const query = `
SELECT exams.id AS exam_id, exams.title, exams.exam_date, exams.max_score, exam_grades.score,
	COALESCE(exam_grades.comment, '') AS comment
FROM exams
LEFT JOIN exam_grades ON exam_grades.exam_id = exams.id AND exam_grades.student_id = ?
WHERE exams.id IN (
	SELECT exam_classes.exam_id FROM exam_classes
	JOIN class_enrollments ON class_enrollments.class_id = exam_classes.class_id
	WHERE class_enrollments.student_id = ?)
ORDER BY exams.exam_date DESC, exams.title ASC`

	var rows []StudentGradeRow
	if err := r.db.WithContext(ctx).Raw(query, studentID, studentID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *examRepository) ClassNamesForStudent(ctx context.Context, studentID uuid.UUID) ([]ExamClassNameRow, error) {
	var rows []ExamClassNameRow
	err := r.db.WithContext(ctx).
		Table("exam_classes").
		Select("exam_classes.exam_id, classes.name AS class_name").
		Joins("JOIN classes ON classes.id = exam_classes.class_id").
		Where(`exam_classes.exam_id IN (
	SELECT ec.exam_id FROM exam_classes ec
	JOIN class_enrollments ON class_enrollments.class_id = ec.class_id
	WHERE class_enrollments.student_id = ?)`, studentID).
		Order("classes.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
