package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// ClassWithStats is a class joined with its subject name and enrollment count.
type ClassWithStats struct {
	models.Class
	SubjectName  string
	StudentCount int64
}

// GroupWithCount is a group with its member count.
type GroupWithCount struct {
	models.Group
	StudentCount int64
}

// ClassRosterRow is one enrolled student of a class.
type ClassRosterRow struct {
	ID          uuid.UUID
	FullName    string
	Email       string
	Phone       string
	EnrolledAt  time.Time
	GroupID     *uuid.UUID
	UnpaidCount int64
}

// ClassDeletion summarises the effects of a class deletion cascade.
type ClassDeletion struct {
	MaterialsDetached int64
	BatchesRemoved    int64
	RecordsRemoved    int64
	StudentsRemoved   int64
	EnrollmentsCut    int64
}

// ClassRepository exposes persistence for classes, their groups and enrollments.
type ClassRepository interface {
	List(ctx context.Context) ([]ClassWithStats, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Class, error)
	CountExisting(ctx context.Context, ids []uuid.UUID) (int64, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (models.Class, error)
	Delete(ctx context.Context, id uuid.UUID) (ClassDeletion, error)
	ListGroups(ctx context.Context, classIDs []uuid.UUID) ([]GroupWithCount, error)
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id uuid.UUID) (models.Group, error)
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	Roster(ctx context.Context, classID uuid.UUID) ([]ClassRosterRow, error)
	Enroll(ctx context.Context, classID, studentID uuid.UUID) error
	IsEnrolled(ctx context.Context, classID, studentID uuid.UUID) (bool, error)
}

type classRepository struct {
	db *gorm.DB
}

// NewClassRepository constructs the class repository.
func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) List(ctx context.Context) ([]ClassWithStats, error) {
	var rows []ClassWithStats
	err := r.db.WithContext(ctx).
		Table("classes").
		Select(`classes.*, COALESCE(subjects.name, '') AS subject_name,
			(SELECT COUNT(*) FROM class_enrollments WHERE class_enrollments.class_id = classes.id) AS student_count`).
		Joins("LEFT JOIN subjects ON subjects.id = classes.subject_id").
		Order("classes.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *classRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).First(&class, "id = ?", id).Error; err != nil {
		return models.Class{}, err
	}
	return class, nil
}

func (r *classRepository) CountExisting(ctx context.Context, ids []uuid.UUID) (int64, error) {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Class{}).Where("id IN ?", unique).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *classRepository) Create(ctx context.Context, class *models.Class) error {
	return r.db.WithContext(ctx).Create(class).Error
}

// Update applies the changes and, when the fee changes, carries the new amount into the class's pending baseline payments.
func (r *classRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (models.Class, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Class{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if fee, ok := updates["fee"]; ok {
			if err := tx.Model(&models.TuitionPayment{}).
				Where("class_id = ? AND status = ?", id, models.PaymentStatusPending).
				Update("amount", fee).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Class{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a class in one transaction. Materials survive with their class and group references nulled,
// students enrolled only here are deleted, and everything billed under the class goes with it.
func (r *classRepository) Delete(ctx context.Context, id uuid.UUID) (ClassDeletion, error) {
	var result ClassDeletion
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		groupIDs := tx.Model(&models.Group{}).Select("id").Where("class_id = ?", id)
		batchIDs := tx.Model(&models.TuitionBatch{}).Select("id").Where("class_id = ?", id)

		detached := tx.Model(&models.Material{}).Where("class_id = ?", id).Update("class_id", nil)
		if detached.Error != nil {
			return detached.Error
		}
		result.MaterialsDetached = detached.RowsAffected

		if err := tx.Model(&models.Material{}).
			Where("group_id IN (?)", groupIDs).
			Update("group_id", nil).Error; err != nil {
			return err
		}

		records := tx.Where("batch_id IN (?)", batchIDs).Delete(&models.TuitionRecord{})
		if records.Error != nil {
			return records.Error
		}
		result.RecordsRemoved = records.RowsAffected

		batches := tx.Where("class_id = ?", id).Delete(&models.TuitionBatch{})
		if batches.Error != nil {
			return batches.Error
		}
		result.BatchesRemoved = batches.RowsAffected

		var soleStudents []uuid.UUID
		if err := tx.Model(&models.Enrollment{}).
			Where("class_id = ?", id).
			Where("student_id NOT IN (?)", tx.Model(&models.Enrollment{}).Select("student_id").Where("class_id <> ?", id)).
			Pluck("student_id", &soleStudents).Error; err != nil {
			return err
		}
		removedStudents, err := purgeStudents(tx, soleStudents)
		if err != nil {
			return err
		}
		result.StudentsRemoved = removedStudents

		enrollments := tx.Where("class_id = ?", id).Delete(&models.Enrollment{})
		if enrollments.Error != nil {
			return enrollments.Error
		}
		result.EnrollmentsCut = enrollments.RowsAffected

		if err := tx.Where("class_id = ?", id).Delete(&models.TuitionPayment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("class_id = ?", id).Delete(&models.ExamClass{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id IN (?)", groupIDs).Delete(&models.GroupMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("class_id = ?", id).Delete(&models.Group{}).Error; err != nil {
			return err
		}

		class := tx.Where("id = ?", id).Delete(&models.Class{})
		if class.Error != nil {
			return class.Error
		}
		if class.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return ClassDeletion{}, err
	}
	return result, nil
}

func (r *classRepository) ListGroups(ctx context.Context, classIDs []uuid.UUID) ([]GroupWithCount, error) {
	ids := uniqueIDs(classIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []GroupWithCount
	err := r.db.WithContext(ctx).
		Table("class_groups").
		Select("class_groups.*, (SELECT COUNT(*) FROM student_groups WHERE student_groups.group_id = class_groups.id) AS student_count").
		Where("class_groups.class_id IN ?", ids).
		Order("class_groups.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *classRepository) CreateGroup(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var class models.Class
		if err := tx.Select("id").First(&class, "id = ?", group.ClassID).Error; err != nil {
			return err
		}
		return tx.Create(group).Error
	})
}

func (r *classRepository) GetGroup(ctx context.Context, id uuid.UUID) (models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		return models.Group{}, err
	}
	return group, nil
}

func (r *classRepository) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Material{}).Where("group_id = ?", id).Update("group_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", id).Delete(&models.GroupMembership{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&models.Group{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *classRepository) Roster(ctx context.Context, classID uuid.UUID) ([]ClassRosterRow, error) {
	var rows []ClassRosterRow
	err := r.db.WithContext(ctx).
		Table("class_enrollments").
		Select(`users.id, users.full_name, users.email, users.phone, class_enrollments.enrolled_at,
			(SELECT student_groups.group_id FROM student_groups
				JOIN class_groups ON class_groups.id = student_groups.group_id
				WHERE student_groups.student_id = users.id AND class_groups.class_id = class_enrollments.class_id
				LIMIT 1) AS group_id,
			(SELECT COUNT(*) FROM tuitions
				JOIN tuition_batches ON tuition_batches.id = tuitions.batch_id
				WHERE tuitions.student_id = users.id AND tuition_batches.class_id = class_enrollments.class_id
				AND tuitions.status = ?) AS unpaid_count`, models.TuitionStatusUnpaid).
		Joins("JOIN users ON users.id = class_enrollments.student_id").
		Where("class_enrollments.class_id = ?", classID).
		Order("users.full_name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Enroll adds the student to the class with a baseline payment at the current fee.
// It returns gorm.ErrDuplicatedKey when the student is already enrolled.
func (r *classRepository) Enroll(ctx context.Context, classID, studentID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var class models.Class
		if err := tx.First(&class, "id = ?", classID).Error; err != nil {
			return err
		}

		var student models.User
		if err := tx.Select("id").First(&student, "id = ? AND role = ?", studentID, models.RoleStudent).Error; err != nil {
			return err
		}

		created, err := enrollStudent(tx, studentID, class)
		if err != nil {
			return err
		}
		if !created {
			return gorm.ErrDuplicatedKey
		}
		return nil
	})
}

func (r *classRepository) IsEnrolled(ctx context.Context, classID, studentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
