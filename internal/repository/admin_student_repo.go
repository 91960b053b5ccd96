package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// AdminStudentFilter defines filters for listing students from the admin panel.
type AdminStudentFilter struct {
	Search   string
	Page     int
	PageSize int
}

// StudentClassRow links a student to one of the classes they are enrolled in.
type StudentClassRow struct {
	StudentID uuid.UUID
	ClassID   uuid.UUID
	ClassName string
}

// AdminStudentRepository exposes persistence helpers for admin student operations.
type AdminStudentRepository interface {
	List(ctx context.Context, filter AdminStudentFilter) ([]models.User, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.User, error)
	Classes(ctx context.Context, studentIDs []uuid.UUID) ([]StudentClassRow, error)
	UnpaidCounts(ctx context.Context, studentIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	Create(ctx context.Context, student *models.User, classIDs []uuid.UUID) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}, classIDs []uuid.UUID) (models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GroupInClass(ctx context.Context, studentID, classID uuid.UUID) (*models.Group, error)
	AddToGroup(ctx context.Context, studentID, groupID uuid.UUID) error
	MoveGroup(ctx context.Context, studentID, fromGroupID, toGroupID uuid.UUID) error
	RemoveFromGroup(ctx context.Context, studentID, groupID uuid.UUID) error
}

type adminStudentRepository struct {
	db *gorm.DB
}

// NewAdminStudentRepository constructs the admin student repository.
func NewAdminStudentRepository(db *gorm.DB) AdminStudentRepository {
	return &adminStudentRepository{db: db}
}

func (r *adminStudentRepository) List(ctx context.Context, filter AdminStudentFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleStudent)

	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("(LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?)", like, like)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, offset := paginate(filter.Page, filter.PageSize)
	query = query.Order("full_name ASC").Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var students []models.User
	if err := query.Find(&students).Error; err != nil {
		return nil, 0, err
	}

	return students, total, nil
}

func (r *adminStudentRepository) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	var student models.User
	if err := r.db.WithContext(ctx).Where("id = ? AND role = ?", id, models.RoleStudent).First(&student).Error; err != nil {
		return models.User{}, err
	}
	return student, nil
}

func (r *adminStudentRepository) Classes(ctx context.Context, studentIDs []uuid.UUID) ([]StudentClassRow, error) {
	ids := uniqueIDs(studentIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []StudentClassRow
	err := r.db.WithContext(ctx).
		Table("class_enrollments").
		Select("class_enrollments.student_id, classes.id AS class_id, classes.name AS class_name").
		Joins("JOIN classes ON classes.id = class_enrollments.class_id").
		Where("class_enrollments.student_id IN ?", ids).
		Order("classes.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *adminStudentRepository) UnpaidCounts(ctx context.Context, studentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64)
	ids := uniqueIDs(studentIDs)
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []struct {
		StudentID uuid.UUID
		Total     int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.TuitionRecord{}).
		Select("student_id, COUNT(*) AS total").
		Where("status = ? AND student_id IN ?", models.TuitionStatusUnpaid, ids).
		Group("student_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.StudentID] = row.Total
	}
	return counts, nil
}

// Create inserts the student and enrolls them in every class with a baseline payment, all or nothing.
// Unknown class ids yield ErrUnknownReference; a taken email yields gorm.ErrDuplicatedKey.
func (r *adminStudentRepository) Create(ctx context.Context, student *models.User, classIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		classes, err := loadClasses(tx, classIDs)
		if err != nil {
			return err
		}

		student.Role = models.RoleStudent
		if err := tx.Create(student).Error; err != nil {
			return err
		}

		for _, class := range classes {
			if _, err := enrollStudent(tx, student.ID, class); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update applies profile changes and, when classIDs is non-empty, replaces the enrollment set.
// Dropped classes lose the enrollment and the student's group membership there; added classes get a baseline payment.
func (r *adminStudentRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}, classIDs []uuid.UUID) (models.User, error) {
	var student models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			res := tx.Model(&models.User{}).Where("id = ? AND role = ?", id, models.RoleStudent).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}

		if err := tx.Where("id = ? AND role = ?", id, models.RoleStudent).First(&student).Error; err != nil {
			return err
		}

		if len(classIDs) == 0 {
			return nil
		}
		return syncEnrollments(tx, id, classIDs)
	})
	if err != nil {
		return models.User{}, err
	}
	return student, nil
}

func syncEnrollments(tx *gorm.DB, studentID uuid.UUID, classIDs []uuid.UUID) error {
	requested := uniqueIDs(classIDs)

	var current []uuid.UUID
	if err := tx.Model(&models.Enrollment{}).Where("student_id = ?", studentID).Pluck("class_id", &current).Error; err != nil {
		return err
	}

	wanted := make(map[uuid.UUID]struct{}, len(requested))
	for _, id := range requested {
		wanted[id] = struct{}{}
	}
	existing := make(map[uuid.UUID]struct{}, len(current))
	for _, id := range current {
		existing[id] = struct{}{}
	}

	var dropped, added []uuid.UUID
	for _, id := range current {
		if _, ok := wanted[id]; !ok {
			dropped = append(dropped, id)
		}
	}
	for _, id := range requested {
		if _, ok := existing[id]; !ok {
			added = append(added, id)
		}
	}

	if len(dropped) > 0 {
		if err := tx.Where("student_id = ? AND class_id IN ?", studentID, dropped).Delete(&models.Enrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("student_id = ? AND group_id IN (?)", studentID,
			tx.Model(&models.Group{}).Select("id").Where("class_id IN ?", dropped)).
			Delete(&models.GroupMembership{}).Error; err != nil {
			return err
		}
	}

	if len(added) > 0 {
		classes, err := loadClasses(tx, added)
		if err != nil {
			return err
		}
		for _, class := range classes {
			if _, err := enrollStudent(tx, studentID, class); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *adminStudentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed, err := purgeStudents(tx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if removed == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *adminStudentRepository) GroupInClass(ctx context.Context, studentID, classID uuid.UUID) (*models.Group, error) {
	var groups []models.Group
	err := r.db.WithContext(ctx).
		Model(&models.Group{}).
		Joins("JOIN student_groups ON student_groups.group_id = class_groups.id").
		Where("student_groups.student_id = ? AND class_groups.class_id = ?", studentID, classID).
		Limit(1).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}
	return &groups[0], nil
}

func (r *adminStudentRepository) AddToGroup(ctx context.Context, studentID, groupID uuid.UUID) error {
	membership := models.GroupMembership{StudentID: studentID, GroupID: groupID}
	return r.db.WithContext(ctx).Create(&membership).Error
}

func (r *adminStudentRepository) MoveGroup(ctx context.Context, studentID, fromGroupID, toGroupID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("student_id = ? AND group_id = ?", studentID, fromGroupID).Delete(&models.GroupMembership{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		membership := models.GroupMembership{StudentID: studentID, GroupID: toGroupID}
		return tx.Create(&membership).Error
	})
}

func (r *adminStudentRepository) RemoveFromGroup(ctx context.Context, studentID, groupID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("student_id = ? AND group_id = ?", studentID, groupID).Delete(&models.GroupMembership{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
