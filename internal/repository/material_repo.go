package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// MaterialFilter narrows the admin material listing.
type MaterialFilter struct {
	ClassID *uuid.UUID
	GroupID *uuid.UUID
}

// MaterialRepository persists distributed documents.
type MaterialRepository interface {
	List(ctx context.Context, filter MaterialFilter) ([]models.Material, error)
	ListForStudent(ctx context.Context, studentID uuid.UUID) ([]models.Material, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Material, error)
	Create(ctx context.Context, material *models.Material) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (models.Material, error)
	Delete(ctx context.Context, id uuid.UUID) (models.Material, error)
}

type materialRepository struct {
	db *gorm.DB
}

// NewMaterialRepository constructs the material repository.
func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) List(ctx context.Context, filter MaterialFilter) ([]models.Material, error) {
	query := r.db.WithContext(ctx).Model(&models.Material{})
	if filter.ClassID != nil {
		query = query.Where("class_id = ?", *filter.ClassID)
	}
	if filter.GroupID != nil {
		query = query.Where("group_id = ?", *filter.GroupID)
	}

	var materials []models.Material
	if err := query.Order("created_at DESC").Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

// ListForStudent returns unscoped materials plus those scoped to a class the student is enrolled in
// or to a group they belong to.
func (r *materialRepository) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]models.Material, error) {
	db := r.db.WithContext(ctx)
	enrolled := db.Model(&models.Enrollment{}).Select("class_id").Where("student_id = ?", studentID)
	grouped := db.Model(&models.GroupMembership{}).Select("group_id").Where("student_id = ?", studentID)

	var materials []models.Material
	err := db.Model(&models.Material{}).
		Where("class_id IN (?) OR group_id IN (?) OR (class_id IS NULL AND group_id IS NULL)", enrolled, grouped).
		Order("created_at DESC").
		Find(&materials).Error
	if err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *materialRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Material, error) {
	var material models.Material
	if err := r.db.WithContext(ctx).First(&material, "id = ?", id).Error; err != nil {
		return models.Material{}, err
	}
	return material, nil
}

func (r *materialRepository) Create(ctx context.Context, material *models.Material) error {
	return r.db.WithContext(ctx).Create(material).Error
}

func (r *materialRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (models.Material, error) {
	res := r.db.WithContext(ctx).Model(&models.Material{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return models.Material{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Material{}, gorm.ErrRecordNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes the row and returns it so the caller can release the stored file.
func (r *materialRepository) Delete(ctx context.Context, id uuid.UUID) (models.Material, error) {
	var material models.Material
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&material, "id = ?", id).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&models.Material{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return models.Material{}, err
	}
	return material, nil
}
