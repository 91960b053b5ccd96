package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// SubjectRepository persists subjects.
type SubjectRepository interface {
	List(ctx context.Context) ([]models.Subject, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Subject, error)
	Ensure(ctx context.Context, name string) (models.Subject, bool, error)
}

type subjectRepository struct {
	db *gorm.DB
}

// NewSubjectRepository constructs the subject repository.
func NewSubjectRepository(db *gorm.DB) SubjectRepository {
	return &subjectRepository{db: db}
}

func (r *subjectRepository) List(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&subjects).Error; err != nil {
		return nil, err
	}
	return subjects, nil
}

func (r *subjectRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Subject, error) {
	var subject models.Subject
	if err := r.db.WithContext(ctx).First(&subject, "id = ?", id).Error; err != nil {
		return models.Subject{}, err
	}
	return subject, nil
}

// Ensure returns the subject with the given name, creating it when missing. The flag reports creation.
func (r *subjectRepository) Ensure(ctx context.Context, name string) (models.Subject, bool, error) {
	var subjects []models.Subject
	if err := r.db.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&subjects).Error; err != nil {
		return models.Subject{}, false, err
	}
	if len(subjects) > 0 {
		return subjects[0], false, nil
	}

	subject := models.Subject{Name: name}
	if err := r.db.WithContext(ctx).Create(&subject).Error; err != nil {
		return models.Subject{}, false, err
	}
	return subject, true, nil
}
