package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// purgeStudents removes students and every row that references them. It must run inside a transaction.
func purgeStudents(tx *gorm.DB, studentIDs []uuid.UUID) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}

	dependents := []interface{}{
		&models.GroupMembership{},
		&models.TuitionRecord{},
		&models.TuitionPayment{},
		&models.Grade{},
		&models.Enrollment{},
	}
	for _, model := range dependents {
		if err := tx.Where("student_id IN ?", studentIDs).Delete(model).Error; err != nil {
			return 0, err
		}
	}

	res := tx.Where("id IN ? AND role = ?", studentIDs, models.RoleStudent).Delete(&models.User{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// enrollStudent creates the enrollment and its baseline payment. It reports false when the student was already enrolled.
func enrollStudent(tx *gorm.DB, studentID uuid.UUID, class models.Class) (bool, error) {
	enrollment := models.Enrollment{StudentID: studentID, ClassID: class.ID}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&enrollment)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	payment := models.TuitionPayment{
		StudentID: studentID,
		ClassID:   class.ID,
		Amount:    class.Fee,
		Status:    models.PaymentStatusPaid,
	}
	if err := tx.Create(&payment).Error; err != nil {
		return false, err
	}
	return true, nil
}

func loadClasses(tx *gorm.DB, classIDs []uuid.UUID) ([]models.Class, error) {
	ids := uniqueIDs(classIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	var classes []models.Class
	if err := tx.Where("id IN ?", ids).Find(&classes).Error; err != nil {
		return nil, err
	}
	if len(classes) != len(ids) {
		return nil, ErrUnknownReference
	}
	return classes, nil
}
