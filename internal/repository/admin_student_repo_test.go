package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/chemclass-api/internal/models"
)

func TestAdminStudentRepositoryListFiltersAndSorts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminStudentRepository(db)

	createStudent(t, db, "Bob Stone", "bob@example.com")
	createStudent(t, db, "Alice Johnson", "alice@example.com")
	require.NoError(t, db.Create(&models.User{FullName: "Admin", Email: "admin@example.com", PasswordHash: "x", Role: models.RoleAdmin}).Error)

	students, total, err := repo.List(context.Background(), AdminStudentFilter{Search: "ALICE", PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, students, 1)
	require.Equal(t, "Alice Johnson", students[0].FullName)

	students, total, err = repo.List(context.Background(), AdminStudentFilter{PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total, "admins are not part of the roster")
	require.Equal(t, "Alice Johnson", students[0].FullName)

	paged, total, err := repo.List(context.Background(), AdminStudentFilter{Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, paged, 1)
	require.Equal(t, "Bob Stone", paged[0].FullName)
}

func TestAdminStudentRepositoryCreateEnrollsWithBaselinePayment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminStudentRepository(db)
	chem := createClass(t, db, "Chemistry", 150000)
	phys := createClass(t, db, "Physics", 90000)

	student := models.User{FullName: "Dana", Email: "Dana@Example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), &student, []uuid.UUID{chem.ID, phys.ID, chem.ID}))
	require.Equal(t, models.RoleStudent, student.Role)

	var enrollments int64
	require.NoError(t, db.Model(&models.Enrollment{}).Where("student_id = ?", student.ID).Count(&enrollments).Error)
	require.Equal(t, int64(2), enrollments)

	var payments []models.TuitionPayment
	require.NoError(t, db.Where("student_id = ?", student.ID).Order("amount").Find(&payments).Error)
	require.Len(t, payments, 2)
	require.Equal(t, int64(90000), payments[0].Amount)
	require.Equal(t, models.PaymentStatusPaid, payments[0].Status)
	require.Equal(t, int64(150000), payments[1].Amount)

	rows, err := repo.Classes(context.Background(), []uuid.UUID{student.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Chemistry", rows[0].ClassName)
}

func TestAdminStudentRepositoryCreateRollsBackOnUnknownClass(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminStudentRepository(db)
	chem := createClass(t, db, "Chemistry", 1000)

	student := models.User{FullName: "Eve", Email: "eve@example.com", PasswordHash: "hash"}
	err := repo.Create(context.Background(), &student, []uuid.UUID{chem.ID, uuid.New()})
	require.ErrorIs(t, err, ErrUnknownReference)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.Zero(t, users)
}

func TestAdminStudentRepositoryCreateDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminStudentRepository(db)
	chem := createClass(t, db, "Chemistry", 1000)
	createStudent(t, db, "First", "taken@example.com")

	student := models.User{FullName: "Second", Email: "TAKEN@example.com", PasswordHash: "hash"}
	err := repo.Create(context.Background(), &student, []uuid.UUID{chem.ID})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	var enrollments int64
	require.NoError(t, db.Model(&models.Enrollment{}).Count(&enrollments).Error)
	require.Zero(t, enrollments)
}

func TestAdminStudentRepositoryUpdateReplacesEnrollments(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminStudentRepository(db)
	chem := createClass(t, db, "Chemistry", 1000)
	phys := createClass(t, db, "Physics", 2000)
	bio := createClass(t, db, "Biology", 3000)

	student := createStudent(t, db, "Farah", "farah@example.com")
	enroll(t, db, student.ID, chem)
	enroll(t, db, student.ID, phys)
	group := createGroup(t, db, phys.ID, "Physics A")
	require.NoError(t, db.Create(&models.GroupMembership{StudentID: student.ID, GroupID: group.ID}).Error)

	updated, err := repo.Update(context.Background(), student.ID, map[string]interface{}{"full_name": "Farah K"}, []uuid.UUID{chem.ID, bio.ID})
	require.NoError(t, err)
	require.Equal(t, "Farah K", updated.FullName)

	var classIDs []uuid.UUID
	require.NoError(t, db.Model(&models.Enrollment{}).Where("student_id = ?", student.ID).Pluck("class_id", &classIDs).Error)
	require.ElementsMatch(t, []uuid.UUID{chem.ID, bio.ID}, classIDs)

	var memberships int64
	require.NoError(t, db.Model(&models.GroupMembership{}).Where("student_id = ?", student.ID).Count(&memberships).Error)
	require.Zero(t, memberships, "membership in a dropped class is removed")

	var bioPayments int64
	require.NoError(t, db.Model(&models.TuitionPayment{}).Where("student_id = ? AND class_id = ?", student.ID, bio.ID).Count(&bioPayments).Error)
	require.Equal(t, int64(1), bioPayments)
}

func TestAdminStudentRepositoryDeleteRemovesDependents(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminStudentRepository(db)
	chem := createClass(t, db, "Chemistry", 1000)
	student := createStudent(t, db, "Gina", "gina@example.com")
	enroll(t, db, student.ID, chem)
	batch := models.TuitionBatch{ClassID: chem.ID, Title: "June", Amount: 1000}
	require.NoError(t, db.Create(&batch).Error)
	require.NoError(t, db.Create(&models.TuitionRecord{BatchID: batch.ID, StudentID: student.ID}).Error)

	require.NoError(t, repo.Delete(context.Background(), student.ID))
	for _, model := range []interface{}{&models.User{}, &models.Enrollment{}, &models.TuitionRecord{}, &models.TuitionPayment{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		require.Zero(t, count)
	}

	err := repo.Delete(context.Background(), student.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestAdminStudentRepositoryGroupMoves(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminStudentRepository(db)
	ctx := context.Background()
	chem := createClass(t, db, "Chemistry", 1000)
	groupA := createGroup(t, db, chem.ID, "A")
	groupB := createGroup(t, db, chem.ID, "B")
	student := createStudent(t, db, "Hana", "hana@example.com")
	enroll(t, db, student.ID, chem)

	require.NoError(t, repo.AddToGroup(ctx, student.ID, groupA.ID))
	require.ErrorIs(t, repo.AddToGroup(ctx, student.ID, groupA.ID), gorm.ErrDuplicatedKey)

	current, err := repo.GroupInClass(ctx, student.ID, chem.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	require.Equal(t, groupA.ID, current.ID)

	require.NoError(t, repo.MoveGroup(ctx, student.ID, groupA.ID, groupB.ID))
	current, err = repo.GroupInClass(ctx, student.ID, chem.ID)
	require.NoError(t, err)
	require.Equal(t, groupB.ID, current.ID)

	require.ErrorIs(t, repo.MoveGroup(ctx, student.ID, groupA.ID, groupB.ID), gorm.ErrRecordNotFound)
	require.NoError(t, repo.RemoveFromGroup(ctx, student.ID, groupB.ID))
	require.ErrorIs(t, repo.RemoveFromGroup(ctx, student.ID, groupB.ID), gorm.ErrRecordNotFound)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func createStudent(t *testing.T, db *gorm.DB, name, email string) models.User {
	t.Helper()
	user := models.User{FullName: name, Email: email, PasswordHash: "hash", Role: models.RoleStudent}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createClass(t *testing.T, db *gorm.DB, name string, fee int64) models.Class {
	t.Helper()
	class := models.Class{Name: name, Fee: fee}
	require.NoError(t, db.Create(&class).Error)
	return class
}

func createGroup(t *testing.T, db *gorm.DB, classID uuid.UUID, name string) models.Group {
	t.Helper()
	group := models.Group{ClassID: classID, Name: name}
	require.NoError(t, db.Create(&group).Error)
	return group
}

func enroll(t *testing.T, db *gorm.DB, studentID uuid.UUID, class models.Class) {
	t.Helper()
	created, err := enrollStudent(db, studentID, class)
	require.NoError(t, err)
	require.True(t, created)
}
