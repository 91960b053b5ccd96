package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/models"
	"github.com/noah-isme/chemclass-api/internal/repository"
)

func newClassTestService(t *testing.T) (ClassService, *gorm.DB) {
	t.Helper()
	db := setupServiceDB(t)
	svc := NewClassService(
		repository.NewClassRepository(db),
		repository.NewSubjectRepository(db),
		testValidator(),
		NewActivityService(&memoryActivityRepo{}, testLogger()),
		testLogger(),
	)
	return svc, db
}

func TestClassServiceCreateValidatesDatesAndSubject(t *testing.T) {
	svc, db := newClassTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, dto.ClassRequest{Name: "Chem", StartDate: "2025-05-01", EndDate: "2025-04-01"}, ActivityActor{})
	require.ErrorIs(t, err, ErrInvalidDateRange)

	unknown := uuid.New()
	_, err = svc.Create(ctx, dto.ClassRequest{Name: "Chem", SubjectID: &unknown}, ActivityActor{})
	require.True(t, IsValidation(err))

	_, err = svc.Create(ctx, dto.ClassRequest{Name: "Chem", Fee: -5}, ActivityActor{})
	require.True(t, IsValidation(err))

	subject := models.Subject{Name: "Chemistry"}
	require.NoError(t, db.Create(&subject).Error)

	created, err := svc.Create(ctx, dto.ClassRequest{
		Name:      "Chem <i>A</i>",
		Fee:       1500,
		SubjectID: &subject.ID,
		StartDate: "2025-01-10",
		Schedule:  "Mon & Wed",
	}, ActivityActor{})
	require.NoError(t, err)
	require.Equal(t, "Chem A", created.Name)
	require.Equal(t, "Mon & Wed", created.Schedule)
	require.Equal(t, "2025-01-10", *created.StartDate)
	require.Nil(t, created.EndDate)

	group, err := svc.CreateGroup(ctx, created.ID, dto.GroupRequest{Name: "Morning"}, ActivityActor{})
	require.NoError(t, err)

	classes, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	require.Equal(t, "Chemistry", classes[0].SubjectName)
	require.Equal(t, 1, classes[0].GroupCount)
	require.Equal(t, group.ID, classes[0].Groups[0].ID)
}

func TestClassServiceEnrollAndRoster(t *testing.T) {
	svc, db := newClassTestService(t)
	ctx := context.Background()
	class := seedClass(t, db, "Physics", 700)
	ana := seedStudent(t, db, "Ana", "ana@example.com")

	require.ErrorIs(t, svc.Enroll(ctx, uuid.New(), dto.EnrollStudentRequest{StudentID: ana.ID}, ActivityActor{}), ErrClassNotFound)
	require.ErrorIs(t, svc.Enroll(ctx, class.ID, dto.EnrollStudentRequest{StudentID: uuid.New()}, ActivityActor{}), ErrStudentNotFound)

	require.NoError(t, svc.Enroll(ctx, class.ID, dto.EnrollStudentRequest{StudentID: ana.ID}, ActivityActor{}))
	err := svc.Enroll(ctx, class.ID, dto.EnrollStudentRequest{StudentID: ana.ID}, ActivityActor{})
	require.ErrorIs(t, err, ErrAlreadyEnrolled)
	require.ErrorIs(t, err, ErrConflict)

	roster, err := svc.Roster(ctx, class.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.Equal(t, ana.ID, roster[0].ID)

	var payment models.TuitionPayment
	require.NoError(t, db.First(&payment, "student_id = ? AND class_id = ?", ana.ID, class.ID).Error)
	require.Equal(t, int64(700), payment.Amount)
	require.Equal(t, models.PaymentStatusPaid, payment.Status)
}

func TestClassServiceDeleteCascades(t *testing.T) {
	svc, db := newClassTestService(t)
	ctx := context.Background()
	only := seedClass(t, db, "Only", 100)
	other := seedClass(t, db, "Other", 100)
	solo := seedStudent(t, db, "Solo", "solo@example.com")
	shared := seedStudent(t, db, "Shared", "shared@example.com")
	seedEnrollment(t, db, solo.ID, only.ID)
	seedEnrollment(t, db, shared.ID, only.ID)
	seedEnrollment(t, db, shared.ID, other.ID)

	result, err := svc.Delete(ctx, only.ID, ActivityActor{})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.StudentsRemoved)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.Equal(t, int64(1), users)

	_, err = svc.Delete(ctx, only.ID, ActivityActor{})
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestClassServiceUpdateAndGroups(t *testing.T) {
	svc, db := newClassTestService(t)
	ctx := context.Background()
	class := seedClass(t, db, "Biology", 100)

	updated, err := svc.Update(ctx, class.ID, dto.ClassRequest{Name: "Biology II", Fee: 250}, ActivityActor{})
	require.NoError(t, err)
	require.Equal(t, "Biology II", updated.Name)
	require.Equal(t, int64(250), updated.Fee)

	_, err = svc.Update(ctx, uuid.New(), dto.ClassRequest{Name: "x"}, ActivityActor{})
	require.ErrorIs(t, err, ErrClassNotFound)

	_, err = svc.CreateGroup(ctx, uuid.New(), dto.GroupRequest{Name: "A"}, ActivityActor{})
	require.ErrorIs(t, err, ErrClassNotFound)

	group, err := svc.CreateGroup(ctx, class.ID, dto.GroupRequest{Name: "A"}, ActivityActor{})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteGroup(ctx, group.ID, ActivityActor{}))
	require.ErrorIs(t, svc.DeleteGroup(ctx, group.ID, ActivityActor{}), ErrGroupNotFound)
}
