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

func newAdminStudentTestService(t *testing.T) (AdminStudentService, *gorm.DB, *memoryActivityRepo) {
	t.Helper()
	db := setupServiceDB(t)
	activityRepo := &memoryActivityRepo{}
	svc := NewAdminStudentService(
		repository.NewAdminStudentRepository(db),
		repository.NewUserRepository(db),
		repository.NewClassRepository(db),
		testValidator(),
		NewActivityService(activityRepo, testLogger()),
		testLogger(),
	)
	return svc, db, activityRepo
}

func TestAdminStudentServiceCreateGeneratesPassword(t *testing.T) {
	svc, db, activity := newAdminStudentTestService(t)
	ctx := context.Background()
	chem := seedClass(t, db, "Chemistry", 1200)

	created, err := svc.Create(ctx, dto.AdminStudentCreateRequest{
		FullName: "Ana <b>Putri</b>",
		Email:    " Ana@Example.com ",
		ClassIDs: []uuid.UUID{chem.ID},
	}, ActivityActor{ID: uuid.New(), Role: "ADMIN"})
	require.NoError(t, err)
	require.Equal(t, "Ana Putri", created.Student.FullName)
	require.Equal(t, "ana@example.com", created.Student.Email)
	require.Len(t, created.InitialPassword, initialPasswordLength)
	require.Equal(t, []dto.ClassSummary{{ID: chem.ID, Name: "Chemistry"}}, created.Student.Classes)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", created.Student.ID).Error)
	require.NotEqual(t, created.InitialPassword, stored.PasswordHash)
	require.True(t, checkPassword(stored.PasswordHash, created.InitialPassword))

	var payment models.TuitionPayment
	require.NoError(t, db.First(&payment, "student_id = ?", stored.ID).Error)
	require.Equal(t, int64(1200), payment.Amount)

	require.Equal(t, []string{"student.created"}, activity.actions())
	require.Equal(t, true, activity.entries[0].Metadata["auto_generated"])

	withPassword, err := svc.Create(ctx, dto.AdminStudentCreateRequest{
		FullName: "Budi",
		Email:    "budi@example.com",
		Password: "secret99",
		ClassIDs: []uuid.UUID{chem.ID},
	}, ActivityActor{})
	require.NoError(t, err)
	require.Empty(t, withPassword.InitialPassword)
	require.Equal(t, false, activity.entries[1].Metadata["auto_generated"])
}

func TestAdminStudentServiceCreateFailures(t *testing.T) {
	svc, db, _ := newAdminStudentTestService(t)
	ctx := context.Background()
	chem := seedClass(t, db, "Chemistry", 0)
	seedStudent(t, db, "Taken", "taken@example.com")

	_, err := svc.Create(ctx, dto.AdminStudentCreateRequest{FullName: "Ana", Email: "ana@example.com"}, ActivityActor{})
	require.True(t, IsValidation(err), "class ids are required")

	_, err = svc.Create(ctx, dto.AdminStudentCreateRequest{FullName: "Ana", Email: "TAKEN@example.com", ClassIDs: []uuid.UUID{chem.ID}}, ActivityActor{})
	require.ErrorIs(t, err, ErrEmailTaken)
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Create(ctx, dto.AdminStudentCreateRequest{FullName: "Ana", Email: "ana@example.com", ClassIDs: []uuid.UUID{chem.ID, uuid.New()}}, ActivityActor{})
	require.ErrorIs(t, err, ErrUnknownClass)
	require.True(t, IsValidation(err))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "ana@example.com").Count(&count).Error)
	require.Zero(t, count)
}

func TestAdminStudentServiceUpdateAndList(t *testing.T) {
	svc, db, _ := newAdminStudentTestService(t)
	ctx := context.Background()
	chem := seedClass(t, db, "Chemistry", 100)
	phys := seedClass(t, db, "Physics", 200)
	ana := seedStudent(t, db, "Ana", "ana@example.com")
	seedStudent(t, db, "Budi", "budi@example.com")
	seedEnrollment(t, db, ana.ID, chem.ID)

	_, err := svc.Update(ctx, ana.ID, dto.AdminStudentUpdateRequest{Email: stringPtr("budi@example.com")}, ActivityActor{})
	require.ErrorIs(t, err, ErrEmailTaken)

	updated, err := svc.Update(ctx, ana.ID, dto.AdminStudentUpdateRequest{
		Phone:    stringPtr("0812"),
		Password: stringPtr("newsecret"),
		ClassIDs: []uuid.UUID{phys.ID},
	}, ActivityActor{})
	require.NoError(t, err)
	require.Equal(t, "0812", updated.Phone)
	require.Equal(t, []dto.ClassSummary{{ID: phys.ID, Name: "Physics"}}, updated.Classes)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", ana.ID).Error)
	require.True(t, checkPassword(stored.PasswordHash, "newsecret"))

	_, err = svc.Update(ctx, uuid.New(), dto.AdminStudentUpdateRequest{Phone: stringPtr("1")}, ActivityActor{})
	require.ErrorIs(t, err, ErrStudentNotFound)

	list, err := svc.List(ctx, dto.AdminStudentListRequest{Page: 1, PageSize: 1, Search: "bud"})
	require.NoError(t, err)
	require.Equal(t, int64(1), list.Pagination.TotalItems)
	require.Equal(t, "Budi", list.Items[0].FullName)
	require.Empty(t, list.Items[0].Classes)

	require.NoError(t, svc.Delete(ctx, ana.ID, ActivityActor{}))
	require.ErrorIs(t, svc.Delete(ctx, ana.ID, ActivityActor{}), ErrStudentNotFound)
	_, err = svc.Get(ctx, ana.ID)
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestAdminStudentServiceGroupRules(t *testing.T) {
	svc, db, _ := newAdminStudentTestService(t)
	ctx := context.Background()
	classes := repository.NewClassRepository(db)
	chem := seedClass(t, db, "Chemistry", 0)
	phys := seedClass(t, db, "Physics", 0)
	ana := seedStudent(t, db, "Ana", "ana@example.com")
	seedEnrollment(t, db, ana.ID, chem.ID)

	groupA := models.Group{ClassID: chem.ID, Name: "A"}
	groupB := models.Group{ClassID: chem.ID, Name: "B"}
	physGroup := models.Group{ClassID: phys.ID, Name: "P"}
	for _, group := range []*models.Group{&groupA, &groupB, &physGroup} {
		require.NoError(t, classes.CreateGroup(ctx, group))
	}

	require.ErrorIs(t, svc.AssignGroup(ctx, ana.ID, uuid.New(), ActivityActor{}), ErrGroupNotFound)
	require.ErrorIs(t, svc.AssignGroup(ctx, ana.ID, physGroup.ID, ActivityActor{}), ErrNotEnrolled)
	require.ErrorIs(t, svc.AssignGroup(ctx, uuid.New(), groupA.ID, ActivityActor{}), ErrStudentNotFound)

	require.NoError(t, svc.AssignGroup(ctx, ana.ID, groupA.ID, ActivityActor{}))
	require.ErrorIs(t, svc.AssignGroup(ctx, ana.ID, groupA.ID, ActivityActor{}), ErrAlreadyInGroup)
	require.ErrorIs(t, svc.AssignGroup(ctx, ana.ID, groupB.ID, ActivityActor{}), ErrAlreadyInGroup)

	require.ErrorIs(t, svc.TransferGroup(ctx, ana.ID, groupA.ID, physGroup.ID, ActivityActor{}), ErrGroupMismatch)
	require.True(t, IsValidation(svc.TransferGroup(ctx, ana.ID, groupA.ID, groupA.ID, ActivityActor{})))
	require.NoError(t, svc.TransferGroup(ctx, ana.ID, groupA.ID, groupB.ID, ActivityActor{}))
	require.ErrorIs(t, svc.TransferGroup(ctx, ana.ID, groupA.ID, groupB.ID, ActivityActor{}), ErrMembershipAbsent)

	require.NoError(t, svc.RemoveGroup(ctx, ana.ID, groupB.ID, ActivityActor{}))
	require.ErrorIs(t, svc.RemoveGroup(ctx, ana.ID, groupB.ID, ActivityActor{}), ErrMembershipAbsent)
}
