package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/models"
	"github.com/noah-isme/chemclass-api/internal/repository"
	"github.com/noah-isme/chemclass-api/pkg/storage"
)

func newMaterialTestService(t *testing.T, maxMB int) (MaterialService, *gorm.DB, *storage.Local) {
	t.Helper()
	db := setupServiceDB(t)
	store, err := storage.NewLocal(t.TempDir(), "/uploads", testLogger())
	require.NoError(t, err)

	svc := NewMaterialService(
		repository.NewMaterialRepository(db),
		repository.NewClassRepository(db),
		repository.NewSubjectRepository(db),
		store,
		maxMB,
		testValidator(),
		NewActivityService(&memoryActivityRepo{}, testLogger()),
		testLogger(),
	)
	return svc, db, store
}

func multipartFile(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(4 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func storedFiles(t *testing.T, store *storage.Local) []string {
	t.Helper()
	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

var pdfContent = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func TestMaterialServiceCreateWithFileAndLink(t *testing.T) {
	svc, db, store := newMaterialTestService(t, 1)
	ctx := context.Background()
	chem := seedClass(t, db, "Chemistry", 0)
	admin := ActivityActor{ID: uuid.New(), Role: "ADMIN"}

	created, err := svc.Create(ctx, dto.MaterialRequest{
		Title:       "<i>Stoichiometry</i>",
		Description: "Chapter 3",
		ClassID:     chem.ID.String(),
	}, multipartFile(t, "notes.PDF", pdfContent), admin)
	require.NoError(t, err)
	require.Equal(t, "Stoichiometry", created.Title)
	require.Equal(t, "application/pdf", created.FileType)
	require.Equal(t, &chem.ID, created.ClassID)
	require.Equal(t, admin.ID, *created.UploadedBy)
	require.Regexp(t, `^/uploads/\d+-[0-9a-f]+\.pdf$`, created.FileURL)

	files := storedFiles(t, store)
	require.Len(t, files, 1)
	require.Equal(t, "/uploads/"+files[0], created.FileURL)

	link, err := svc.Create(ctx, dto.MaterialRequest{Title: "Reading", FileURL: "https://example.com/paper"}, nil, admin)
	require.NoError(t, err)
	require.Equal(t, LinkFileType, link.FileType)
	require.Nil(t, link.ClassID)

	_, err = svc.Create(ctx, dto.MaterialRequest{Title: "Empty"}, nil, admin)
	require.ErrorIs(t, err, ErrFileRequired)

	_, err = svc.Create(ctx, dto.MaterialRequest{Title: "Script"}, multipartFile(t, "run.sh", []byte("#!/bin/sh")), admin)
	require.ErrorIs(t, err, ErrFileTypeNotAllowed)
	require.True(t, IsValidation(err))

	_, err = svc.Create(ctx, dto.MaterialRequest{Title: "Huge"}, multipartFile(t, "big.pdf", bytes.Repeat([]byte("a"), 1024*1024+1)), admin)
	require.ErrorIs(t, err, ErrFileTooLarge)

	_, err = svc.Create(ctx, dto.MaterialRequest{Title: "Orphan", FileURL: "https://example.com", ClassID: uuid.NewString()}, nil, admin)
	require.ErrorIs(t, err, ErrUnknownClass)

	require.Len(t, storedFiles(t, store), 1)

	all, err := svc.List(ctx, dto.MaterialListRequest{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	scoped, err := svc.List(ctx, dto.MaterialListRequest{ClassID: &chem.ID})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
}

func TestMaterialServiceUpdateReplacesFile(t *testing.T) {
	svc, _, store := newMaterialTestService(t, 1)
	ctx := context.Background()

	created, err := svc.Create(ctx, dto.MaterialRequest{Title: "Notes"}, multipartFile(t, "a.pdf", pdfContent), ActivityActor{})
	require.NoError(t, err)
	original := filepath.Base(created.FileURL)

	updated, err := svc.Update(ctx, created.ID, dto.MaterialRequest{Title: "Notes v2"}, multipartFile(t, "b.pdf", pdfContent), ActivityActor{})
	require.NoError(t, err)
	require.Equal(t, "Notes v2", updated.Title)
	require.NotEqual(t, created.FileURL, updated.FileURL)

	files := storedFiles(t, store)
	require.Len(t, files, 1)
	require.NotEqual(t, original, files[0])

	kept, err := svc.Update(ctx, created.ID, dto.MaterialRequest{Title: "Notes v3"}, nil, ActivityActor{})
	require.NoError(t, err)
	require.Equal(t, updated.FileURL, kept.FileURL)
	require.Len(t, storedFiles(t, store), 1)

	linked, err := svc.Update(ctx, created.ID, dto.MaterialRequest{Title: "Notes v4", FileURL: "https://example.com/notes"}, nil, ActivityActor{})
	require.NoError(t, err)
	require.Equal(t, LinkFileType, linked.FileType)
	require.Empty(t, storedFiles(t, store))

	_, err = svc.Update(ctx, uuid.New(), dto.MaterialRequest{Title: "Missing"}, nil, ActivityActor{})
	require.ErrorIs(t, err, ErrMaterialNotFound)
}

func TestMaterialServiceDeleteRemovesFile(t *testing.T) {
	svc, db, store := newMaterialTestService(t, 1)
	ctx := context.Background()

	created, err := svc.Create(ctx, dto.MaterialRequest{Title: "Notes"}, multipartFile(t, "a.pdf", pdfContent), ActivityActor{})
	require.NoError(t, err)
	require.Len(t, storedFiles(t, store), 1)

	require.NoError(t, svc.Delete(ctx, created.ID, ActivityActor{}))
	require.Empty(t, storedFiles(t, store))

	var count int64
	require.NoError(t, db.Model(&models.Material{}).Count(&count).Error)
	require.Zero(t, count)

	require.ErrorIs(t, svc.Delete(ctx, created.ID, ActivityActor{}), ErrMaterialNotFound)
}

func TestMaterialServiceStudentScope(t *testing.T) {
	svc, db, _ := newMaterialTestService(t, 1)
	ctx := context.Background()
	chem := seedClass(t, db, "Chemistry", 0)
	phys := seedClass(t, db, "Physics", 0)
	ana := seedStudent(t, db, "Ana", "ana@example.com")
	seedEnrollment(t, db, ana.ID, chem.ID)

	for _, req := range []dto.MaterialRequest{
		{Title: "Chem notes", FileURL: "https://example.com/chem", ClassID: chem.ID.String()},
		{Title: "Phys notes", FileURL: "https://example.com/phys", ClassID: phys.ID.String()},
		{Title: "Handbook", FileURL: "https://example.com/handbook"},
	} {
		_, err := svc.Create(ctx, req, nil, ActivityActor{})
		require.NoError(t, err)
	}

	visible, err := svc.ListForStudent(ctx, ana.ID)
	require.NoError(t, err)
	titles := make([]string, 0, len(visible))
	for _, material := range visible {
		titles = append(titles, material.Title)
	}
	require.ElementsMatch(t, []string{"Chem notes", "Handbook"}, titles)
}
