package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/siswa-admin/internal/models"
)

var cutoff = time.Date(2025, time.November, 26, 0, 0, 0, 0, time.UTC)

type mockStudentRepo struct {
	students map[string]models.Student // keyed by nisn
	niks     map[string]bool
	deleted  []string
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]models.Student), niks: make(map[string]bool)}
}

func (m *mockStudentRepo) List(context.Context) ([]models.Student, error) {
	list := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		list = append(list, s)
	}
	return list, nil
}

func (m *mockStudentRepo) FindByNISN(_ context.Context, nisn string) (*models.Student, error) {
	if s, ok := m.students[nisn]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByNIK(_ context.Context, nik string) (bool, error) {
	return m.niks[nik], nil
}

func (m *mockStudentRepo) ExistsByNISN(_ context.Context, nisn string) (bool, error) {
	_, ok := m.students[nisn]
	return ok, nil
}

func (m *mockStudentRepo) Create(_ context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "generated"
	}
	m.students[student.NISN] = *student
	m.niks[student.NIK] = true
	return nil
}

func (m *mockStudentRepo) UpdateByNISN(_ context.Context, update models.StudentUpdate) error {
	// Matches nothing silently, like the real store.
	if s, ok := m.students[update.NISN]; ok {
		s.Tingkat = update.Tingkat
		s.Rombel = update.Rombel
		s.TglMasuk = update.TglMasuk
		s.Terdaftar = update.Terdaftar
		m.students[update.NISN] = s
	}
	return nil
}

func (m *mockStudentRepo) DeleteByNISN(_ context.Context, nisn string) error {
	m.deleted = append(m.deleted, nisn)
	delete(m.students, nisn)
	return nil
}

func validForm() StudentForm {
	return StudentForm{
		NIK:       "1234567890123456",
		NISN:      "1234567890",
		Nama:      "Budi",
		Tingkat:   "X",
		Rombel:    "X-1",
		TglMasuk:  "2024-07-15",
		Terdaftar: "Aktif",
	}
}

func TestStudentServiceCreate(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, cutoff, zap.NewNop())

	errs, err := svc.Create(context.Background(), validForm())
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Len(t, repo.students, 1)
}

func TestStudentServiceCreateBadNIK(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, cutoff, zap.NewNop())

	form := validForm()
	form.NIK = "123"
	errs, err := svc.Create(context.Background(), form)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "NIK")
	assert.Empty(t, repo.students)

	form = validForm()
	form.NIK = "12345678901234ab"
	errs, err = svc.Create(context.Background(), form)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "NIK harus berupa angka!", errs[0].Message)
	assert.Empty(t, repo.students)
}

func TestStudentServiceCreateDuplicateIdentifiers(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, cutoff, zap.NewNop())

	_, err := svc.Create(context.Background(), validForm())
	require.NoError(t, err)

	errs, err := svc.Create(context.Background(), validForm())
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "NIK Sudah Digunakan!", errs[0].Message)
	assert.Equal(t, "NISN Sudah Digunakan!", errs[1].Message)
	assert.Len(t, repo.students, 1)
}

func TestStudentServiceCreateAfterCutoff(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, cutoff, zap.NewNop())

	form := validForm()
	form.TglMasuk = "2025-12-01"
	errs, err := svc.Create(context.Background(), form)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "tgl_masuk", errs[0].Field)
	assert.Empty(t, repo.students)
}

func TestStudentServiceCreateBlankDateAllowed(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, cutoff, zap.NewNop())

	form := validForm()
	form.TglMasuk = ""
	errs, err := svc.Create(context.Background(), form)
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Len(t, repo.students, 1)
}

func TestStudentServiceUpdateRequiresDate(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, cutoff, zap.NewNop())

	errs, err := svc.Update(context.Background(), StudentEditForm{NISN: "1234567890", TglMasuk: ""})
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "Tanggal masuk harus diisi!", errs[0].Message)
}

func TestStudentServiceUpdatePartialFields(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, cutoff, zap.NewNop())

	_, err := svc.Create(context.Background(), validForm())
	require.NoError(t, err)

	errs, err := svc.Update(context.Background(), StudentEditForm{
		NISN:      "1234567890",
		Tingkat:   "XI",
		Rombel:    "XI-2",
		TglMasuk:  "2024-07-15",
		Terdaftar: "Tidak Aktif",
	})
	require.NoError(t, err)
	assert.Empty(t, errs)

	stored := repo.students["1234567890"]
	assert.Equal(t, "XI", stored.Tingkat)
	assert.Equal(t, "Budi", stored.Nama)
	assert.Equal(t, "1234567890123456", stored.NIK)
}

func TestStudentServiceUpdateMissingNISNSilentSuccess(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, cutoff, zap.NewNop())

	errs, err := svc.Update(context.Background(), StudentEditForm{NISN: "0000000000", TglMasuk: "2024-07-15"})
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Empty(t, repo.students)
}

func TestStudentServiceDeleteMissingNISN(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, cutoff, zap.NewNop())

	_, err := svc.Create(context.Background(), validForm())
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "0000000000")
	require.NoError(t, err)
	assert.Len(t, repo.students, 1)
}

func TestStudentServiceGetRoundTrip(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, cutoff, zap.NewNop())

	_, err := svc.Create(context.Background(), validForm())
	require.NoError(t, err)

	student, err := svc.Get(context.Background(), "1234567890")
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Equal(t, "Budi", student.Nama)
	assert.Equal(t, "2024-07-15", student.TglMasuk)

	missing, err := svc.Get(context.Background(), "9999999999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStudentServiceExport(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, cutoff, zap.NewNop())

	_, err := svc.Create(context.Background(), validForm())
	require.NoError(t, err)

	filename, contentType, payload, err := svc.Export(context.Background(), ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "data-siswa.csv", filename)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(payload), "1234567890")

	filename, contentType, payload, err = svc.Export(context.Background(), ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "data-siswa.pdf", filename)
	assert.Equal(t, "application/pdf", contentType)
	assert.NotEmpty(t, payload)

	_, _, _, err = svc.Export(context.Background(), ExportFormat("xml"))
	require.Error(t, err)
}
