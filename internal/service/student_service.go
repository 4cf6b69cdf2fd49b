package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/siswa-admin/internal/models"
	"github.com/noah-isme/siswa-admin/internal/validation"
	"github.com/noah-isme/siswa-admin/pkg/export"
	appErrors "github.com/noah-isme/siswa-admin/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context) ([]models.Student, error)
	FindByNISN(ctx context.Context, nisn string) (*models.Student, error)
	ExistsByNIK(ctx context.Context, nik string) (bool, error)
	ExistsByNISN(ctx context.Context, nisn string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateByNISN(ctx context.Context, update models.StudentUpdate) error
	DeleteByNISN(ctx context.Context, nisn string) error
}

// StudentForm carries the add-student submission.
type StudentForm struct {
	NIK       string `form:"nik"`
	NISN      string `form:"nisn"`
	Nama      string `form:"nama"`
	Tingkat   string `form:"tingkat"`
	Rombel    string `form:"rombel"`
	TglMasuk  string `form:"tgl_masuk"`
	Terdaftar string `form:"terdaftar"`
}

// StudentEditForm carries the edit-student submission; only the mutable
// fields plus the NISN used for matching.
type StudentEditForm struct {
	NISN      string `form:"nisn"`
	NIK       string `form:"nik"`
	Nama      string `form:"nama"`
	Tingkat   string `form:"tingkat"`
	Rombel    string `form:"rombel"`
	TglMasuk  string `form:"tgl_masuk"`
	Terdaftar string `form:"terdaftar"`
}

// ExportFormat selects the download encoding for the student list.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// StudentService handles student record use-cases.
type StudentService struct {
	repo   studentRepository
	cutoff time.Time
	logger *zap.Logger
}

// NewStudentService constructs the student service. The cutoff bounds
// tgl_masuk on add and edit.
func NewStudentService(repo studentRepository, cutoff time.Time, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cutoff: cutoff, logger: logger}
}

// List returns every student record.
func (s *StudentService) List(ctx context.Context) ([]models.Student, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// Get returns one student by NISN, or nil when no record matches. The edit
// form renders a zero-value record for a missing NISN instead of a 404.
func (s *StudentService) Get(ctx context.Context, nisn string) (*models.Student, error) {
	student, err := s.repo.FindByNISN(ctx, nisn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *StudentService) addRules(form StudentForm) []validation.Field {
	return []validation.Field{
		{
			Name:  "nik",
			Value: form.NIK,
			Rules: []validation.Rule{
				{Test: validation.ExactLength(16), Message: "NIK harus 16 digit!"},
				{Test: validation.Numeric, Message: "NIK harus berupa angka!"},
			},
			Async: []validation.AsyncRule{
				{Exists: s.repo.ExistsByNIK, Message: "NIK Sudah Digunakan!"},
			},
		},
		{
			Name:  "nisn",
			Value: form.NISN,
			Rules: []validation.Rule{
				{Test: validation.ExactLength(10), Message: "NISN harus 10 digit!"},
				{Test: validation.Numeric, Message: "NISN harus berupa angka!"},
			},
			Async: []validation.AsyncRule{
				{Exists: s.repo.ExistsByNISN, Message: "NISN Sudah Digunakan!"},
			},
		},
		{
			Name:  "tgl_masuk",
			Value: form.TglMasuk,
			Rules: []validation.Rule{
				{Test: validation.DateNotAfter(s.cutoff), Message: "Tanggal masuk tidak boleh melebihi 26 November 2025!"},
			},
		},
	}
}

func (s *StudentService) editRules(form StudentEditForm) []validation.Field {
	return []validation.Field{
		{
			Name:  "tgl_masuk",
			Value: form.TglMasuk,
			Rules: []validation.Rule{
				{Test: validation.NotEmpty, Message: "Tanggal masuk harus diisi!"},
				{Test: validation.DateNotAfter(s.cutoff), Message: "Tanggal masuk tidak boleh melebihi 26 November 2025!"},
			},
		},
	}
}

// Create validates the submission and inserts the record. A non-empty
// FieldError list means nothing was written.
func (s *StudentService) Create(ctx context.Context, form StudentForm) ([]validation.FieldError, error) {
	errs, err := validation.Evaluate(ctx, s.addRules(form))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student")
	}
	if len(errs) > 0 {
		return errs, nil
	}

	student := &models.Student{
		NIK:       form.NIK,
		NISN:      form.NISN,
		Nama:      form.Nama,
		Tingkat:   form.Tingkat,
		Rombel:    form.Rombel,
		TglMasuk:  form.TglMasuk,
		Terdaftar: form.Terdaftar,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return nil, nil
}

// Update validates the submission and applies the partial update by NISN. A
// NISN matching no record still reports success; the update is a no-op then.
func (s *StudentService) Update(ctx context.Context, form StudentEditForm) ([]validation.FieldError, error) {
	errs, err := validation.Evaluate(ctx, s.editRules(form))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student")
	}
	if len(errs) > 0 {
		return errs, nil
	}

	update := models.StudentUpdate{
		NISN:      form.NISN,
		Tingkat:   form.Tingkat,
		Rombel:    form.Rombel,
		TglMasuk:  form.TglMasuk,
		Terdaftar: form.Terdaftar,
	}
	if err := s.repo.UpdateByNISN(ctx, update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return nil, nil
}

// Delete removes the record matching the NISN. Deleting a missing NISN is
// not an error.
func (s *StudentService) Delete(ctx context.Context, nisn string) error {
	if err := s.repo.DeleteByNISN(ctx, nisn); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

// Export renders the full student list in the requested format.
func (s *StudentService) Export(ctx context.Context, format ExportFormat) (filename, contentType string, data []byte, err error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return "", "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	dataset := export.Dataset{
		Headers: []string{"NIK", "NISN", "Nama", "Tingkat", "Rombel", "Tanggal Masuk", "Terdaftar"},
	}
	for _, st := range students {
		dataset.Rows = append(dataset.Rows, []string{st.NIK, st.NISN, st.Nama, st.Tingkat, st.Rombel, st.TglMasuk, st.Terdaftar})
	}

	switch format {
	case ExportPDF:
		payload, err := export.PDF(dataset, "Data Siswa")
		if err != nil {
			return "", "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return "data-siswa.pdf", "application/pdf", payload, nil
	case ExportCSV, "":
		payload, err := export.CSV(dataset)
		if err != nil {
			return "", "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return "data-siswa.csv", "text/csv", payload, nil
	default:
		return "", "", nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
