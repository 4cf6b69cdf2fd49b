package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siswa-admin/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns every student record ordered by creation time.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	const query = `SELECT id, nik, nisn, nama, tingkat, rombel, tgl_masuk, terdaftar, created_at, updated_at FROM students ORDER BY created_at ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByNISN fetches one student by NISN. Returns sql.ErrNoRows when absent.
func (r *StudentRepository) FindByNISN(ctx context.Context, nisn string) (*models.Student, error) {
	const query = `SELECT id, nik, nisn, nama, tingkat, rombel, tgl_masuk, terdaftar, created_at, updated_at FROM students WHERE nisn = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, nisn); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by nisn: %w", err)
	}
	return &student, nil
}

// ExistsByNIK checks if a student with the given NIK exists.
func (r *StudentRepository) ExistsByNIK(ctx context.Context, nik string) (bool, error) {
	const query = `SELECT 1 FROM students WHERE nik = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, nik); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check nik: %w", err)
	}
	return true, nil
}

// ExistsByNISN checks if a student with the given NISN exists.
func (r *StudentRepository) ExistsByNISN(ctx context.Context, nisn string) (bool, error) {
	const query = `SELECT 1 FROM students WHERE nisn = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, nisn); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check nisn: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, nik, nisn, nama, tingkat, rombel, tgl_masuk, terdaftar, created_at, updated_at)
        VALUES (:id, :nik, :nisn, :nama, :tingkat, :rombel, :tgl_masuk, :terdaftar, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// UpdateByNISN modifies the mutable fields of the student matching the NISN.
// No rows are touched when the NISN matches nothing; callers do not learn
// about that and the flow still reports success.
func (r *StudentRepository) UpdateByNISN(ctx context.Context, update models.StudentUpdate) error {
	const query = `UPDATE students SET tingkat = :tingkat, rombel = :rombel, tgl_masuk = :tgl_masuk, terdaftar = :terdaftar, updated_at = :updated_at WHERE nisn = :nisn`
	args := struct {
		models.StudentUpdate
		UpdatedAt time.Time `db:"updated_at"`
	}{StudentUpdate: update, UpdatedAt: time.Now().UTC()}
	if _, err := r.db.NamedExecContext(ctx, query, args); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// DeleteByNISN removes the student matching the NISN, if any.
func (r *StudentRepository) DeleteByNISN(ctx context.Context, nisn string) error {
	const query = `DELETE FROM students WHERE nisn = $1`
	if _, err := r.db.ExecContext(ctx, query, nisn); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
