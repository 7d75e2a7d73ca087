package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/edumesh/edumesh-api/internal/models"
)

// StudentRepository reads students from a tenant database. The executor is
// passed per call so the same queries run on a handle or inside its
// transaction.
type StudentRepository struct{}

// NewStudentRepository constructs the repository.
func NewStudentRepository() *StudentRepository {
	return &StudentRepository{}
}

// FindLiveByID returns a non-deleted student.
func (r *StudentRepository) FindLiveByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Student, error) {
	const query = `SELECT id, full_name, academic_year, active, created_at, updated_at, deleted_at
        FROM students WHERE id = $1 AND deleted_at IS NULL`
	var student models.Student
	if err := sqlx.GetContext(ctx, q, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListActiveByYear returns all active students of one academic year, used to
// expand ACADEMIC_YEAR batch enrollments.
func (r *StudentRepository) ListActiveByYear(ctx context.Context, q sqlx.ExtContext, academicYear string) ([]models.Student, error) {
	const query = `SELECT id, full_name, academic_year, active, created_at, updated_at, deleted_at
        FROM students WHERE academic_year = $1 AND active = TRUE AND deleted_at IS NULL
        ORDER BY full_name`
	var students []models.Student
	if err := sqlx.SelectContext(ctx, q, &students, query, academicYear); err != nil {
		return nil, err
	}
	return students, nil
}
