package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edumesh/edumesh-api/internal/models"
)

// Sentinel errors surfaced by repositories for callers to translate.
var (
	// ErrDuplicateEnrollment marks a unique-index violation on
	// (student_id, module_id) among live rows. The index is the authoritative
	// duplicate signal under concurrency; the pre-read is only a fast path.
	ErrDuplicateEnrollment = errors.New("enrollment already exists")
	// ErrNoRowsAffected marks an update that matched nothing.
	ErrNoRowsAffected = errors.New("no rows affected")
)

const uniqueViolation = "23505"

// EnrollmentRepository persists enrollments of a tenant database.
type EnrollmentRepository struct{}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository() *EnrollmentRepository {
	return &EnrollmentRepository{}
}

const enrollmentColumns = `id, student_id, module_id, status, type, batch_id,
        enrolled_at, withdrawn_at, completed_at, created_at, updated_at, deleted_at`

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1 AND deleted_at IS NULL`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, q, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsLive checks for a live enrollment of the (student, module) pair.
func (r *EnrollmentRepository) ExistsLive(ctx context.Context, q sqlx.ExtContext, studentID, moduleID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments
        WHERE student_id = $1 AND module_id = $2 AND deleted_at IS NULL LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, q, &exists, query, studentID, moduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment. A unique-index violation on the live
// (student, module) pair comes back as ErrDuplicateEnrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, q sqlx.ExtContext, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments
        (id, student_id, module_id, status, type, batch_id, enrolled_at, created_at, updated_at)
        VALUES (:id, :student_id, :module_id, :status, :type, :batch_id, :enrolled_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, enrollment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// MarkCompleted transitions an ACTIVE enrollment to COMPLETED.
func (r *EnrollmentRepository) MarkCompleted(ctx context.Context, q sqlx.ExtContext, id string, at time.Time) error {
	const query = `UPDATE enrollments SET status = $2, completed_at = $3, updated_at = $3
        WHERE id = $1 AND status = $4 AND deleted_at IS NULL`
	return r.transition(ctx, q, query, id, models.EnrollmentStatusCompleted, at)
}

// MarkWithdrawn transitions an ACTIVE enrollment to WITHDRAWN.
func (r *EnrollmentRepository) MarkWithdrawn(ctx context.Context, q sqlx.ExtContext, id string, at time.Time) error {
	const query = `UPDATE enrollments SET status = $2, withdrawn_at = $3, updated_at = $3
        WHERE id = $1 AND status = $4 AND deleted_at IS NULL`
	return r.transition(ctx, q, query, id, models.EnrollmentStatusWithdrawn, at)
}

func (r *EnrollmentRepository) transition(ctx context.Context, q sqlx.ExtContext, query, id string, status models.EnrollmentStatus, at time.Time) error {
	res, err := q.ExecContext(ctx, query, id, status, at, models.EnrollmentStatusActive)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, q sqlx.ExtContext, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []interface{}

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.ModuleID != "" {
		args = append(args, filter.ModuleID)
		conditions = append(conditions, fmt.Sprintf("module_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		conditions = append(conditions, fmt.Sprintf("batch_id = $%d", len(args)))
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM enrollments%s ORDER BY enrolled_at DESC LIMIT %d OFFSET %d`,
		enrollmentColumns, clause, size, offset)

	var enrollments []models.Enrollment
	if err := sqlx.SelectContext(ctx, q, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM enrollments" + clause
	var total int
	if err := sqlx.GetContext(ctx, q, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}
