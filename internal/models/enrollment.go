package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// ACTIVE may move to COMPLETED or WITHDRAWN; both are terminal.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusWithdrawn EnrollmentStatus = "WITHDRAWN"
)

// EnrollmentType records how the enrollment was requested.
type EnrollmentType string

const (
	EnrollmentTypeIndividual   EnrollmentType = "INDIVIDUAL"
	EnrollmentTypeAcademicYear EnrollmentType = "ACADEMIC_YEAR"
)

// Enrollment registers a student into a course module. Batch-created rows are
// stamped with the batch_id for later audit queries.
type Enrollment struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	ModuleID    string           `db:"module_id" json:"module_id"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	Type        EnrollmentType   `db:"type" json:"type"`
	BatchID     string           `db:"batch_id" json:"batch_id,omitempty"`
	EnrolledAt  time.Time        `db:"enrolled_at" json:"enrolled_at"`
	WithdrawnAt *time.Time       `db:"withdrawn_at" json:"withdrawn_at,omitempty"`
	CompletedAt *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	Audit
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	ModuleID  string
	Status    EnrollmentStatus
	BatchID   string
	Page      int
	PageSize  int
}
