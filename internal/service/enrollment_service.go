package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/edumesh/edumesh-api/internal/models"
	"github.com/edumesh/edumesh-api/internal/repository"
	"github.com/edumesh/edumesh-api/internal/tenant"
	appErrors "github.com/edumesh/edumesh-api/pkg/errors"
)

type tenantResolver interface {
	Resolve(ctx context.Context, schoolID string) (*tenant.Handle, error)
}

type enrollmentStore interface {
	FindByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Enrollment, error)
	ExistsLive(ctx context.Context, q sqlx.ExtContext, studentID, moduleID string) (bool, error)
	Create(ctx context.Context, q sqlx.ExtContext, enrollment *models.Enrollment) error
	MarkCompleted(ctx context.Context, q sqlx.ExtContext, id string, at time.Time) error
	MarkWithdrawn(ctx context.Context, q sqlx.ExtContext, id string, at time.Time) error
	List(ctx context.Context, q sqlx.ExtContext, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
}

type studentReader interface {
	FindLiveByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Student, error)
	ListActiveByYear(ctx context.Context, q sqlx.ExtContext, academicYear string) ([]models.Student, error)
}

type moduleReader interface {
	FindModuleByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.CourseModule, error)
}

type enrollmentNotifier interface {
	NotifyEnrollment(n EnrollmentNotification)
}

// BatchEnrollRequest enrolls one student into many modules.
type BatchEnrollRequest struct {
	SchoolID  string   `json:"school_id,omitempty"`
	StudentID string   `json:"student_id" validate:"required"`
	ModuleIDs []string `json:"module_ids" validate:"required,min=1,dive,required"`
	Notify    bool     `json:"notify"`
}

// BatchEnrollStudentsRequest enrolls many students into one module. With
// type ACADEMIC_YEAR and no explicit students, the module's year is expanded
// to all its active students.
type BatchEnrollStudentsRequest struct {
	SchoolID   string                `json:"school_id,omitempty"`
	ModuleID   string                `json:"module_id" validate:"required"`
	StudentIDs []string              `json:"student_ids" validate:"omitempty,dive,required"`
	Type       models.EnrollmentType `json:"type" validate:"omitempty,oneof=INDIVIDUAL ACADEMIC_YEAR"`
	Notify     bool                  `json:"notify"`
}

// EnrollmentService orchestrates batch enrollment against tenant storage.
type EnrollmentService struct {
	resolver  tenantResolver
	batch     *BatchEngine
	repo      enrollmentStore
	students  studentReader
	modules   moduleReader
	notifier  enrollmentNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(resolver tenantResolver, batch *BatchEngine, repo enrollmentStore, students studentReader, modules moduleReader, notifier enrollmentNotifier, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		resolver:  resolver,
		batch:     batch,
		repo:      repo,
		students:  students,
		modules:   modules,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// EnrollBatch enrolls one student into each requested module. Item failures
// come back as data; only whole-batch preconditions (unknown tenant, bad
// payload) error out.
func (s *EnrollmentService) EnrollBatch(ctx context.Context, actor *models.JWTClaims, req BatchEnrollRequest) (models.BatchResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.BatchResponse{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch enrollment payload")
	}

	handle, err := s.resolveFor(ctx, actor, req.SchoolID)
	if err != nil {
		return models.BatchResponse{}, err
	}

	batchID := uuid.NewString()
	response := s.batch.Run(ctx, batchID, len(req.ModuleIDs), func(ctx context.Context, i int) models.BatchItemResult {
		return s.enrollItem(ctx, handle, batchID, req.StudentID, req.ModuleIDs[i], models.EnrollmentTypeIndividual, req.Notify)
	})
	return response, nil
}

// EnrollStudentsBatch enrolls many students into one module: N runs of the
// single-student operation with concatenated results and summed counts.
func (s *EnrollmentService) EnrollStudentsBatch(ctx context.Context, actor *models.JWTClaims, req BatchEnrollStudentsRequest) (models.BatchResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.BatchResponse{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch enrollment payload")
	}

	handle, err := s.resolveFor(ctx, actor, req.SchoolID)
	if err != nil {
		return models.BatchResponse{}, err
	}

	enrollmentType := req.Type
	if enrollmentType == "" {
		enrollmentType = models.EnrollmentTypeIndividual
	}

	studentIDs := req.StudentIDs
	if enrollmentType == models.EnrollmentTypeAcademicYear && len(studentIDs) == 0 {
		module, err := s.modules.FindModuleByID(ctx, handle.DB(), req.ModuleID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.BatchResponse{}, appErrors.NotFoundKind("module")
			}
			return models.BatchResponse{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
		}
		students, err := s.students.ListActiveByYear(ctx, handle.DB(), module.AcademicYear)
		if err != nil {
			return models.BatchResponse{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expand academic year")
		}
		studentIDs = make([]string, 0, len(students))
		for _, student := range students {
			studentIDs = append(studentIDs, student.ID)
		}
	}
	if len(studentIDs) == 0 {
		return models.BatchResponse{}, appErrors.Clone(appErrors.ErrValidation, "no students to enroll")
	}

	batchID := uuid.NewString()
	response := s.batch.Run(ctx, batchID, len(studentIDs), func(ctx context.Context, i int) models.BatchItemResult {
		return s.enrollItem(ctx, handle, batchID, studentIDs[i], req.ModuleID, enrollmentType, req.Notify)
	})
	return response, nil
}

// enrollItem is the unit of work inside a batch: every precondition failure
// is a per-item result, never an error.
func (s *EnrollmentService) enrollItem(ctx context.Context, handle *tenant.Handle, batchID, studentID, moduleID string, enrollmentType models.EnrollmentType, notify bool) models.BatchItemResult {
	result := models.BatchItemResult{StudentID: studentID, ModuleID: moduleID}
	db := handle.DB()

	module, err := s.modules.FindModuleByID(ctx, db, moduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			result.Error = "module not found"
		} else {
			result.Error = "failed to load module: " + err.Error()
		}
		return result
	}
	if !module.Published {
		result.Error = "module not published"
		return result
	}

	student, err := s.students.FindLiveByID(ctx, db, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			result.Error = "student not found"
		} else {
			result.Error = "failed to load student: " + err.Error()
		}
		return result
	}
	if !student.Active {
		result.Error = "student inactive"
		return result
	}

	exists, err := s.repo.ExistsLive(ctx, db, studentID, moduleID)
	if err != nil {
		result.Error = "failed to check enrollment: " + err.Error()
		return result
	}
	if exists {
		result.Success = true
		result.WasDuplicate = true
		return result
	}

	enrollment := &models.Enrollment{
		StudentID: studentID,
		ModuleID:  moduleID,
		Status:    models.EnrollmentStatusActive,
		Type:      enrollmentType,
		BatchID:   batchID,
	}
	if err := s.repo.Create(ctx, db, enrollment); err != nil {
		// The unique index is the authoritative duplicate signal; losing the
		// check-then-write race is still a duplicate, not a failure.
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			result.Success = true
			result.WasDuplicate = true
			return result
		}
		result.Error = "failed to create enrollment: " + err.Error()
		return result
	}

	result.Success = true
	result.EnrollmentID = enrollment.ID
	if notify && s.notifier != nil {
		s.notifier.NotifyEnrollment(EnrollmentNotification{
			SchoolID:     handle.Tenant().SchoolID,
			StudentID:    studentID,
			ModuleID:     moduleID,
			EnrollmentID: enrollment.ID,
			BatchID:      batchID,
		})
	}
	return result
}

// Withdraw transitions an enrollment ACTIVE -> WITHDRAWN.
func (s *EnrollmentService) Withdraw(ctx context.Context, actor *models.JWTClaims, schoolID, id string) (*models.Enrollment, error) {
	return s.transition(ctx, actor, schoolID, id, models.EnrollmentStatusWithdrawn)
}

// Complete transitions an enrollment ACTIVE -> COMPLETED.
func (s *EnrollmentService) Complete(ctx context.Context, actor *models.JWTClaims, schoolID, id string) (*models.Enrollment, error) {
	return s.transition(ctx, actor, schoolID, id, models.EnrollmentStatusCompleted)
}

func (s *EnrollmentService) transition(ctx context.Context, actor *models.JWTClaims, schoolID, id string, target models.EnrollmentStatus) (*models.Enrollment, error) {
	handle, err := s.resolveFor(ctx, actor, schoolID)
	if err != nil {
		return nil, err
	}
	db := handle.DB()

	enrollment, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundKind("enrollment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "enrollment is not active")
	}

	now := time.Now().UTC()
	switch target {
	case models.EnrollmentStatusCompleted:
		err = s.repo.MarkCompleted(ctx, db, id, now)
	case models.EnrollmentStatusWithdrawn:
		err = s.repo.MarkWithdrawn(ctx, db, id, now)
	default:
		return nil, appErrors.Clone(appErrors.ErrInternal, "unsupported transition")
	}
	if err != nil {
		// Guarded UPDATE matched nothing: lost a race with another transition.
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "enrollment is not active")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}

	updated, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload enrollment")
	}
	return updated, nil
}

// List returns enrollments with pagination metadata; a batch_id filter serves
// batch audit queries.
func (s *EnrollmentService) List(ctx context.Context, actor *models.JWTClaims, schoolID string, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	handle, err := s.resolveFor(ctx, actor, schoolID)
	if err != nil {
		return nil, nil, err
	}

	enrollments, total, err := s.repo.List(ctx, handle.DB(), filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *EnrollmentService) resolveFor(ctx context.Context, actor *models.JWTClaims, explicitSchoolID string) (*tenant.Handle, error) {
	schoolID, err := tenant.SchoolForClaims(actor, explicitSchoolID)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, schoolID)
}
