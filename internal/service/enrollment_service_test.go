package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edumesh/edumesh-api/internal/models"
	"github.com/edumesh/edumesh-api/internal/repository"
	"github.com/edumesh/edumesh-api/internal/tenant"
	appErrors "github.com/edumesh/edumesh-api/pkg/errors"
)

func newTestHandle(t *testing.T) (*tenant.Handle, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	handle := tenant.NewHandle(tenant.Context{SchoolID: "school-1", DBName: "edumesh_school_1"}, sqlx.NewDb(db, "sqlmock"))
	return handle, mock
}

type fakeResolver struct {
	handle   *tenant.Handle
	err      error
	resolved []string
}

func (f *fakeResolver) Resolve(ctx context.Context, schoolID string) (*tenant.Handle, error) {
	f.resolved = append(f.resolved, schoolID)
	if f.err != nil {
		return nil, f.err
	}
	return f.handle, nil
}

type fakeEnrollmentStore struct {
	enrollments map[string]models.Enrollment
	existing    map[string]bool
	createErr   error
	created     []models.Enrollment
	completed   []string
	withdrawn   []string
	listed      models.EnrollmentFilter
}

func (f *fakeEnrollmentStore) key(studentID, moduleID string) string {
	return studentID + "/" + moduleID
}

func (f *fakeEnrollmentStore) FindByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Enrollment, error) {
	if e, ok := f.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollmentStore) ExistsLive(ctx context.Context, q sqlx.ExtContext, studentID, moduleID string) (bool, error) {
	return f.existing[f.key(studentID, moduleID)], nil
}

func (f *fakeEnrollmentStore) Create(ctx context.Context, q sqlx.ExtContext, enrollment *models.Enrollment) error {
	if f.createErr != nil {
		return f.createErr
	}
	if enrollment.ID == "" {
		enrollment.ID = "enroll-" + enrollment.StudentID + "-" + enrollment.ModuleID
	}
	if f.enrollments == nil {
		f.enrollments = make(map[string]models.Enrollment)
	}
	f.enrollments[enrollment.ID] = *enrollment
	f.created = append(f.created, *enrollment)
	return nil
}

func (f *fakeEnrollmentStore) MarkCompleted(ctx context.Context, q sqlx.ExtContext, id string, at time.Time) error {
	e, ok := f.enrollments[id]
	if !ok || e.Status != models.EnrollmentStatusActive {
		return repository.ErrNoRowsAffected
	}
	e.Status = models.EnrollmentStatusCompleted
	e.CompletedAt = &at
	f.enrollments[id] = e
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeEnrollmentStore) MarkWithdrawn(ctx context.Context, q sqlx.ExtContext, id string, at time.Time) error {
	e, ok := f.enrollments[id]
	if !ok || e.Status != models.EnrollmentStatusActive {
		return repository.ErrNoRowsAffected
	}
	e.Status = models.EnrollmentStatusWithdrawn
	e.WithdrawnAt = &at
	f.enrollments[id] = e
	f.withdrawn = append(f.withdrawn, id)
	return nil
}

func (f *fakeEnrollmentStore) List(ctx context.Context, q sqlx.ExtContext, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	f.listed = filter
	var list []models.Enrollment
	for _, e := range f.enrollments {
		list = append(list, e)
	}
	return list, len(list), nil
}

type fakeStudentReader struct {
	students map[string]*models.Student
	byYear   map[string][]models.Student
}

func (f *fakeStudentReader) FindLiveByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Student, error) {
	if s, ok := f.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentReader) ListActiveByYear(ctx context.Context, q sqlx.ExtContext, academicYear string) ([]models.Student, error) {
	return f.byYear[academicYear], nil
}

type fakeModuleReader struct {
	modules map[string]*models.CourseModule
}

func (f *fakeModuleReader) FindModuleByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.CourseModule, error) {
	if m, ok := f.modules[id]; ok {
		return m, nil
	}
	return nil, sql.ErrNoRows
}

type fakeNotifier struct {
	notifications []EnrollmentNotification
}

func (f *fakeNotifier) NotifyEnrollment(n EnrollmentNotification) {
	f.notifications = append(f.notifications, n)
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleSchoolAdmin, SchoolID: "school-1"}
}

func newEnrollmentFixture(t *testing.T) (*EnrollmentService, *fakeEnrollmentStore, *fakeNotifier) {
	handle, _ := newTestHandle(t)
	repo := &fakeEnrollmentStore{}
	students := &fakeStudentReader{students: map[string]*models.Student{
		"s1": {ID: "s1", FullName: "Ana", Active: true},
		"s2": {ID: "s2", FullName: "Bram", Active: true},
		"s3": {ID: "s3", FullName: "Cok", Active: false},
	}}
	modules := &fakeModuleReader{modules: map[string]*models.CourseModule{
		"m1": {ID: "m1", Title: "Algebra", AcademicYear: "2026", Published: true},
		"m2": {ID: "m2", Title: "Drafts", AcademicYear: "2026", Published: false},
	}}
	notifier := &fakeNotifier{}
	svc := NewEnrollmentService(&fakeResolver{handle: handle}, NewBatchEngine(zap.NewNop(), nil), repo, students, modules, notifier, nil, zap.NewNop())
	return svc, repo, notifier
}

func TestEnrollBatchSuccess(t *testing.T) {
	svc, repo, notifier := newEnrollmentFixture(t)

	response, err := svc.EnrollBatch(context.Background(), adminClaims(), BatchEnrollRequest{
		StudentID: "s1",
		ModuleIDs: []string{"m1"},
		Notify:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, response.Successful)
	assert.Equal(t, 0, response.Failed)
	require.Len(t, repo.created, 1)
	assert.Equal(t, response.BatchID, repo.created[0].BatchID)
	assert.Equal(t, models.EnrollmentStatusActive, repo.created[0].Status)
	require.Len(t, notifier.notifications, 1)
	assert.Equal(t, "school-1", notifier.notifications[0].SchoolID)
}

func TestEnrollBatchUnpublishedModuleFailsItemOnly(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(t)

	response, err := svc.EnrollBatch(context.Background(), adminClaims(), BatchEnrollRequest{
		StudentID: "s1",
		ModuleIDs: []string{"m1", "m2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, response.TotalRequested)
	assert.Equal(t, 1, response.Successful)
	assert.Equal(t, 1, response.Failed)
	assert.Equal(t, 0, response.Skipped)
	require.Len(t, response.Results, 2)
	assert.True(t, response.Results[0].Success)
	assert.Equal(t, "module not published", response.Results[1].Error)
	assert.Len(t, repo.created, 1)
}

func TestEnrollBatchDuplicateSkipped(t *testing.T) {
	svc, repo, notifier := newEnrollmentFixture(t)
	repo.existing = map[string]bool{"s1/m1": true}

	response, err := svc.EnrollBatch(context.Background(), adminClaims(), BatchEnrollRequest{
		StudentID: "s1",
		ModuleIDs: []string{"m1"},
		Notify:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, response.Successful)
	assert.Equal(t, 1, response.Skipped)
	require.Len(t, response.Results, 1)
	assert.True(t, response.Results[0].Success)
	assert.True(t, response.Results[0].WasDuplicate)
	assert.Empty(t, repo.created)
	assert.Empty(t, notifier.notifications)
}

func TestEnrollBatchDuplicateRaceSkipped(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(t)
	repo.createErr = repository.ErrDuplicateEnrollment

	response, err := svc.EnrollBatch(context.Background(), adminClaims(), BatchEnrollRequest{
		StudentID: "s1",
		ModuleIDs: []string{"m1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, response.Skipped)
	assert.Equal(t, 0, response.Failed)
	assert.True(t, response.Results[0].WasDuplicate)
}

func TestEnrollBatchInactiveStudent(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t)

	response, err := svc.EnrollBatch(context.Background(), adminClaims(), BatchEnrollRequest{
		StudentID: "s3",
		ModuleIDs: []string{"m1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, response.Failed)
	assert.Equal(t, "student inactive", response.Results[0].Error)
}

func TestEnrollStudentsBatchAcademicYearExpansion(t *testing.T) {
	handle, _ := newTestHandle(t)
	repo := &fakeEnrollmentStore{}
	students := &fakeStudentReader{
		students: map[string]*models.Student{
			"s1": {ID: "s1", Active: true},
			"s2": {ID: "s2", Active: true},
		},
		byYear: map[string][]models.Student{
			"2026": {{ID: "s1", Active: true}, {ID: "s2", Active: true}},
		},
	}
	modules := &fakeModuleReader{modules: map[string]*models.CourseModule{
		"m1": {ID: "m1", AcademicYear: "2026", Published: true},
	}}
	svc := NewEnrollmentService(&fakeResolver{handle: handle}, NewBatchEngine(zap.NewNop(), nil), repo, students, modules, nil, nil, zap.NewNop())

	response, err := svc.EnrollStudentsBatch(context.Background(), adminClaims(), BatchEnrollStudentsRequest{
		ModuleID: "m1",
		Type:     models.EnrollmentTypeAcademicYear,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, response.TotalRequested)
	assert.Equal(t, 2, response.Successful)
	for _, created := range repo.created {
		assert.Equal(t, models.EnrollmentTypeAcademicYear, created.Type)
	}
}

func TestEnrollBatchOperatorNeedsExplicitSchool(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t)
	operator := &models.JWTClaims{UserID: "op-1", Role: models.RoleOperator}

	_, err := svc.EnrollBatch(context.Background(), operator, BatchEnrollRequest{
		StudentID: "s1",
		ModuleIDs: []string{"m1"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWithdrawThenWithdrawAgain(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(t)
	repo.enrollments = map[string]models.Enrollment{
		"e1": {ID: "e1", StudentID: "s1", ModuleID: "m1", Status: models.EnrollmentStatusActive},
	}

	updated, err := svc.Withdraw(context.Background(), adminClaims(), "", "e1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWithdrawn, updated.Status)
	assert.NotNil(t, updated.WithdrawnAt)

	_, err = svc.Withdraw(context.Background(), adminClaims(), "", "e1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestCompleteWithdrawnEnrollmentRejected(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(t)
	repo.enrollments = map[string]models.Enrollment{
		"e1": {ID: "e1", Status: models.EnrollmentStatusWithdrawn},
	}

	_, err := svc.Complete(context.Background(), adminClaims(), "", "e1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentListPagination(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(t)
	repo.enrollments = map[string]models.Enrollment{
		"e1": {ID: "e1", BatchID: "b1"},
	}

	_, page, err := svc.List(context.Background(), adminClaims(), "", models.EnrollmentFilter{BatchID: "b1"})
	require.NoError(t, err)
	assert.Equal(t, "b1", repo.listed.BatchID)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 1, page.TotalCount)
}
