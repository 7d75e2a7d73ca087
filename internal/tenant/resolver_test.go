package tenant

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edumesh/edumesh-api/internal/models"
	appErrors "github.com/edumesh/edumesh-api/pkg/errors"
)

type fakeSchoolSource struct {
	schools map[string]*models.School
}

func (f *fakeSchoolSource) FindActive(ctx context.Context, id string) (*models.School, error) {
	if s, ok := f.schools[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func mockOpener(t *testing.T, opened *int64) Opener {
	return func(dbName string) (*sqlx.DB, error) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		if opened != nil {
			atomic.AddInt64(opened, 1)
		}
		return sqlx.NewDb(db, "sqlmock"), nil
	}
}

func TestResolverCachesHandles(t *testing.T) {
	var opened int64
	source := &fakeSchoolSource{schools: map[string]*models.School{
		"sch-1": {ID: "sch-1", DBName: "tenant_sch_1", Active: true},
	}}
	resolver := NewResolver(source, mockOpener(t, &opened), zap.NewNop())

	first, err := resolver.Resolve(context.Background(), "sch-1")
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), "sch-1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.EqualValues(t, 1, opened)
	assert.Equal(t, "tenant_sch_1", first.Tenant().DBName)
}

func TestResolverUnknownTenant(t *testing.T) {
	resolver := NewResolver(&fakeSchoolSource{}, mockOpener(t, nil), zap.NewNop())

	_, err := resolver.Resolve(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTenantNotFound.Code, appErrors.FromError(err).Code)
}

func TestResolverEmptySchoolID(t *testing.T) {
	resolver := NewResolver(&fakeSchoolSource{}, mockOpener(t, nil), zap.NewNop())

	_, err := resolver.Resolve(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResolverConcurrentPopulation(t *testing.T) {
	source := &fakeSchoolSource{schools: map[string]*models.School{
		"sch-1": {ID: "sch-1", DBName: "tenant_sch_1", Active: true},
	}}
	resolver := NewResolver(source, mockOpener(t, nil), zap.NewNop())

	const n = 16
	handles := make([]*Handle, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := resolver.Resolve(context.Background(), "sch-1")
			require.NoError(t, err)
			handles[i] = h
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, handles[0], handles[i])
	}
}

func TestSchoolForClaims(t *testing.T) {
	operator := &models.JWTClaims{UserID: "u1", Role: models.RoleOperator}
	professor := &models.JWTClaims{UserID: "u2", Role: models.RoleProfessor, SchoolID: "sch-1"}

	id, err := SchoolForClaims(operator, "sch-9")
	require.NoError(t, err)
	assert.Equal(t, "sch-9", id)

	_, err = SchoolForClaims(operator, "")
	require.Error(t, err)

	id, err = SchoolForClaims(professor, "")
	require.NoError(t, err)
	assert.Equal(t, "sch-1", id)

	_, err = SchoolForClaims(professor, "sch-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = SchoolForClaims(nil, "sch-1")
	require.Error(t, err)
}
