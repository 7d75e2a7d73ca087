package tenant

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/edumesh/edumesh-api/internal/models"
	appErrors "github.com/edumesh/edumesh-api/pkg/errors"
)

// SchoolSource looks up active schools in the tenant registry.
type SchoolSource interface {
	FindActive(ctx context.Context, id string) (*models.School, error)
}

// Opener establishes a connection to one tenant database by name.
type Opener func(dbName string) (*sqlx.DB, error)

// ResolutionObserver receives resolution events, labelled "cache" when the
// handle was already established and "open" when a connection was made.
type ResolutionObserver interface {
	ObserveTenantResolution(source string)
}

// Resolver maps a school to its storage handle. Handles are cached forever by
// db name: the cache is read-heavy and append-only, tenants are never removed
// at runtime. Two requests racing on an unseen tenant may both open a
// connection; the loser's handle is closed and discarded.
type Resolver struct {
	schools SchoolSource
	open    Opener
	handles sync.Map // db_name -> *Handle
	logger  *zap.Logger
	metrics ResolutionObserver
}

// NewResolver constructs a Resolver.
func NewResolver(schools SchoolSource, open Opener, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{schools: schools, open: open, logger: logger}
}

// WithMetrics attaches a resolution observer and returns the resolver.
func (r *Resolver) WithMetrics(m ResolutionObserver) *Resolver {
	r.metrics = m
	return r
}

// Resolve returns the storage handle for a school, establishing it on first
// use. Unknown or inactive schools fail with ErrTenantNotFound.
func (r *Resolver) Resolve(ctx context.Context, schoolID string) (*Handle, error) {
	if schoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "school id is required")
	}

	school, err := r.schools.FindActive(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTenantNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve school")
	}

	if cached, ok := r.handles.Load(school.DBName); ok {
		r.observe("cache")
		return cached.(*Handle), nil
	}

	db, err := r.open(school.DBName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open tenant database")
	}

	handle := NewHandle(Context{SchoolID: school.ID, DBName: school.DBName}, db)
	if existing, loaded := r.handles.LoadOrStore(school.DBName, handle); loaded {
		// Lost a concurrent population race; the redundant connection goes away.
		_ = handle.Close()
		r.observe("cache")
		return existing.(*Handle), nil
	}
	r.observe("open")

	r.logger.Info("tenant handle established",
		zap.String("school_id", school.ID),
		zap.String("db_name", school.DBName),
	)
	return handle, nil
}

func (r *Resolver) observe(source string) {
	if r.metrics != nil {
		r.metrics.ObserveTenantResolution(source)
	}
}
