package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edumesh/edumesh-api/internal/models"
)

// SchoolRepository reads the tenant registry in the control database.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// FindActive returns an active school by ID. Inactive or unknown schools
// surface as sql.ErrNoRows so callers can map them to TenantNotFound.
func (r *SchoolRepository) FindActive(ctx context.Context, id string) (*models.School, error) {
	const query = `SELECT id, name, db_name, active, created_at, updated_at
        FROM schools WHERE id = $1 AND active = TRUE`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// CachedSchoolSource layers the Redis registry cache over SchoolRepository.
// Only positive lookups are cached; a stale inactive school ages out with TTL.
type CachedSchoolSource struct {
	repo  *SchoolRepository
	cache *CacheRepository
	ttl   time.Duration
}

// NewCachedSchoolSource constructs the caching source.
func NewCachedSchoolSource(repo *SchoolRepository, cache *CacheRepository, ttl time.Duration) *CachedSchoolSource {
	return &CachedSchoolSource{repo: repo, cache: cache, ttl: ttl}
}

// FindActive consults the cache first and falls back to the registry.
func (s *CachedSchoolSource) FindActive(ctx context.Context, id string) (*models.School, error) {
	key := "tenant:school:" + id

	if s.cache != nil {
		var cached models.School
		// Cache trouble never blocks resolution; any failure falls through.
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	school, err := s.repo.FindActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, school, s.ttl)
	}
	return school, nil
}
