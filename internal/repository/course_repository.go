package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/edumesh/edumesh-api/internal/models"
)

// CourseRepository reads course modules and chapters from a tenant database.
type CourseRepository struct{}

// NewCourseRepository constructs the repository.
func NewCourseRepository() *CourseRepository {
	return &CourseRepository{}
}

// FindModuleByID returns a non-deleted course module.
func (r *CourseRepository) FindModuleByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.CourseModule, error) {
	const query = `SELECT id, title, academic_year, published, created_at, updated_at, deleted_at
        FROM course_modules WHERE id = $1 AND deleted_at IS NULL`
	var module models.CourseModule
	if err := sqlx.GetContext(ctx, q, &module, query, id); err != nil {
		return nil, err
	}
	return &module, nil
}

// FindChapterByID returns a non-deleted chapter.
func (r *CourseRepository) FindChapterByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Chapter, error) {
	const query = `SELECT id, module_id, title, sequence, created_at, updated_at, deleted_at
        FROM chapters WHERE id = $1 AND deleted_at IS NULL`
	var chapter models.Chapter
	if err := sqlx.GetContext(ctx, q, &chapter, query, id); err != nil {
		return nil, err
	}
	return &chapter, nil
}
