package tenant

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/edumesh/edumesh-api/pkg/errors"
)

type txMarker struct{}

// Handle scopes storage access to one tenant's database. Handles are stateless
// wrappers over a pooled connection and are shared across requests.
type Handle struct {
	tenant Context
	db     *sqlx.DB
}

// NewHandle wraps an open tenant database.
func NewHandle(tc Context, db *sqlx.DB) *Handle {
	return &Handle{tenant: tc, db: db}
}

// Tenant returns the scope this handle is bound to.
func (h *Handle) Tenant() Context {
	return h.tenant
}

// DB exposes the underlying connection for non-transactional access.
func (h *Handle) DB() *sqlx.DB {
	return h.db
}

// Close releases the underlying connection. Only the resolver discards
// handles; callers never close what they resolved.
func (h *Handle) Close() error {
	return h.db.Close()
}

// WithinTx runs fn inside a transaction: every write commits together or none
// do. An error or panic from fn rolls back. Nesting is a programming error,
// not a supported mode, and is rejected outright.
func (h *Handle) WithinTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) (err error) {
	if ctx.Value(txMarker{}) != nil {
		return appErrors.Wrap(fmt.Errorf("nested WithinTx on tenant %s", h.tenant.SchoolID),
			appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "nested transaction")
	}

	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txMarker{}, h.tenant.DBName), tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return nil
}
