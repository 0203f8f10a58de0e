package database

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/lakron/internal/shared/application"
)

var errNoTransaction = errors.New("no transaction in context")

// UnitOfWork implements application.UnitOfWork on a Connection. Nested units
// join the outer transaction and leave commit and rollback to it.
type UnitOfWork struct {
	conn Connection
}

// NewUnitOfWork creates a UnitOfWork on conn.
func NewUnitOfWork(conn Connection) *UnitOfWork {
	return &UnitOfWork{conn: conn}
}

// Begin starts a transaction and stores it in the returned context.
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if info, ok := txFromContext(ctx); ok {
		return withTx(ctx, info.tx, false), nil
	}

	tx, err := u.conn.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return withTx(ctx, tx, true), nil
}

// Commit commits the transaction if this unit started it.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	info, ok := txFromContext(ctx)
	if !ok {
		return errNoTransaction
	}
	if !info.owned {
		return nil
	}
	return info.tx.Commit(ctx)
}

// Rollback rolls back the transaction if this unit started it.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	info, ok := txFromContext(ctx)
	if !ok {
		return errNoTransaction
	}
	if !info.owned {
		return nil
	}
	return info.tx.Rollback(ctx)
}

// Do runs fn inside a unit of work, committing on success.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return application.WithUnitOfWork(ctx, u, fn)
}

var _ application.UnitOfWork = (*UnitOfWork)(nil)
