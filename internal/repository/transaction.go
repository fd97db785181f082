package repository

import (
	"context"
	"errors"

	"kasku/internal/domain"
)

// ErrNotPending is returned by status updates whose target row is no
// longer pending; approved and rejected are terminal.
var ErrNotPending = errors.New("transaction is not pending")

// TransactionRepository exposes persistence operations for transactions.
// Reads join the submitter's user row so FullName and Username are always
// derived, never cached, and return rows ordered by created_at descending.
type TransactionRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, tx *domain.Transaction) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Transaction, error)
	List(ctx context.Context) ([]domain.Transaction, error)
	ListByStatus(ctx context.Context, status domain.TransactionStatus) ([]domain.Transaction, error)
	// UpdateStatus moves a single pending row to the given status.
	UpdateStatus(ctx context.Context, id int64, status domain.TransactionStatus) error
	// UpdateStatusAll moves every pending row to the given status in one
	// statement and reports how many rows changed. Zero is not an error.
	UpdateStatusAll(ctx context.Context, status domain.TransactionStatus) (int64, error)
}
