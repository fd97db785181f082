package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kasku/internal/domain"
	"kasku/internal/repository"
)

const createTransactionsTable = `
CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	nis TEXT NOT NULL REFERENCES users(nis),
	nominal REAL NOT NULL,
	description TEXT NOT NULL,
	type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL
);
`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) repository.TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTransactionsTable); err != nil {
		return fmt.Errorf("create transactions table: %w", err)
	}
	return nil
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) (int64, error) {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO transactions (nis, nominal, description, type, status, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		tx.NIS,
		tx.Nominal,
		tx.Description,
		string(tx.Type),
		string(tx.Status),
		tx.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction last insert id: %w", err)
	}
	tx.ID = id
	return id, nil
}

// Submitter name and username are always joined in from users; they are
// never stored on the transaction row.
const selectTransaction = `
SELECT t.id, t.nis, u.full_name, u.username, t.nominal, t.description, t.type, t.status, t.created_at
FROM transactions t
JOIN users u ON u.nis = t.nis`

func (r *TransactionRepository) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+`
WHERE t.id = ?`,
		id,
	)
	return scanTransaction(row)
}

func (r *TransactionRepository) List(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectTransaction+`
ORDER BY t.created_at DESC, t.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *TransactionRepository) ListByStatus(ctx context.Context, status domain.TransactionStatus) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectTransaction+`
WHERE t.status = ?
ORDER BY t.created_at DESC, t.id DESC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions by status: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, status domain.TransactionStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE transactions SET status = ?
WHERE id = ? AND status = ?`,
		string(status), id, string(domain.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Either the row does not exist or it already left pending.
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return repository.ErrNotPending
	}
	return nil
}

func (r *TransactionRepository) UpdateStatusAll(ctx context.Context, status domain.TransactionStatus) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE transactions SET status = ?
WHERE status = ?`,
		string(status), string(domain.StatusPending),
	)
	if err != nil {
		return 0, fmt.Errorf("bulk update transaction status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func collectTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func scanTransaction(row interface {
	Scan(dest ...any) error
}) (*domain.Transaction, error) {
	var (
		tx     domain.Transaction
		typ    string
		status string
	)
	if err := row.Scan(
		&tx.ID,
		&tx.NIS,
		&tx.FullName,
		&tx.Username,
		&tx.Nominal,
		&tx.Description,
		&typ,
		&status,
		&tx.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = domain.TransactionType(typ)
	tx.Status = domain.TransactionStatus(status)
	return &tx, nil
}
