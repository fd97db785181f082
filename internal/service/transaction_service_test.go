package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasku/internal/domain"
	"kasku/internal/repository"
)

type fakeTxRepo struct {
	txs    []domain.Transaction
	nextID int64
}

func (r *fakeTxRepo) Init(context.Context) error { return nil }

func (r *fakeTxRepo) Create(_ context.Context, tx *domain.Transaction) (int64, error) {
	r.nextID++
	tx.ID = r.nextID
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	r.txs = append(r.txs, *tx)
	return tx.ID, nil
}

func (r *fakeTxRepo) Get(_ context.Context, id int64) (*domain.Transaction, error) {
	for i := range r.txs {
		if r.txs[i].ID == id {
			copied := r.txs[i]
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTxRepo) List(context.Context) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, len(r.txs))
	copy(out, r.txs)
	return out, nil
}

func (r *fakeTxRepo) ListByStatus(_ context.Context, status domain.TransactionStatus) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range r.txs {
		if tx.Status == status {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *fakeTxRepo) UpdateStatus(_ context.Context, id int64, status domain.TransactionStatus) error {
	for i := range r.txs {
		if r.txs[i].ID != id {
			continue
		}
		if r.txs[i].Status != domain.StatusPending {
			return repository.ErrNotPending
		}
		r.txs[i].Status = status
		return nil
	}
	return repository.ErrNotFound
}

func (r *fakeTxRepo) UpdateStatusAll(_ context.Context, status domain.TransactionStatus) (int64, error) {
	var affected int64
	for i := range r.txs {
		if r.txs[i].Status == domain.StatusPending {
			r.txs[i].Status = status
			affected++
		}
	}
	return affected, nil
}

var (
	adminActor  = &domain.User{NIS: "0001", Username: "admin", Role: domain.RoleAdmin}
	memberActor = &domain.User{NIS: "0002", Username: "siswa1", Role: domain.RoleUser}
)

func TestCreateStatusFollowsActorRole(t *testing.T) {
	svc := NewTransactionService(&fakeTxRepo{})
	ctx := context.Background()

	fromMember, err := svc.Create(ctx, memberActor, 5000, "Kas", domain.TypeIncome)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, fromMember.Status)
	assert.Equal(t, "0002", fromMember.NIS)

	fromAdmin, err := svc.Create(ctx, adminActor, 100000, "Event", domain.TypeExpense)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, fromAdmin.Status)
}

func TestCreateValidation(t *testing.T) {
	svc := NewTransactionService(&fakeTxRepo{})
	ctx := context.Background()

	_, err := svc.Create(ctx, memberActor, 0, "Kas", domain.TypeIncome)
	assert.EqualError(t, err, "nominal must be positive")

	_, err = svc.Create(ctx, memberActor, -5, "Kas", domain.TypeIncome)
	assert.EqualError(t, err, "nominal must be positive")

	_, err = svc.Create(ctx, memberActor, 5000, "", domain.TypeIncome)
	assert.EqualError(t, err, "description is required")

	_, err = svc.Create(ctx, memberActor, 5000, "Kas", "transfer")
	assert.ErrorContains(t, err, "invalid transaction type")

	_, err = svc.Create(ctx, nil, 5000, "Kas", domain.TypeIncome)
	assert.ErrorContains(t, err, "acting user is required")
}

func TestApprovalWorkflowScenario(t *testing.T) {
	repo := &fakeTxRepo{}
	svc := NewTransactionService(repo)
	ctx := context.Background()

	// Member submits, entry sits pending and stays out of the totals.
	tx, err := svc.Create(ctx, memberActor, 5000, "Kas", domain.TypeIncome)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, tx.Status)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalIncome)

	// Admin approves; the entry now funds the balance and shows up in
	// both parties' visible lists.
	require.NoError(t, svc.Approve(ctx, adminActor, tx.ID))

	summary, err = svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, summary.TotalIncome)
	assert.Equal(t, 5000.0, summary.Balance)

	memberView, err := svc.ListVisible(ctx, memberActor)
	require.NoError(t, err)
	require.Len(t, memberView, 1)

	adminView, err := svc.ListVisible(ctx, adminActor)
	require.NoError(t, err)
	require.Len(t, adminView, 1)
}

func TestApproveRequiresAdmin(t *testing.T) {
	repo := &fakeTxRepo{}
	svc := NewTransactionService(repo)
	ctx := context.Background()

	tx, err := svc.Create(ctx, memberActor, 5000, "Kas", domain.TypeIncome)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Approve(ctx, memberActor, tx.ID), ErrNotAdmin)
	assert.ErrorIs(t, svc.Reject(ctx, memberActor, tx.ID), ErrNotAdmin)

	_, err = svc.ApproveAll(ctx, memberActor)
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = svc.RejectAll(ctx, memberActor)
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = svc.Pending(ctx, memberActor)
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestDecisionsAreTerminal(t *testing.T) {
	svc := NewTransactionService(&fakeTxRepo{})
	ctx := context.Background()

	tx, err := svc.Create(ctx, memberActor, 5000, "Kas", domain.TypeIncome)
	require.NoError(t, err)
	require.NoError(t, svc.Reject(ctx, adminActor, tx.ID))

	assert.ErrorIs(t, svc.Approve(ctx, adminActor, tx.ID), repository.ErrNotPending)
}

func TestApproveAllDrainsQueue(t *testing.T) {
	svc := NewTransactionService(&fakeTxRepo{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, memberActor, 1000, "Kas", domain.TypeIncome)
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, adminActor, 500, "Event", domain.TypeExpense)
	require.NoError(t, err)

	affected, err := svc.ApproveAll(ctx, adminActor)
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)

	pending, err := svc.Pending(ctx, adminActor)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Second sweep is a no-op, not an error.
	affected, err = svc.RejectAll(ctx, adminActor)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestListApprovedFilterByType(t *testing.T) {
	svc := NewTransactionService(&fakeTxRepo{})
	ctx := context.Background()

	_, err := svc.Create(ctx, adminActor, 5000, "Kas", domain.TypeIncome)
	require.NoError(t, err)
	_, err = svc.Create(ctx, adminActor, 3000, "Catering", domain.TypeExpense)
	require.NoError(t, err)
	_, err = svc.Create(ctx, memberActor, 9999, "Kas", domain.TypeIncome) // pending
	require.NoError(t, err)

	income, err := svc.ListApproved(ctx, domain.TypeIncome)
	require.NoError(t, err)
	require.Len(t, income, 1)
	assert.Equal(t, 5000.0, income[0].Nominal)

	all, err := svc.ListApproved(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
