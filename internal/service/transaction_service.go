package service

import (
	"context"
	"errors"
	"fmt"

	"kasku/internal/domain"
	"kasku/internal/repository"
)

// ErrNotAdmin is returned when a non-admin identity attempts an
// approval-workflow operation.
var ErrNotAdmin = errors.New("admin role required")

// TransactionService coordinates transaction submission and the approval
// workflow. Every operation takes the acting identity explicitly; role
// checks happen here, not in the transport layer alone.
type TransactionService interface {
	Create(ctx context.Context, actor *domain.User, nominal float64, description string, typ domain.TransactionType) (*domain.Transaction, error)
	Get(ctx context.Context, id int64) (*domain.Transaction, error)
	ListVisible(ctx context.Context, viewer *domain.User) ([]domain.Transaction, error)
	ListApproved(ctx context.Context, typ domain.TransactionType) ([]domain.Transaction, error)
	Pending(ctx context.Context, actor *domain.User) ([]domain.Transaction, error)
	Summary(ctx context.Context) (domain.Summary, error)
	Approve(ctx context.Context, actor *domain.User, id int64) error
	Reject(ctx context.Context, actor *domain.User, id int64) error
	ApproveAll(ctx context.Context, actor *domain.User) (int64, error)
	RejectAll(ctx context.Context, actor *domain.User) (int64, error)
}

type transactionService struct {
	txs repository.TransactionRepository
}

func NewTransactionService(txs repository.TransactionRepository) TransactionService {
	return &transactionService{txs: txs}
}

// Create inserts a new entry. The status is decided by the authenticated
// actor's role, never by the caller: admin submissions are approved
// immediately, everyone else's start pending.
func (s *transactionService) Create(ctx context.Context, actor *domain.User, nominal float64, description string, typ domain.TransactionType) (*domain.Transaction, error) {
	if actor == nil {
		return nil, errors.New("acting user is required")
	}
	if nominal <= 0 {
		return nil, errors.New("nominal must be positive")
	}
	if description == "" {
		return nil, errors.New("description is required")
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("invalid transaction type %q", typ)
	}

	status := domain.StatusPending
	if actor.IsAdmin() {
		status = domain.StatusApproved
	}

	tx := &domain.Transaction{
		NIS:         actor.NIS,
		Nominal:     nominal,
		Description: description,
		Type:        typ,
		Status:      status,
	}
	id, err := s.txs.Create(ctx, tx)
	if err != nil {
		return nil, err
	}
	// Re-read so the submitter name comes from the join.
	return s.txs.Get(ctx, id)
}

func (s *transactionService) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	return s.txs.Get(ctx, id)
}

func (s *transactionService) ListVisible(ctx context.Context, viewer *domain.User) ([]domain.Transaction, error) {
	txs, err := s.txs.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.VisibleTo(viewer, txs), nil
}

func (s *transactionService) ListApproved(ctx context.Context, typ domain.TransactionType) ([]domain.Transaction, error) {
	txs, err := s.txs.ListByStatus(ctx, domain.StatusApproved)
	if err != nil {
		return nil, err
	}
	return domain.FilterType(txs, typ), nil
}

func (s *transactionService) Pending(ctx context.Context, actor *domain.User) ([]domain.Transaction, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAdmin
	}
	return s.txs.ListByStatus(ctx, domain.StatusPending)
}

func (s *transactionService) Summary(ctx context.Context) (domain.Summary, error) {
	txs, err := s.txs.List(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summarize(txs), nil
}

func (s *transactionService) Approve(ctx context.Context, actor *domain.User, id int64) error {
	return s.decide(ctx, actor, id, domain.StatusApproved)
}

func (s *transactionService) Reject(ctx context.Context, actor *domain.User, id int64) error {
	return s.decide(ctx, actor, id, domain.StatusRejected)
}

func (s *transactionService) decide(ctx context.Context, actor *domain.User, id int64, status domain.TransactionStatus) error {
	if !actor.IsAdmin() {
		return ErrNotAdmin
	}
	return s.txs.UpdateStatus(ctx, id, status)
}

func (s *transactionService) ApproveAll(ctx context.Context, actor *domain.User) (int64, error) {
	return s.decideAll(ctx, actor, domain.StatusApproved)
}

func (s *transactionService) RejectAll(ctx context.Context, actor *domain.User) (int64, error) {
	return s.decideAll(ctx, actor, domain.StatusRejected)
}

func (s *transactionService) decideAll(ctx context.Context, actor *domain.User, status domain.TransactionStatus) (int64, error) {
	if !actor.IsAdmin() {
		return 0, ErrNotAdmin
	}
	return s.txs.UpdateStatusAll(ctx, status)
}
