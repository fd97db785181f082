package domain

import "time"

type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusRejected TransactionStatus = "rejected"
)

// Transaction is a single income or expense entry submitted by a member.
// FullName and Username are joined in from the submitter's user row at read
// time and are never stored on the transaction itself.
type Transaction struct {
	ID          int64
	NIS         string
	FullName    string
	Username    string
	Nominal     float64
	Description string
	Type        TransactionType
	Status      TransactionStatus
	CreatedAt   time.Time
}

// CanTransitionTo reports whether a status change is allowed. Pending rows
// may become approved or rejected; approved and rejected are terminal.
func (t *Transaction) CanTransitionTo(next TransactionStatus) bool {
	return t.Status == StatusPending && (next == StatusApproved || next == StatusRejected)
}
