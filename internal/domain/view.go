package domain

// Summary aggregates approved transactions into the totals shown on the
// dashboard and report screens.
type Summary struct {
	TotalIncome  float64
	TotalExpense float64
	Balance      float64
}

// VisibleTo filters transactions down to what the given identity may see.
// Admins see every approved transaction plus their own rows regardless of
// status. Regular members see every approved transaction plus their own
// pending ones; their own rejected entries stay hidden, matching the
// historical filter of the system. Input order is preserved.
func VisibleTo(viewer *User, txs []Transaction) []Transaction {
	if viewer == nil {
		return nil
	}

	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		switch {
		case tx.Status == StatusApproved:
			out = append(out, tx)
		case viewer.Role == RoleAdmin && tx.NIS == viewer.NIS:
			out = append(out, tx)
		case viewer.Role == RoleUser && tx.NIS == viewer.NIS && tx.Status == StatusPending:
			out = append(out, tx)
		}
	}
	return out
}

// PendingQueue returns the transactions waiting for an admin decision.
func PendingQueue(txs []Transaction) []Transaction {
	out := make([]Transaction, 0)
	for _, tx := range txs {
		if tx.Status == StatusPending {
			out = append(out, tx)
		}
	}
	return out
}

// FilterType keeps only transactions of the given type. An empty type
// returns the input unchanged.
func FilterType(txs []Transaction, typ TransactionType) []Transaction {
	if typ == "" {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Type == typ {
			out = append(out, tx)
		}
	}
	return out
}

// Summarize sums approved transactions by type. Pending and rejected
// entries never contribute to the totals.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, tx := range txs {
		if tx.Status != StatusApproved {
			continue
		}
		switch tx.Type {
		case TypeIncome:
			s.TotalIncome += tx.Nominal
		case TypeExpense:
			s.TotalExpense += tx.Nominal
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpense
	return s
}
