package facade

import (
	"context"
	"time"

	"memberdesk/internal/domain/activity"
	"memberdesk/internal/domain/document"
	"memberdesk/internal/domain/transaction"
)

// AddTransaction records income or an expense against the caller.
// PRE: caller signed in; in.Validate() passes
// POST: recordedBy is the caller's uid, createdAt server-stamped; transaction_added logged
func (f *Facade) AddTransaction(ctx context.Context, in transaction.Input) (string, error) {
	user, err := f.caller()
	if err != nil {
		return "", err
	}
	if err := in.Validate(); err != nil {
		return "", err
	}
	fields := document.Fields(in.Fields())
	fields["recordedBy"] = user.UID
	fields["createdAt"] = document.ServerTimestamp

	return f.add(ctx, transaction.Collection, fields, audit{
		action:  activity.ActionTransactionAdded,
		details: in.Summary(),
	})
}

// GetTransactions lists transactions newest first by date. The range is
// applied only when both bounds are set, and is inclusive.
func (f *Facade) GetTransactions(ctx context.Context, start, end time.Time) ([]transaction.Transaction, error) {
	q := document.Query{
		Collection: transaction.Collection,
		OrderBy:    "date",
		Descending: true,
	}
	if !start.IsZero() && !end.IsZero() {
		q = q.Where("date", document.OpGreaterEqual, start).
			Where("date", document.OpLessEqual, end)
	}
	return queryRecords[transaction.Transaction](ctx, f.store, q)
}

// GetFinancialSummary totals the current calendar month up to now.
// POST: Balance = TotalIncome - TotalExpenses
func (f *Facade) GetFinancialSummary(ctx context.Context) (transaction.Summary, error) {
	now := f.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	txns, err := f.GetTransactions(ctx, start, now)
	if err != nil {
		return transaction.Summary{}, err
	}
	return transaction.Summarize(txns), nil
}
