package transaction

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Collection is the document collection holding transactions.
const Collection = "transactions"

// Transaction type constants
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Max length constants for user-editable fields.
const (
	MaxDescriptionLength = 500
)

// Domain errors
var (
	ErrInvalidType = errors.New("transaction type must be 'income' or 'expense'")
	ErrMissingDate = errors.New("transaction date is required")
)

// Transaction is a single income or expense entry.
type Transaction struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	RecordedBy  string    `json:"recordedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Input carries the caller-supplied fields of a new transaction.
type Input struct {
	Type        string
	Amount      float64
	Date        time.Time
	Description string
	Category    string
}

// Validate checks the required fields of a transaction.
// PRE: Input is populated
// POST: Returns error if validation fails, nil otherwise
func (in Input) Validate() error {
	if in.Type != TypeIncome && in.Type != TypeExpense {
		return ErrInvalidType
	}
	if in.Date.IsZero() {
		return ErrMissingDate
	}
	if len(in.Description) > MaxDescriptionLength {
		return errors.New("transaction description cannot exceed 500 characters")
	}
	return nil
}

// Fields returns the input keyed by stored field names.
func (in Input) Fields() map[string]any {
	f := map[string]any{
		"type":   in.Type,
		"amount": in.Amount,
		"date":   in.Date,
	}
	if strings.TrimSpace(in.Description) != "" {
		f["description"] = in.Description
	}
	if in.Category != "" {
		f["category"] = in.Category
	}
	return f
}

// Summary renders the activity-log description, e.g. "Added income: $120.50".
func (in Input) Summary() string {
	return fmt.Sprintf("Added %s: $%s", in.Type, FormatAmount(in.Amount))
}

// FormatAmount renders an amount without trailing zeros.
func FormatAmount(amount float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", amount), "0"), ".")
}

// IsIncome returns true for income transactions.
// INVARIANT: Transaction fields are not mutated
func (t *Transaction) IsIncome() bool {
	return t.Type == TypeIncome
}

// SetID sets the transaction ID from the document identifier.
func (t *Transaction) SetID(id string) {
	t.ID = id
}

// Summary aggregates a set of transactions.
type Summary struct {
	TotalIncome       float64 `json:"totalIncome"`
	TotalExpenses     float64 `json:"totalExpenses"`
	Balance           float64 `json:"balance"`
	TransactionsCount int     `json:"transactionsCount"`
}

// Summarize sums amounts by type. Anything that is not income counts as an expense.
// POST: Balance = TotalIncome - TotalExpenses; TransactionsCount = len(txns)
func Summarize(txns []Transaction) Summary {
	s := Summary{TransactionsCount: len(txns)}
	for _, t := range txns {
		if t.IsIncome() {
			s.TotalIncome += t.Amount
		} else {
			s.TotalExpenses += t.Amount
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpenses
	return s
}
