package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/backline-erp/backline/internal/shared"
)

// MovementType enumerates stock movement directions carried by an entry.
type MovementType string

const (
	// MovementIn represents an inbound stock movement.
	MovementIn MovementType = "IN"
	// MovementOut represents an outbound stock movement.
	MovementOut MovementType = "OUT"
)

// PartyType identifies the counterparty kind on an entry.
type PartyType string

const (
	PartyCustomer PartyType = "CUSTOMER"
	PartySupplier PartyType = "SUPPLIER"
)

// Entry is one posted movement. Entries are append-only: after creation the
// only permitted mutation is the soft-delete cascade by reference.
type Entry struct {
	ID        int64
	AccountID int64
	ProductID int64
	PartyType PartyType
	PartyID   int64
	Date      time.Time
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	Movement  MovementType
	Method    string
	RefType   string
	RefID     uuid.UUID
	Memo      string
	CreatedBy int64
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Value returns the monetary value of the stock movement.
func (e Entry) Value() decimal.Decimal {
	return e.Quantity.Mul(e.UnitCost)
}

var (
	ErrInvalidQuantity  = fmt.Errorf("%w: ledger quantity must be positive", shared.ErrValidation)
	ErrNegativeAmount   = fmt.Errorf("%w: ledger amounts must be non-negative", shared.ErrValidation)
	ErrAccountRequired  = fmt.Errorf("%w: ledger entry requires an account", shared.ErrValidation)
	ErrDanglingRef      = fmt.Errorf("%w: reference type and id must be set together", shared.ErrValidation)
	ErrNoTransaction    = fmt.Errorf("%w: ledger write outside transaction", shared.ErrStorage)
	ErrInvalidDateRange = fmt.Errorf("%w: to date before from date", shared.ErrValidation)
)

// Validate checks the append constraints before a record hits storage.
func (e Entry) Validate() error {
	if e.AccountID == 0 {
		return ErrAccountRequired
	}
	if e.Debit.IsNegative() || e.Credit.IsNegative() {
		return ErrNegativeAmount
	}
	if e.Movement != "" && !e.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if (e.RefType == "") != (e.RefID == uuid.Nil) {
		return ErrDanglingRef
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: ledger entry requires a date", shared.ErrValidation)
	}
	return nil
}

// AggregateFilter selects entries for summation. Zero-valued bounds mean
// unbounded; an empty Movement matches all movement types.
type AggregateFilter struct {
	ProductID int64
	AccountID int64
	From      time.Time
	To        time.Time
	Movement  MovementType
}

// Validate rejects inverted ranges before any query runs.
func (f AggregateFilter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return ErrInvalidDateRange
	}
	return nil
}

// Totals is the result of an aggregate. Zero-valued when nothing matched.
type Totals struct {
	Quantity decimal.Decimal
	Value    decimal.Decimal
	Debit    decimal.Decimal
	Credit   decimal.Decimal
}

// NewTotals returns an explicit all-zero total so callers never see nil decimals.
func NewTotals() Totals {
	return Totals{
		Quantity: decimal.Zero,
		Value:    decimal.Zero,
		Debit:    decimal.Zero,
		Credit:   decimal.Zero,
	}
}
