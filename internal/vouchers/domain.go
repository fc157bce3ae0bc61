package vouchers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/backline-erp/backline/internal/ledger"
	"github.com/backline-erp/backline/internal/shared"
)

// RefType is the reference type stamped on ledger entries posted by vouchers.
const RefType = "voucher"

// Kind enumerates voucher kinds.
type Kind string

const (
	// KindReceipt records money received, typically from a customer.
	KindReceipt Kind = "RECEIPT"
	// KindPayment records money paid out, typically to a supplier.
	KindPayment Kind = "PAYMENT"
)

// Status enumerates voucher lifecycle states.
type Status string

const (
	StatusPosted Status = "POSTED"
	StatusVoided Status = "VOIDED"
)

// Voucher is a receipt or payment document. Posting writes its ledger entries
// and any snapshot update in one transaction; voiding removes the document and
// its entries together or not at all.
type Voucher struct {
	ID             uuid.UUID
	Code           string
	Kind           Kind
	PartyType      ledger.PartyType
	PartyID        int64
	CashAccountID  int64
	DebtAccountID  int64
	Amount         decimal.Decimal
	Date           time.Time
	Method         string
	Memo           string
	Status         Status
	CreatedBy      int64
	CreatedAt      time.Time
	VoidedAt       *time.Time

	// Optional stock section: a cash purchase or sale moves inventory in the
	// same posting.
	ProductID int64
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
}

var (
	ErrInvalidKind    = fmt.Errorf("%w: voucher kind must be RECEIPT or PAYMENT", shared.ErrValidation)
	ErrInvalidAmount  = fmt.Errorf("%w: voucher amount must be positive", shared.ErrValidation)
	ErrMissingAccount = fmt.Errorf("%w: voucher requires cash and debt accounts", shared.ErrValidation)
	ErrMissingParty   = fmt.Errorf("%w: voucher requires a counterparty", shared.ErrValidation)
	ErrAlreadyVoided  = fmt.Errorf("%w: voucher already voided", shared.ErrValidation)
	ErrInvalidStock   = fmt.Errorf("%w: stock section requires positive quantity and non-negative cost", shared.ErrValidation)
)

// Validate checks posting preconditions.
func (v Voucher) Validate() error {
	if v.Kind != KindReceipt && v.Kind != KindPayment {
		return ErrInvalidKind
	}
	if !v.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if v.CashAccountID == 0 || v.DebtAccountID == 0 {
		return ErrMissingAccount
	}
	if v.PartyType == "" || v.PartyID == 0 {
		return ErrMissingParty
	}
	if v.Date.IsZero() {
		return fmt.Errorf("%w: voucher requires a date", shared.ErrValidation)
	}
	if v.ProductID != 0 {
		if !v.Quantity.IsPositive() || v.UnitCost.IsNegative() {
			return ErrInvalidStock
		}
	}
	return nil
}

// Movement reports the stock direction implied by the voucher kind, or empty
// when no stock section is present. A payment buys stock in, a receipt sells
// stock out.
func (v Voucher) Movement() ledger.MovementType {
	if v.ProductID == 0 {
		return ""
	}
	if v.Kind == KindPayment {
		return ledger.MovementIn
	}
	return ledger.MovementOut
}

// Entries derives the ledger entries a posting writes. A receipt debits cash
// and credits the party's debt account; a payment is the mirror image.
func (v Voucher) Entries() []ledger.Entry {
	base := ledger.Entry{
		PartyType: v.PartyType,
		PartyID:   v.PartyID,
		Date:      v.Date,
		Method:    v.Method,
		RefType:   RefType,
		RefID:     v.ID,
		Memo:      v.Memo,
		CreatedBy: v.CreatedBy,
		Debit:     decimal.Zero,
		Credit:    decimal.Zero,
		Quantity:  decimal.Zero,
		UnitCost:  decimal.Zero,
	}

	cash := base
	cash.AccountID = v.CashAccountID
	debt := base
	debt.AccountID = v.DebtAccountID

	if v.Kind == KindReceipt {
		cash.Debit = v.Amount
		debt.Credit = v.Amount
	} else {
		debt.Debit = v.Amount
		cash.Credit = v.Amount
	}

	if mv := v.Movement(); mv != "" {
		debt.ProductID = v.ProductID
		debt.Movement = mv
		debt.Quantity = v.Quantity
		debt.UnitCost = v.UnitCost
	}

	return []ledger.Entry{cash, debt}
}
