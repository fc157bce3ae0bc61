package accounts

import "time"

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	TypeAsset     AccountType = "ASSET"
	TypeLiability AccountType = "LIABILITY"
	TypeEquity    AccountType = "EQUITY"
	TypeRevenue   AccountType = "REVENUE"
	TypeExpense   AccountType = "EXPENSE"
	TypeOther     AccountType = "OTHER"
)

// NormalBalance is the side on which an account type naturally increases.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "DEBIT"
	NormalCredit NormalBalance = "CREDIT"
)

// NormalBalance returns the normal side for the account type. The mapping is
// fixed: assets and expenses increase on debit, everything else on credit.
// Unknown types fall to credit so the function stays total.
func (t AccountType) NormalBalance() NormalBalance {
	switch t {
	case TypeAsset, TypeExpense:
		return NormalDebit
	default:
		return NormalCredit
	}
}

// Valid reports whether t is one of the enumerated account types.
func (t AccountType) Valid() bool {
	switch t {
	case TypeAsset, TypeLiability, TypeEquity, TypeRevenue, TypeExpense, TypeOther:
		return true
	}
	return false
}

// Account represents a row in the chart of accounts.
type Account struct {
	ID        int64
	Code      string
	Name      string
	Type      AccountType
	IsCash    bool
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalBalance is derived from Type and never stored, so the two cannot desync.
func (a Account) NormalBalance() NormalBalance {
	return a.Type.NormalBalance()
}
