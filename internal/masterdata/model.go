package masterdata

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable/stockable item.
type Product struct {
	ID        int64
	SKU       string
	Name      string
	Unit      string
	Price     decimal.Decimal
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PartyKind separates the two counterparty tables.
type PartyKind string

const (
	KindCustomer PartyKind = "CUSTOMER"
	KindSupplier PartyKind = "SUPPLIER"
)

// Party is a customer or supplier record.
type Party struct {
	ID        int64
	Kind      PartyKind
	Code      string
	Name      string
	Phone     string
	Email     string
	TaxID     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilter narrows listings. Keyword matches code and name.
type ListFilter struct {
	Keyword  string
	IsActive *bool
}
