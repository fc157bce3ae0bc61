package vouchers

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/backline-erp/backline/internal/ledger"
	"github.com/backline-erp/backline/internal/shared"
)

// PostVoucherRequest is the JSON body for posting a voucher. Amounts travel
// as strings to avoid float rounding on the wire.
type PostVoucherRequest struct {
	Code          string `json:"code" validate:"omitempty,max=50"`
	Kind          string `json:"kind" validate:"required,oneof=RECEIPT PAYMENT"`
	PartyType     string `json:"party_type" validate:"required,oneof=CUSTOMER SUPPLIER"`
	PartyID       int64  `json:"party_id" validate:"required,gt=0"`
	CashAccountID int64  `json:"cash_account_id" validate:"required,gt=0"`
	DebtAccountID int64  `json:"debt_account_id" validate:"required,gt=0"`
	Amount        string `json:"amount" validate:"required"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Method        string `json:"method" validate:"omitempty,oneof=CASH BANK"`
	Memo          string `json:"memo" validate:"omitempty,max=500"`
	ProductID     int64  `json:"product_id" validate:"omitempty,gt=0"`
	Quantity      string `json:"quantity" validate:"required_with=ProductID"`
	UnitCost      string `json:"unit_cost" validate:"omitempty"`
}

// ToVoucher converts the request into a domain voucher.
func (r PostVoucherRequest) ToVoucher(actorID int64) (Voucher, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return Voucher{}, fmt.Errorf("%w: bad amount %q", shared.ErrValidation, r.Amount)
	}
	date, err := time.ParseInLocation("2006-01-02", r.Date, time.UTC)
	if err != nil {
		return Voucher{}, fmt.Errorf("%w: bad date %q", shared.ErrValidation, r.Date)
	}

	v := Voucher{
		Code:          r.Code,
		Kind:          Kind(r.Kind),
		PartyType:     ledger.PartyType(r.PartyType),
		PartyID:       r.PartyID,
		CashAccountID: r.CashAccountID,
		DebtAccountID: r.DebtAccountID,
		Amount:        amount,
		Date:          date,
		Method:        r.Method,
		Memo:          r.Memo,
		CreatedBy:     actorID,
		Quantity:      decimal.Zero,
		UnitCost:      decimal.Zero,
	}

	if r.ProductID != 0 {
		qty, err := decimal.NewFromString(r.Quantity)
		if err != nil {
			return Voucher{}, fmt.Errorf("%w: bad quantity %q", shared.ErrValidation, r.Quantity)
		}
		v.ProductID = r.ProductID
		v.Quantity = qty
		if r.UnitCost != "" {
			cost, err := decimal.NewFromString(r.UnitCost)
			if err != nil {
				return Voucher{}, fmt.Errorf("%w: bad unit cost %q", shared.ErrValidation, r.UnitCost)
			}
			v.UnitCost = cost
		}
	}
	return v, nil
}

// VoucherResponse is the JSON shape returned by the handlers.
type VoucherResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Kind      string `json:"kind"`
	PartyType string `json:"party_type"`
	PartyID   int64  `json:"party_id"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Method    string `json:"method,omitempty"`
	Memo      string `json:"memo,omitempty"`
	Status    string `json:"status"`
	ProductID int64  `json:"product_id,omitempty"`
	Quantity  string `json:"quantity,omitempty"`
	UnitCost  string `json:"unit_cost,omitempty"`
}

// NewVoucherResponse maps a voucher into the response shape.
func NewVoucherResponse(v Voucher) VoucherResponse {
	resp := VoucherResponse{
		ID:        v.ID.String(),
		Code:      v.Code,
		Kind:      string(v.Kind),
		PartyType: string(v.PartyType),
		PartyID:   v.PartyID,
		Amount:    v.Amount.String(),
		Date:      v.Date.Format("2006-01-02"),
		Method:    v.Method,
		Memo:      v.Memo,
		Status:    string(v.Status),
	}
	if v.ProductID != 0 {
		resp.ProductID = v.ProductID
		resp.Quantity = v.Quantity.String()
		resp.UnitCost = v.UnitCost.String()
	}
	return resp
}
