package reports

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders a money amount with thousands separators for the
// admin UI.
func FormatAmount(d decimal.Decimal) string {
	return amountPrinter.Sprintf("%.2f", d.InexactFloat64())
}

// GeneralLedgerView is the JSON payload for the general ledger report.
type GeneralLedgerView struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	AccountType string          `json:"account_type"`
	Period      string          `json:"period"`
	Opening     string          `json:"opening"`
	TotalDebit  string          `json:"total_debit"`
	TotalCredit string          `json:"total_credit"`
	Closing     string          `json:"closing"`
	Rows        []LedgerRowView `json:"rows"`
}

// LedgerRowView is one display row.
type LedgerRowView struct {
	Date    string `json:"date"`
	Memo    string `json:"memo,omitempty"`
	RefType string `json:"ref_type,omitempty"`
	Method  string `json:"method,omitempty"`
	Debit   string `json:"debit"`
	Credit  string `json:"credit"`
	Running string `json:"running"`
}

// NewGeneralLedgerView maps the report into its display shape.
func NewGeneralLedgerView(gl GeneralLedger) GeneralLedgerView {
	view := GeneralLedgerView{
		AccountCode: gl.Account.Code,
		AccountName: gl.Account.Name,
		AccountType: string(gl.Account.Type),
		Period:      gl.Period.Label(),
		Opening:     FormatAmount(gl.Summary.Opening),
		TotalDebit:  FormatAmount(gl.Summary.Debit),
		TotalCredit: FormatAmount(gl.Summary.Credit),
		Closing:     FormatAmount(gl.Summary.Closing),
	}
	view.Rows = newRowViews(gl.Rows)
	return view
}

// CashBookView is the JSON payload for the cash book report.
type CashBookView struct {
	Period      string          `json:"period"`
	Method      string          `json:"method,omitempty"`
	Opening     string          `json:"opening"`
	TotalDebit  string          `json:"total_debit"`
	TotalCredit string          `json:"total_credit"`
	Closing     string          `json:"closing"`
	Rows        []LedgerRowView `json:"rows"`
}

// NewCashBookView maps the cash book into its display shape.
func NewCashBookView(cb CashBook) CashBookView {
	return CashBookView{
		Period:      cb.Period.Label(),
		Method:      cb.Method,
		Opening:     FormatAmount(cb.Summary.Opening),
		TotalDebit:  FormatAmount(cb.Summary.Debit),
		TotalCredit: FormatAmount(cb.Summary.Credit),
		Closing:     FormatAmount(cb.Summary.Closing),
		Rows:        newRowViews(cb.Rows),
	}
}

func newRowViews(rows []LedgerRow) []LedgerRowView {
	out := make([]LedgerRowView, 0, len(rows))
	for _, r := range rows {
		out = append(out, LedgerRowView{
			Date:    r.Date.Format("2006-01-02"),
			Memo:    r.Memo,
			RefType: r.RefType,
			Method:  r.Method,
			Debit:   FormatAmount(r.Debit),
			Credit:  FormatAmount(r.Credit),
			Running: FormatAmount(r.Running),
		})
	}
	return out
}
