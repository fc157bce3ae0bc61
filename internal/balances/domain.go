package balances

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/backline-erp/backline/internal/ledger"
)

// Snapshot holds the point-in-time stock position per (product, date). It is a
// derived cache: a replay of the ledger history up to the date must reproduce
// it, and on disagreement the ledger wins.
type Snapshot struct {
	ProductID int64
	Date      time.Time
	Quantity  decimal.Decimal
	Value     decimal.Decimal
	AvgCost   decimal.Decimal
	UpdatedAt time.Time
}

// Zero returns the all-zero snapshot callers receive when a product has no
// history. "No history" is zero stock, never an error.
func Zero(productID int64, date time.Time) Snapshot {
	return Snapshot{
		ProductID: productID,
		Date:      date,
		Quantity:  decimal.Zero,
		Value:     decimal.Zero,
		AvgCost:   decimal.Zero,
	}
}

// avgCostScale bounds division results; weighted averages rarely need more.
const avgCostScale = 6

// Apply folds one signed movement into the snapshot using the weighted-average
// method. A non-positive resulting quantity pins average cost to zero instead
// of dividing by zero.
func (s Snapshot) Apply(qty, value decimal.Decimal) Snapshot {
	next := s
	next.Quantity = s.Quantity.Add(qty)
	next.Value = s.Value.Add(value)
	if next.Quantity.IsPositive() {
		next.AvgCost = next.Value.DivRound(next.Quantity, avgCostScale)
	} else {
		next.AvgCost = decimal.Zero
		next.Value = decimal.Zero
		next.Quantity = decimal.Max(next.Quantity, decimal.Zero)
	}
	return next
}

// ApplyEntry folds a ledger entry. Inbound stock enters at its posted unit
// cost; outbound stock leaves at the running average cost.
func (s Snapshot) ApplyEntry(e ledger.Entry) Snapshot {
	switch e.Movement {
	case ledger.MovementIn:
		return s.Apply(e.Quantity, e.Quantity.Mul(e.UnitCost))
	case ledger.MovementOut:
		return s.Apply(e.Quantity.Neg(), e.Quantity.Mul(s.AvgCost).Neg())
	default:
		return s
	}
}

// Replay folds ledger entries in posting order, seeded from the given
// snapshot, and returns the final position.
func Replay(seed Snapshot, entries []ledger.Entry) Snapshot {
	s := seed
	for _, e := range entries {
		s = s.ApplyEntry(e)
	}
	return s
}

// Drift measures the absolute quantity and value disagreement between two
// snapshots of the same product.
func Drift(a, b Snapshot) (qty, value decimal.Decimal) {
	return a.Quantity.Sub(b.Quantity).Abs(), a.Value.Sub(b.Value).Abs()
}
