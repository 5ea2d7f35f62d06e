package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
)

// MovingAverage folds an inbound receipt into a weighted average unit cost:
// (old_qty*old_avg + in_qty*in_cost) / (old_qty + in_qty). When the combined
// quantity is zero the inbound cost is taken as-is.
func MovingAverage(oldQty, oldAvg, inQty, inCost decimal.Decimal) decimal.Decimal {
	denom := oldQty.Add(inQty)
	if denom.IsZero() {
		return inCost
	}
	return oldQty.Mul(oldAvg).Add(inQty.Mul(inCost)).Div(denom)
}

// CostLayer is an item's moving-average cost position in a warehouse, carried
// independently per currency leg.
type CostLayer struct {
	OnHand  decimal.Decimal
	AvgCost valueobject.DualAmount
}

// Receive folds an inbound movement into the layer and returns the new layer.
func (c CostLayer) Receive(qty decimal.Decimal, unitCost valueobject.DualAmount) CostLayer {
	return CostLayer{
		OnHand: c.OnHand.Add(qty),
		AvgCost: valueobject.NewDualAmount(
			MovingAverage(c.OnHand, c.AvgCost.USD, qty, unitCost.USD),
			MovingAverage(c.OnHand, c.AvgCost.LBP, qty, unitCost.LBP),
		).Quantize(),
	}
}

// Issue reduces on-hand without touching the average cost.
func (c CostLayer) Issue(qty decimal.Decimal) CostLayer {
	return CostLayer{OnHand: c.OnHand.Sub(qty), AvgCost: c.AvgCost}
}
