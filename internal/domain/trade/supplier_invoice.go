package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
)

// SupplierInvoiceLine is one billed item on a supplier invoice.
type SupplierInvoiceLine struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	BatchID    *uuid.UUID
	Qty        decimal.Decimal
	UnitCost   valueobject.DualAmount
	LineTotal  valueobject.DualAmount
	BatchNo    string
	ExpiryDate *time.Time
}

// SupplierPayment is a settlement recorded against a supplier invoice.
type SupplierPayment struct {
	ID     uuid.UUID
	Method string
	Amount valueobject.DualAmount
}

// SupplierInvoice is the billing document clearing GRNI for goods already
// received. Gross total credits AP; net and VAT split the debits.
type SupplierInvoice struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	InvoiceNo     string
	SupplierRef   string
	SupplierID    *uuid.UUID
	ReceiptID     *uuid.UUID
	Status        DocumentStatus
	NetTotal      valueobject.DualAmount
	TaxTotal      valueobject.DualAmount
	Total         valueobject.DualAmount
	ExchangeRate  decimal.Decimal
	SourceEventID uuid.UUID
	DeviceID      uuid.UUID
	InvoiceDate   time.Time
	DueDate       *time.Time
	// OnHold is set when 3-way-match variance exceeds the tenant threshold;
	// a held invoice posts no journal until released.
	OnHold     bool
	HoldReason string
	Lines      []SupplierInvoiceLine
	Payments   []SupplierPayment
}

// Hold flags the invoice for manual review.
func (s *SupplierInvoice) Hold(reason string) {
	s.OnHold = true
	s.HoldReason = reason
	s.Touch()
}

// Release clears a hold after review.
func (s *SupplierInvoice) Release() {
	s.OnHold = false
	s.HoldReason = ""
	s.Touch()
}

// MatchVariance is the outcome of comparing a supplier invoice against the
// goods receipt it bills: relative quantity and price deltas per the larger
// of the two sides.
type MatchVariance struct {
	QtyVariance   decimal.Decimal
	PriceVariance decimal.Decimal
}

// Exceeds reports whether either variance breaches the threshold (a ratio,
// e.g. 0.05 for 5%).
func (v MatchVariance) Exceeds(threshold decimal.Decimal) bool {
	return v.QtyVariance.Abs().GreaterThan(threshold) || v.PriceVariance.Abs().GreaterThan(threshold)
}

// ComputeMatchVariance compares invoiced quantity and value against the
// receipt. A nil receipt yields zero variance; invoices without a linked
// receipt are not held.
func ComputeMatchVariance(inv *SupplierInvoice, receipt *GoodsReceipt) MatchVariance {
	if receipt == nil {
		return MatchVariance{QtyVariance: decimal.Zero, PriceVariance: decimal.Zero}
	}

	invQty, rcptQty := decimal.Zero, decimal.Zero
	for _, l := range inv.Lines {
		invQty = invQty.Add(l.Qty)
	}
	for _, l := range receipt.Lines {
		rcptQty = rcptQty.Add(l.Qty)
	}

	return MatchVariance{
		QtyVariance:   relativeDelta(invQty, rcptQty),
		PriceVariance: relativeDelta(inv.NetTotal.USD, receipt.Total.USD),
	}
}

// AssertWithinTolerance holds the invoice when variance breaches the
// threshold and returns the conflict that caused it. The document survives
// in a held state; only the posting is blocked.
func AssertWithinTolerance(inv *SupplierInvoice, receipt *GoodsReceipt, threshold decimal.Decimal) error {
	v := ComputeMatchVariance(inv, receipt)
	if !v.Exceeds(threshold) {
		return nil
	}
	inv.Hold("3-way match variance exceeds tolerance")
	return shared.NewConflictError("MATCH_VARIANCE_HOLD",
		"supplier invoice held: 3-way match variance exceeds tolerance")
}

func relativeDelta(a, b decimal.Decimal) decimal.Decimal {
	base := a.Abs()
	if b.Abs().GreaterThan(base) {
		base = b.Abs()
	}
	if base.IsZero() {
		return decimal.Zero
	}
	return a.Sub(b).Div(base)
}
