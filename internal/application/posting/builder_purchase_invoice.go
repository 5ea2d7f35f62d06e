package posting

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
	"github.com/ahtrading/backend/internal/domain/trade"
)

// PurchaseInvoiceResult is a built but not yet persisted supplier invoice.
// Held carries the match conflict when 3-way variance breached tolerance; the
// document itself survives in a held state.
type PurchaseInvoiceResult struct {
	Invoice *trade.SupplierInvoice
	Held    error
}

// BuildPurchaseInvoice turns a purchase.invoice payload into a supplier
// invoice, matching it against the linked goods receipt.
func BuildPurchaseInvoice(tenantID, deviceID, eventID uuid.UUID, p *PurchaseInvoicePayload, snap PurchaseInvoiceSnapshot, now time.Time) (*PurchaseInvoiceResult, error) {
	if len(p.Lines) == 0 {
		return nil, shared.NewValidationError("EMPTY_INVOICE", "supplier invoice event has no lines")
	}
	if p.ReceiptID != nil && snap.Receipt == nil {
		return nil, shared.NewValidationError("UNKNOWN_RECEIPT",
			"billed goods receipt not found: "+p.ReceiptID.String())
	}
	rate := p.ExchangeRate
	invoiceDate := businessDate(now, p.InvoiceDate, p.CreatedAt)

	inv := &trade.SupplierInvoice{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		InvoiceNo:     p.InvoiceNo,
		SupplierRef:   p.SupplierRef,
		SupplierID:    p.SupplierID,
		ReceiptID:     p.ReceiptID,
		Status:        trade.DocumentStatusPosted,
		ExchangeRate:  rate,
		SourceEventID: eventID,
		DeviceID:      deviceID,
		InvoiceDate:   invoiceDate,
	}
	if inv.InvoiceNo == "" {
		inv.InvoiceNo = snap.InvoiceNo
	}
	if inv.SupplierID == nil && snap.Receipt != nil {
		inv.SupplierID = snap.Receipt.SupplierID
	}

	net := valueobject.ZeroDual()
	for i, l := range p.Lines {
		if l.ItemID == uuid.Nil {
			return nil, shared.NewValidationError("MISSING_ITEM", fmt.Sprintf("line %d names no item", i+1))
		}
		if !l.Qty.IsPositive() {
			return nil, shared.NewValidationError("BAD_QTY", fmt.Sprintf("line %d has non-positive quantity", i+1))
		}
		unitCost := valueobject.NewDualAmount(l.UnitCostUSD, l.UnitCostLBP).Normalize(rate).Quantize()
		lineTotal := unitCost.MulQty(l.Qty).Quantize()
		inv.Lines = append(inv.Lines, trade.SupplierInvoiceLine{
			ID:         uuid.New(),
			ItemID:     l.ItemID,
			Qty:        l.Qty,
			UnitCost:   unitCost,
			LineTotal:  lineTotal,
			BatchNo:    l.BatchNo,
			ExpiryDate: parseExpiry(l.ExpiryDate),
		})
		net = net.Add(lineTotal)
	}

	inv.NetTotal = net.Quantize()
	inv.TaxTotal = taxAmount(p.Tax, rate)
	inv.Total = inv.NetTotal.Add(inv.TaxTotal).Quantize()

	for _, pay := range p.Payments {
		tender := pay.tenderAmount()
		if tender.IsZero() {
			continue
		}
		if tender.IsNegativeEither() {
			return nil, shared.NewValidationError("NEGATIVE_AMOUNT", "payment amounts must be >= 0")
		}
		inv.Payments = append(inv.Payments, trade.SupplierPayment{
			ID:     uuid.New(),
			Method: normalizeMethod(pay.Method),
			Amount: tender.Normalize(rate).Quantize(),
		})
	}

	if snap.SupplierTermsDays > 0 {
		due := invoiceDate.AddDate(0, 0, snap.SupplierTermsDays)
		inv.DueDate = &due
	}

	held := trade.AssertWithinTolerance(inv, snap.Receipt, snap.MatchThreshold)
	return &PurchaseInvoiceResult{Invoice: inv, Held: held}, nil
}
