package posting

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/inventory"
	"github.com/ahtrading/backend/internal/domain/ledger"
	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
	"github.com/ahtrading/backend/internal/domain/trade"
)

// ReturnResult is a built but not yet persisted sales return.
type ReturnResult struct {
	Return    *trade.SalesReturn
	Refund    *trade.Refund
	Movements []*inventory.StockMovement
	// CostOfGoods reverses the original COGS, posted Dr Inventory / Cr COGS.
	CostOfGoods valueobject.DualAmount
	Tax         valueobject.DualAmount
}

// BuildReturn turns a sale.returned payload into a return document, inbound
// stock movements reversing the sale, and an optional refund transaction.
func BuildReturn(tenantID, deviceID, eventID uuid.UUID, p *ReturnPayload, snap ReturnSnapshot, now time.Time) (*ReturnResult, error) {
	if len(p.Lines) == 0 {
		return nil, shared.NewValidationError("EMPTY_RETURN", "return event has no lines")
	}
	if p.InvoiceID == nil {
		return nil, shared.NewValidationError("MISSING_INVOICE", "return requires invoice_id")
	}
	if snap.OriginalInvoice == nil {
		return nil, shared.NewValidationError("UNKNOWN_INVOICE",
			"returned invoice not found: "+p.InvoiceID.String())
	}
	if snap.OriginalInvoice.Status != trade.DocumentStatusPosted {
		return nil, shared.NewConflictError("INVOICE_NOT_POSTED", "returned invoice is not posted")
	}
	rate := p.ExchangeRate
	returnDate := businessDate(now, p.ReturnDate, p.CreatedAt)

	// A return can only undo what the invoice sold. Track requested
	// quantities per item so split lines cannot sneak past the cap either.
	sold := map[uuid.UUID]decimal.Decimal{}
	for _, il := range snap.OriginalInvoice.Lines {
		sold[il.ItemID] = sold[il.ItemID].Add(il.Qty)
	}
	requested := map[uuid.UUID]decimal.Decimal{}
	for i, l := range p.Lines {
		soldQty, onInvoice := sold[l.ItemID]
		if !onInvoice {
			return nil, shared.NewValidationError("ITEM_NOT_ON_INVOICE",
				fmt.Sprintf("line %d returns an item the invoice never sold", i+1))
		}
		requested[l.ItemID] = requested[l.ItemID].Add(l.Qty)
		already := snap.ReturnedQty[l.ItemID]
		if requested[l.ItemID].Add(already).GreaterThan(soldQty) {
			return nil, shared.NewValidationError("RETURN_EXCEEDS_SALE",
				fmt.Sprintf("line %d returns more of the item than the invoice sold", i+1))
		}
	}

	ret := &trade.SalesReturn{
		BaseEntity:          shared.NewBaseEntity(),
		TenantID:            tenantID,
		ReturnNo:            p.ReturnNo,
		InvoiceID:           p.InvoiceID,
		Status:              trade.DocumentStatusPosted,
		ExchangeRate:        rate,
		WarehouseID:         p.WarehouseID,
		SourceEventID:       eventID,
		DeviceID:            deviceID,
		ShiftID:             p.ShiftID,
		CashierID:           p.CashierID,
		ReturnDate:          returnDate,
		RefundMethod:        normalizeMethod(p.RefundMethod),
		Reason:              p.Reason,
		ReturnCondition:     p.ReturnCondition,
		RestockingFee:       valueobject.NewDualAmount(p.RestockingFeeUSD, p.RestockingFeeLBP).Normalize(rate).Quantize(),
		RestockingFeeReason: p.RestockingFeeReason,
	}
	if ret.ReturnNo == "" {
		ret.ReturnNo = snap.ReturnNo
	}

	total := valueobject.ZeroDual()
	costTotal := valueobject.ZeroDual()
	var movements []*inventory.StockMovement

	for i, l := range p.Lines {
		if l.ItemID == uuid.Nil {
			return nil, shared.NewValidationError("MISSING_ITEM", fmt.Sprintf("line %d names no item", i+1))
		}
		if !l.Qty.IsPositive() {
			return nil, shared.NewValidationError("BAD_QTY", fmt.Sprintf("line %d has non-positive quantity", i+1))
		}

		lineTotal := valueobject.NewDualAmount(l.LineTotalUSD, l.LineTotalLBP)
		if lineTotal.IsZero() {
			price := valueobject.NewDualAmount(l.UnitPriceUSD, l.UnitPriceLBP)
			discount := valueobject.NewDualAmount(l.DiscountUSD, l.DiscountLBP)
			lineTotal = price.MulQty(l.Qty).Sub(discount)
		}
		lineTotal = lineTotal.Normalize(rate).Quantize()
		total = total.Add(lineTotal)

		// Reverse inventory at the cost the sale went out at; fall back to
		// the payload's cost, then the current average.
		unitCost := valueobject.NewDualAmount(l.UnitCostUSD, l.UnitCostLBP)
		if c, ok := snap.SaleCosts[l.ItemID]; ok {
			unitCost = c
		}
		if unitCost.IsZero() {
			if ref, ok := snap.Items[l.ItemID]; ok {
				unitCost = ref.CostLayer.AvgCost
			}
		}
		costTotal = costTotal.Add(unitCost.MulQty(l.Qty)).Quantize()

		line := trade.ReturnLine{
			ID:         uuid.New(),
			ItemID:     l.ItemID,
			Qty:        l.Qty,
			UnitPrice:  valueobject.NewDualAmount(l.UnitPriceUSD, l.UnitPriceLBP).Normalize(rate).Quantize(),
			LineTotal:  lineTotal,
			BatchNo:    l.BatchNo,
			ExpiryDate: parseExpiry(l.ExpiryDate),
			UnitCost:   unitCost.Quantize(),
		}
		ret.Lines = append(ret.Lines, line)

		if p.WarehouseID == nil {
			continue
		}
		var batchID *uuid.UUID
		if ref, ok := snap.Items[l.ItemID]; ok && ref.NamedBatch != nil {
			id := ref.NamedBatch.ID
			batchID = &id
		}
		mv := inventory.NewInboundMovement(tenantID, l.ItemID, *p.WarehouseID, batchID, l.Qty,
			unitCost, returnDate, string(ledger.SourceSalesReturn), ret.ID, "POS return")
		lineID := line.ID
		mv.SourceLineID = &lineID
		dev := deviceID
		mv.DeviceID = &dev
		movements = append(movements, mv)
	}

	tax := taxAmount(p.Tax, rate)
	ret.Total = total.Add(tax).Quantize()

	var refund *trade.Refund
	if ret.RefundMethod != "" && ret.RefundMethod != trade.PaymentMethodCredit {
		if amount := ret.RefundAmount(); amount.IsPositiveEither() {
			refund = trade.NewRefund(tenantID, ret.ID, ret.RefundMethod, amount)
		}
	}

	return &ReturnResult{Return: ret, Refund: refund, Movements: movements, CostOfGoods: costTotal, Tax: tax}, nil
}
