package posting

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/inventory"
	"github.com/ahtrading/backend/internal/domain/ledger"
	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
	"github.com/ahtrading/backend/internal/domain/trade"
)

// ReceiptResult is a built but not yet persisted goods receipt. Movements for
// lines that name a lot carry a nil BatchID; the poster resolves or creates
// the batch row and fills it in before saving.
type ReceiptResult struct {
	Receipt   *trade.GoodsReceipt
	Movements []*inventory.StockMovement
}

// BuildReceipt turns a purchase.received payload into a goods receipt and
// inbound stock movements. Batch-tracked items must name a lot; expiry-tracked
// items fall back to the item's default shelf life when the payload has no
// expiry date.
func BuildReceipt(tenantID, deviceID, eventID uuid.UUID, p *ReceiptPayload, snap ReceiptSnapshot, now time.Time) (*ReceiptResult, error) {
	if len(p.Lines) == 0 {
		return nil, shared.NewValidationError("EMPTY_RECEIPT", "receipt event has no lines")
	}
	if p.WarehouseID == nil {
		return nil, shared.NewValidationError("MISSING_WAREHOUSE", "receipt requires warehouse_id")
	}
	rate := p.ExchangeRate
	receiptDate := businessDate(now, p.ReceiptDate, p.CreatedAt)

	gr := &trade.GoodsReceipt{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		ReceiptNo:     p.ReceiptNo,
		SupplierID:    p.SupplierID,
		PurchaseOrder: p.PurchaseOrder,
		Status:        trade.DocumentStatusPosted,
		ExchangeRate:  rate,
		WarehouseID:   *p.WarehouseID,
		SourceEventID: eventID,
		DeviceID:      deviceID,
		ReceiptDate:   receiptDate,
	}
	if gr.ReceiptNo == "" {
		gr.ReceiptNo = snap.ReceiptNo
	}

	total := valueobject.ZeroDual()
	var movements []*inventory.StockMovement

	for i, l := range p.Lines {
		if l.ItemID == uuid.Nil {
			return nil, shared.NewValidationError("MISSING_ITEM", fmt.Sprintf("line %d names no item", i+1))
		}
		if !l.Qty.IsPositive() {
			return nil, shared.NewValidationError("BAD_QTY", fmt.Sprintf("line %d has non-positive quantity", i+1))
		}
		ref := snap.Items[l.ItemID]

		batchNo := inventory.NormalizeBatchNo(l.BatchNo)
		if ref.Policy.TrackBatches && batchNo == "" {
			return nil, shared.NewValidationError("MISSING_BATCH",
				fmt.Sprintf("item %s is batch tracked and requires a batch number", l.ItemID))
		}

		expiry := parseExpiry(l.ExpiryDate)
		if expiry == nil && ref.Policy.TrackExpiry {
			if ref.Policy.DefaultShelfLifeDays > 0 {
				d := receiptDate.AddDate(0, 0, ref.Policy.DefaultShelfLifeDays)
				expiry = &d
			} else {
				return nil, shared.NewValidationError("MISSING_EXPIRY",
					fmt.Sprintf("item %s is expiry tracked and requires an expiry date", l.ItemID))
			}
		}

		unitCost := valueobject.NewDualAmount(l.UnitCostUSD, l.UnitCostLBP).Normalize(rate).Quantize()
		line := trade.ReceiptLine{
			ID:         uuid.New(),
			ItemID:     l.ItemID,
			Qty:        l.Qty,
			UnitCost:   unitCost,
			BatchNo:    batchNo,
			ExpiryDate: expiry,
		}
		gr.Lines = append(gr.Lines, line)
		total = total.Add(line.LineTotal())

		mv := inventory.NewInboundMovement(tenantID, l.ItemID, gr.WarehouseID, nil, l.Qty,
			unitCost, receiptDate, string(ledger.SourceGoodsReceipt), gr.ID, "POS goods receipt")
		lineID := line.ID
		mv.SourceLineID = &lineID
		dev := deviceID
		mv.DeviceID = &dev
		movements = append(movements, mv)
	}

	gr.Total = total.Quantize()
	return &ReceiptResult{Receipt: gr, Movements: movements}, nil
}
