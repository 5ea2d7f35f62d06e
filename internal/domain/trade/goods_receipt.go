package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
)

// ReceiptLine is one received item on a goods receipt.
type ReceiptLine struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	Qty        decimal.Decimal
	UnitCost   valueobject.DualAmount
	BatchNo    string
	ExpiryDate *time.Time
}

// GoodsReceipt records stock arriving from a supplier ahead of the supplier
// invoice. Its value accrues to GRNI until the invoice clears it.
type GoodsReceipt struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	ReceiptNo     string
	SupplierID    *uuid.UUID
	PurchaseOrder string
	Status        DocumentStatus
	Total         valueobject.DualAmount
	ExchangeRate  decimal.Decimal
	WarehouseID   uuid.UUID
	SourceEventID uuid.UUID
	DeviceID      uuid.UUID
	ReceiptDate   time.Time
	Lines         []ReceiptLine
}

// LineTotal returns qty * unit cost for one receipt line, quantized.
func (l ReceiptLine) LineTotal() valueobject.DualAmount {
	return l.UnitCost.MulQty(l.Qty).Quantize()
}
