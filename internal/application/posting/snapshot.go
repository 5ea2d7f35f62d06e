package posting

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/inventory"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
	"github.com/ahtrading/backend/internal/domain/trade"
)

// ItemRef is the read-only per-item reference data a builder needs: tracking
// policy, moving-average cost position, on-hand batch positions, and the
// resolution of any lot the payload named explicitly.
type ItemRef struct {
	Policy    inventory.ItemPolicy
	CostLayer inventory.CostLayer
	Stocks    []inventory.BatchStock
	// NamedBatch is the batch matching the payload's batch_no/expiry, when
	// the line names one. Nil when none was named or none exists.
	NamedBatch       *inventory.Batch
	NamedBatchOnHand decimal.Decimal
}

// SaleSnapshot is the reference data for building a sale.completed document.
// Builders never read persistent state; the poster assembles this inside the
// posting transaction.
type SaleSnapshot struct {
	InvoiceNo       string
	TenantPolicy    inventory.TenantPolicy
	WarehousePolicy inventory.WarehousePolicy
	Items           map[uuid.UUID]ItemRef
	Customer        *trade.Customer
	BranchID        *uuid.UUID
}

// ReturnSnapshot is the reference data for building a sale.returned document.
type ReturnSnapshot struct {
	ReturnNo string
	// OriginalInvoice is the posted invoice the return references.
	OriginalInvoice *trade.Invoice
	// SaleCosts maps item to the unit cost its original sale went out at,
	// used to reverse COGS precisely.
	SaleCosts map[uuid.UUID]valueobject.DualAmount
	// ReturnedQty maps item to the quantity already returned against the
	// invoice by earlier posted returns.
	ReturnedQty map[uuid.UUID]decimal.Decimal
	Items       map[uuid.UUID]ItemRef
}

// ReceiptSnapshot is the reference data for building a purchase.received
// document.
type ReceiptSnapshot struct {
	ReceiptNo       string
	TenantPolicy    inventory.TenantPolicy
	WarehousePolicy inventory.WarehousePolicy
	Items           map[uuid.UUID]ItemRef
}

// PurchaseInvoiceSnapshot is the reference data for building a
// purchase.invoice document.
type PurchaseInvoiceSnapshot struct {
	InvoiceNo string
	// Receipt is the goods receipt the invoice bills, when linked.
	Receipt *trade.GoodsReceipt
	// SupplierTermsDays shifts the due date past the invoice date.
	SupplierTermsDays int
	// MatchThreshold is the tenant's 3-way-match variance tolerance ratio.
	MatchThreshold decimal.Decimal
}

// CashMovementSnapshot is the reference data for building a
// pos.cash_movement record.
type CashMovementSnapshot struct {
	// ShiftID is the open shift resolved for the device.
	ShiftID *uuid.UUID
}
