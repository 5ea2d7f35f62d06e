package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceRepository persists sales invoices.
type InvoiceRepository interface {
	Save(ctx context.Context, invoice *Invoice) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	// FindBySourceEvent returns the invoice posted for an event, if any.
	FindBySourceEvent(ctx context.Context, tenantID, eventID uuid.UUID) (*Invoice, error)
}

// SalesReturnRepository persists sales returns and their refunds.
type SalesReturnRepository interface {
	Save(ctx context.Context, ret *SalesReturn) error
	SaveRefund(ctx context.Context, refund *Refund) error
	FindBySourceEvent(ctx context.Context, tenantID, eventID uuid.UUID) (*SalesReturn, error)
	// ReturnedQuantities sums, per item, the quantities already returned
	// against an invoice across its posted returns.
	ReturnedQuantities(ctx context.Context, tenantID, invoiceID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

// GoodsReceiptRepository persists goods receipts.
type GoodsReceiptRepository interface {
	Save(ctx context.Context, receipt *GoodsReceipt) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*GoodsReceipt, error)
	FindBySourceEvent(ctx context.Context, tenantID, eventID uuid.UUID) (*GoodsReceipt, error)
}

// SupplierInvoiceRepository persists supplier invoices.
type SupplierInvoiceRepository interface {
	Save(ctx context.Context, invoice *SupplierInvoice) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*SupplierInvoice, error)
	FindBySourceEvent(ctx context.Context, tenantID, eventID uuid.UUID) (*SupplierInvoice, error)
	// ReleaseHold clears the match-variance hold so a requeued event can
	// book the withheld journal.
	ReleaseHold(ctx context.Context, tenantID, id uuid.UUID) error
}

// CashMovementRepository persists drawer movements.
type CashMovementRepository interface {
	// Save inserts a movement, ignoring replays of the same ID.
	Save(ctx context.Context, movement *CashMovement) error
}

// CustomerRepository reads and updates customer credit positions.
type CustomerRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error)
	UpdateCreditBalance(ctx context.Context, customer *Customer) error
}

// ShiftRepository resolves register shifts for drawer movements.
type ShiftRepository interface {
	// OpenShiftID returns the open shift for a device, or nil when none.
	OpenShiftID(ctx context.Context, tenantID, deviceID uuid.UUID) (*uuid.UUID, error)
}

// SupplierRepository reads supplier payment terms.
type SupplierRepository interface {
	// PaymentTermsDays returns the supplier's net terms; zero means cash terms.
	PaymentTermsDays(ctx context.Context, tenantID, supplierID uuid.UUID) (int, error)
}

// SettingsRepository reads tenant-level trade settings.
type SettingsRepository interface {
	// MatchVarianceThreshold returns the 3-way-match tolerance ratio.
	MatchVarianceThreshold(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)
}
