package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
)

// ReturnLine is one returned item on a sales return.
type ReturnLine struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	Qty        decimal.Decimal
	UnitPrice  valueobject.DualAmount
	LineTotal  valueobject.DualAmount
	BatchNo    string
	ExpiryDate *time.Time
	// UnitCost reverses the cost the original sale went out at.
	UnitCost valueobject.DualAmount
}

// SalesReturn reverses all or part of a posted sales invoice. The refund owed
// to the customer is the return total net of any restocking fee.
type SalesReturn struct {
	shared.BaseEntity
	TenantID            uuid.UUID
	ReturnNo            string
	InvoiceID           *uuid.UUID
	Status              DocumentStatus
	Total               valueobject.DualAmount
	ExchangeRate        decimal.Decimal
	WarehouseID         *uuid.UUID
	SourceEventID       uuid.UUID
	DeviceID            uuid.UUID
	ShiftID             *uuid.UUID
	CashierID           *uuid.UUID
	ReturnDate          time.Time
	RefundMethod        string
	Reason              string
	ReturnCondition     string
	RestockingFee       valueobject.DualAmount
	RestockingFeeReason string
	Lines               []ReturnLine
}

// RefundAmount returns the amount actually refunded: total net of the
// restocking fee, floored at zero per leg.
func (r *SalesReturn) RefundAmount() valueobject.DualAmount {
	refund := r.Total.Sub(r.RestockingFee)
	if refund.USD.IsNegative() {
		refund.USD = decimal.Zero
	}
	if refund.LBP.IsNegative() {
		refund.LBP = decimal.Zero
	}
	return refund
}

// RefundStatus represents the settlement state of a refund
type RefundStatus string

const (
	RefundStatusPending RefundStatus = "pending"
	RefundStatusSettled RefundStatus = "settled"
)

// Refund is the first-class money-out transaction created for a sales
// return. Bank refunds link to the bank transaction once reconciled.
type Refund struct {
	shared.BaseEntity
	TenantID          uuid.UUID
	ReturnID          uuid.UUID
	Method            string
	Amount            valueobject.DualAmount
	Status            RefundStatus
	BankTransactionID *uuid.UUID
}

// NewRefund creates a pending refund for a sales return.
func NewRefund(tenantID, returnID uuid.UUID, method string, amount valueobject.DualAmount) *Refund {
	return &Refund{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		ReturnID:   returnID,
		Method:     method,
		Amount:     amount.Quantize(),
		Status:     RefundStatusPending,
	}
}

// Settle marks the refund as paid out, optionally linking the bank movement.
func (r *Refund) Settle(bankTransactionID *uuid.UUID) {
	r.Status = RefundStatusSettled
	r.BankTransactionID = bankTransactionID
	r.Touch()
}
