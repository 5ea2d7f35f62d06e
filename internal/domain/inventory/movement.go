package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
)

// MovementDirection tags a stock movement as inbound or outbound
type MovementDirection string

const (
	DirectionIn  MovementDirection = "in"
	DirectionOut MovementDirection = "out"
)

// StockMovement is one append-only inventory ledger row. On-hand for any
// (item, warehouse, batch) is the sum of inbound minus outbound quantities.
type StockMovement struct {
	shared.BaseEntity
	TenantID    uuid.UUID
	ItemID      uuid.UUID
	WarehouseID uuid.UUID
	BatchID     *uuid.UUID
	QtyIn       decimal.Decimal
	QtyOut      decimal.Decimal
	UnitCost    valueobject.DualAmount
	MoveDate    time.Time
	SourceType  string
	SourceID    uuid.UUID
	// SourceLineID links back to the document line that caused the move.
	SourceLineID *uuid.UUID
	DeviceID     *uuid.UUID
	Reason       string
}

// NewInboundMovement records stock entering a warehouse.
func NewInboundMovement(tenantID, itemID, warehouseID uuid.UUID, batchID *uuid.UUID, qty decimal.Decimal, unitCost valueobject.DualAmount, moveDate time.Time, sourceType string, sourceID uuid.UUID, reason string) *StockMovement {
	return &StockMovement{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		ItemID:      itemID,
		WarehouseID: warehouseID,
		BatchID:     batchID,
		QtyIn:       qty,
		QtyOut:      decimal.Zero,
		UnitCost:    unitCost.Quantize(),
		MoveDate:    moveDate,
		SourceType:  sourceType,
		SourceID:    sourceID,
		Reason:      reason,
	}
}

// NewOutboundMovement records stock leaving a warehouse.
func NewOutboundMovement(tenantID, itemID, warehouseID uuid.UUID, batchID *uuid.UUID, qty decimal.Decimal, unitCost valueobject.DualAmount, moveDate time.Time, sourceType string, sourceID uuid.UUID, reason string) *StockMovement {
	return &StockMovement{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		ItemID:      itemID,
		WarehouseID: warehouseID,
		BatchID:     batchID,
		QtyIn:       decimal.Zero,
		QtyOut:      qty,
		UnitCost:    unitCost.Quantize(),
		MoveDate:    moveDate,
		SourceType:  sourceType,
		SourceID:    sourceID,
		Reason:      reason,
	}
}

// Direction returns whether the movement is inbound or outbound.
func (m *StockMovement) Direction() MovementDirection {
	if m.QtyIn.IsPositive() {
		return DirectionIn
	}
	return DirectionOut
}

// Qty returns the moved quantity regardless of direction.
func (m *StockMovement) Qty() decimal.Decimal {
	if m.QtyIn.IsPositive() {
		return m.QtyIn
	}
	return m.QtyOut
}
