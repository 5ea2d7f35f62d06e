package trade

import (
	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
)

// CashMovementType classifies till cash handling outside of sales
type CashMovementType string

const (
	CashMovementIn       CashMovementType = "cash_in"
	CashMovementOut      CashMovementType = "cash_out"
	CashMovementPaidOut  CashMovementType = "paid_out"
	CashMovementSafeDrop CashMovementType = "safe_drop"
	CashMovementOther    CashMovementType = "other"
)

// IsValid checks if the movement type is known
func (t CashMovementType) IsValid() bool {
	switch t {
	case CashMovementIn, CashMovementOut, CashMovementPaidOut, CashMovementSafeDrop, CashMovementOther:
		return true
	}
	return false
}

// CashMovement records cash entering or leaving a device's drawer during a
// shift. The event ID doubles as the movement ID, making replays a no-op on
// the unique key.
type CashMovement struct {
	shared.BaseEntity
	TenantID  uuid.UUID
	ShiftID   uuid.UUID
	DeviceID  uuid.UUID
	Type      CashMovementType
	Amount    valueobject.DualAmount
	Notes     string
	CashierID *uuid.UUID
}

// NewCashMovement validates and creates a drawer movement. The id argument is
// the originating event's ID.
func NewCashMovement(id, tenantID, shiftID, deviceID uuid.UUID, movementType CashMovementType, amount valueobject.DualAmount, notes string) (*CashMovement, error) {
	if !movementType.IsValid() {
		return nil, shared.NewValidationError("INVALID_MOVEMENT_TYPE", "invalid movement_type")
	}
	if amount.IsNegativeEither() {
		return nil, shared.NewValidationError("NEGATIVE_AMOUNT", "amounts must be >= 0")
	}
	if amount.IsZero() {
		return nil, shared.NewValidationError("MISSING_AMOUNT", "amount is required")
	}
	m := &CashMovement{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		ShiftID:    shiftID,
		DeviceID:   deviceID,
		Type:       movementType,
		Amount:     amount.Quantize(),
		Notes:      notes,
	}
	m.ID = id
	return m, nil
}
