package posting

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
	"github.com/ahtrading/backend/internal/domain/trade"
)

// BuildCashMovement turns a pos.cash_movement payload into a drawer movement.
// The payload's shift wins over the device's open shift; having neither is a
// conflict since a drawer movement outside a shift cannot be reconciled.
func BuildCashMovement(tenantID, deviceID, eventID uuid.UUID, p *CashMovementPayload, snap CashMovementSnapshot) (*trade.CashMovement, error) {
	shiftID := p.ShiftID
	if shiftID == nil {
		shiftID = snap.ShiftID
	}
	if shiftID == nil {
		return nil, shared.NewConflictError("NO_OPEN_SHIFT", "no open shift for device")
	}

	amount := valueobject.NewDualAmount(p.AmountUSD, p.AmountLBP)
	m, err := trade.NewCashMovement(eventID, tenantID, *shiftID, deviceID,
		trade.CashMovementType(strings.ToLower(strings.TrimSpace(p.MovementType))), amount, p.Notes)
	if err != nil {
		return nil, err
	}
	m.CashierID = p.CashierID
	return m, nil
}
