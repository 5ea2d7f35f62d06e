package inventory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/shared"
)

// BatchStock is one batch's on-hand position in a warehouse. A nil BatchID
// represents unbatched stock.
type BatchStock struct {
	BatchID    *uuid.UUID
	BatchNo    string
	ExpiryDate *time.Time
	Status     BatchStatus
	OnHand     decimal.Decimal
}

// Allocation assigns part of an outbound quantity to a batch. A nil BatchID
// is a deficit or unbatched draw.
type Allocation struct {
	BatchID *uuid.UUID
	Qty     decimal.Decimal
}

// AllocateFEFO distributes an outbound quantity across eligible batches,
// earliest expiry first, never-expiring stock last. Quarantined and expired
// batches are never drawn from, nor are batches expiring before minExpiry.
// When eligible stock falls short the remainder becomes an unbatched deficit
// draw if both negative stock and unbatched remainders are allowed; otherwise
// the allocation fails.
func AllocateFEFO(
	stocks []BatchStock,
	qtyOut decimal.Decimal,
	minExpiry *time.Time,
	allowNegativeStock bool,
	allowUnbatchedRemainder bool,
) ([]Allocation, error) {
	if !qtyOut.IsPositive() {
		return nil, nil
	}

	eligible := make([]BatchStock, 0, len(stocks))
	for _, s := range stocks {
		if !s.OnHand.IsPositive() {
			continue
		}
		if s.BatchID != nil && s.Status != BatchStatusAvailable {
			continue
		}
		if minExpiry != nil && s.ExpiryDate != nil && s.ExpiryDate.Before(*minExpiry) {
			continue
		}
		eligible = append(eligible, s)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		ei, ej := eligible[i].ExpiryDate, eligible[j].ExpiryDate
		if ei == nil && ej == nil {
			return batchIDLess(eligible[i].BatchID, eligible[j].BatchID)
		}
		if ei == nil {
			return false
		}
		if ej == nil {
			return true
		}
		if !ei.Equal(*ej) {
			return ei.Before(*ej)
		}
		return batchIDLess(eligible[i].BatchID, eligible[j].BatchID)
	})

	remaining := qtyOut
	var out []Allocation
	for _, s := range eligible {
		if !remaining.IsPositive() {
			break
		}
		take := s.OnHand
		if take.GreaterThan(remaining) {
			take = remaining
		}
		out = append(out, Allocation{BatchID: s.BatchID, Qty: take})
		remaining = remaining.Sub(take)
	}

	if remaining.IsPositive() {
		if !allowNegativeStock {
			return nil, shared.NewConflictError("INSUFFICIENT_STOCK",
				"insufficient stock for allocation (negative stock disabled)")
		}
		if !allowUnbatchedRemainder {
			return nil, shared.NewConflictError("INSUFFICIENT_BATCH_STOCK",
				"insufficient eligible batch stock for FEFO allocation")
		}
		out = append(out, Allocation{BatchID: nil, Qty: remaining})
	}
	return out, nil
}

// AllocateManual validates an explicit lot choice from the event payload.
// There is no fallback to auto-allocation: a named batch that is missing,
// short on stock, or inside the shelf-life floor fails the allocation.
func AllocateManual(batch *Batch, onHand, qtyOut decimal.Decimal, minExpiry *time.Time) ([]Allocation, error) {
	if batch == nil {
		return nil, shared.NewValidationError("BATCH_NOT_FOUND",
			"specified batch/expiry not found for item (cannot allocate)")
	}
	if !batch.Allocatable() {
		return nil, shared.NewConflictError("BATCH_NOT_AVAILABLE",
			"specified batch is not available for allocation")
	}
	if minExpiry != nil && !batch.MeetsShelfLife(*minExpiry) {
		return nil, shared.NewConflictError("BATCH_SHELF_LIFE",
			"specified batch does not meet min shelf-life requirement")
	}
	if onHand.LessThan(qtyOut) {
		return nil, shared.NewConflictError("INSUFFICIENT_STOCK",
			"insufficient stock for specified batch allocation")
	}
	id := batch.ID
	return []Allocation{{BatchID: &id, Qty: qtyOut}}, nil
}

func batchIDLess(a, b *uuid.UUID) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	return a.String() < b.String()
}
