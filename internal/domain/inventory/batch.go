package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/shared"
)

// BatchStatus represents the disposition of a stock batch
type BatchStatus string

const (
	BatchStatusAvailable  BatchStatus = "available"
	BatchStatusQuarantine BatchStatus = "quarantine"
	BatchStatusExpired    BatchStatus = "expired"
)

// IsValid checks if the status is a known batch status
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusAvailable, BatchStatusQuarantine, BatchStatusExpired:
		return true
	}
	return false
}

// Batch is a lot of an item identified by (item, batch_no, expiry). Quantity
// is not stored on the batch; on-hand is derived from stock movements.
type Batch struct {
	shared.BaseEntity
	TenantID   uuid.UUID
	ItemID     uuid.UUID
	BatchNo    string
	ExpiryDate *time.Time
	Status     BatchStatus
}

// NewBatch creates an available batch for an item.
func NewBatch(tenantID, itemID uuid.UUID, batchNo string, expiryDate *time.Time) *Batch {
	return &Batch{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		ItemID:     itemID,
		BatchNo:    NormalizeBatchNo(batchNo),
		ExpiryDate: expiryDate,
		Status:     BatchStatusAvailable,
	}
}

// NormalizeBatchNo canonicalizes a client-supplied lot number.
func NormalizeBatchNo(batchNo string) string {
	return strings.TrimSpace(batchNo)
}

// MeetsShelfLife reports whether the batch expires on or after minExpiry.
// Batches without an expiry date always pass.
func (b *Batch) MeetsShelfLife(minExpiry time.Time) bool {
	return b.ExpiryDate == nil || !b.ExpiryDate.Before(minExpiry)
}

// Allocatable reports whether outbound stock may be drawn from this batch.
func (b *Batch) Allocatable() bool {
	return b.Status == BatchStatusAvailable
}
