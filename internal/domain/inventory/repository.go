package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
)

// BatchRepository persists item batches.
type BatchRepository interface {
	// FindOrCreate resolves a batch by (item, batch_no, expiry), creating an
	// available one when absent. Returns nil when both batchNo and expiry are
	// empty.
	FindOrCreate(ctx context.Context, tenantID, itemID uuid.UUID, batchNo string, expiry *time.Time) (*Batch, error)
	// Find resolves a batch by (item, batch_no, expiry) without creating.
	Find(ctx context.Context, tenantID, itemID uuid.UUID, batchNo string, expiry *time.Time) (*Batch, error)
	// FindByID retrieves a batch.
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Batch, error)
}

// StockRepository reads and appends the stock movement ledger.
type StockRepository interface {
	// SaveMovements appends movements.
	SaveMovements(ctx context.Context, movements ...*StockMovement) error
	// BatchStocks returns per-batch on-hand positions for an item in a
	// warehouse, including the unbatched position, locked against concurrent
	// allocation for the duration of the transaction.
	BatchStocks(ctx context.Context, tenantID, itemID, warehouseID uuid.UUID) ([]BatchStock, error)
	// OnHand returns the on-hand quantity for one batch position. A nil
	// batchID addresses unbatched stock.
	OnHand(ctx context.Context, tenantID, itemID, warehouseID uuid.UUID, batchID *uuid.UUID) (decimal.Decimal, error)
	// CostLayer returns the moving-average position for an item in a
	// warehouse.
	CostLayer(ctx context.Context, tenantID, itemID, warehouseID uuid.UUID) (CostLayer, error)
	// SaveCostLayer upserts the moving-average position.
	SaveCostLayer(ctx context.Context, tenantID, itemID, warehouseID uuid.UUID, layer CostLayer) error
	// SourceUnitCosts returns the per-item outbound unit costs recorded for a
	// source document, keyed by item.
	SourceUnitCosts(ctx context.Context, tenantID uuid.UUID, sourceType string, sourceID uuid.UUID) (map[uuid.UUID]valueobject.DualAmount, error)
}

// PolicyRepository resolves allocation policies.
type PolicyRepository interface {
	TenantPolicy(ctx context.Context, tenantID uuid.UUID) (TenantPolicy, error)
	ItemPolicies(ctx context.Context, tenantID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID]ItemPolicy, error)
	WarehousePolicy(ctx context.Context, tenantID, warehouseID uuid.UUID) (WarehousePolicy, error)
}
