package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahtrading/backend/internal/domain/inventory"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
	"github.com/ahtrading/backend/internal/infrastructure/persistence/models"
)

// GormBatchRepository implements inventory.BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

func (r *GormBatchRepository) find(ctx context.Context, tenantID, itemID uuid.UUID, batchNo string, expiry *time.Time) (*models.BatchModel, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND item_id = ? AND batch_no = ?", tenantID, itemID, batchNo)
	if expiry == nil {
		query = query.Where("expiry_date IS NULL")
	} else {
		query = query.Where("expiry_date = ?", *expiry)
	}

	var model models.BatchModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model, nil
}

// Find resolves a batch by (item, batch_no, expiry) without creating
func (r *GormBatchRepository) Find(ctx context.Context, tenantID, itemID uuid.UUID, batchNo string, expiry *time.Time) (*inventory.Batch, error) {
	batchNo = inventory.NormalizeBatchNo(batchNo)
	if batchNo == "" && expiry == nil {
		return nil, nil
	}
	model, err := r.find(ctx, tenantID, itemID, batchNo, expiry)
	if err != nil || model == nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOrCreate resolves a batch by (item, batch_no, expiry), creating an
// available one when absent
func (r *GormBatchRepository) FindOrCreate(ctx context.Context, tenantID, itemID uuid.UUID, batchNo string, expiry *time.Time) (*inventory.Batch, error) {
	batchNo = inventory.NormalizeBatchNo(batchNo)
	if batchNo == "" && expiry == nil {
		return nil, nil
	}

	model, err := r.find(ctx, tenantID, itemID, batchNo, expiry)
	if err != nil {
		return nil, err
	}
	if model != nil {
		return model.ToDomain(), nil
	}

	batch := inventory.NewBatch(tenantID, itemID, batchNo, expiry)
	var created models.BatchModel
	created.FromDomain(batch)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&created).Error; err != nil {
		return nil, err
	}

	// A concurrent creator may have won the conflict; re-read either way.
	model, err = r.find(ctx, tenantID, itemID, batchNo, expiry)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return batch, nil
	}
	return model.ToDomain(), nil
}

// FindByID retrieves a batch
func (r *GormBatchRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Batch, error) {
	var model models.BatchModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var _ inventory.BatchRepository = (*GormBatchRepository)(nil)

// GormStockRepository implements inventory.StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// SaveMovements appends movements
func (r *GormStockRepository) SaveMovements(ctx context.Context, movements ...*inventory.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	rows := make([]*models.StockMovementModel, 0, len(movements))
	for _, mv := range movements {
		var m models.StockMovementModel
		m.FromDomain(mv)
		rows = append(rows, &m)
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// BatchStocks returns per-batch on-hand positions for an item in a warehouse.
// The item's batch rows are locked first so two concurrent allocations of the
// same item serialize instead of double-spending a lot.
func (r *GormStockRepository) BatchStocks(ctx context.Context, tenantID, itemID, warehouseID uuid.UUID) ([]inventory.BatchStock, error) {
	var lockRows []models.BatchModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND item_id = ?", tenantID, itemID).
		Find(&lockRows).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		BatchID    *uuid.UUID
		BatchNo    string
		ExpiryDate *time.Time
		Status     inventory.BatchStatus
		OnHand     decimal.Decimal
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT m.batch_id,
		       COALESCE(b.batch_no, '') AS batch_no,
		       b.expiry_date,
		       COALESCE(b.status, 'available') AS status,
		       SUM(m.qty_in - m.qty_out) AS on_hand
		FROM stock_movements m
		LEFT JOIN item_batches b ON b.id = m.batch_id
		WHERE m.tenant_id = ? AND m.item_id = ? AND m.warehouse_id = ?
		GROUP BY m.batch_id, b.batch_no, b.expiry_date, b.status`,
		tenantID, itemID, warehouseID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stocks := make([]inventory.BatchStock, 0, len(rows))
	for _, row := range rows {
		stocks = append(stocks, inventory.BatchStock{
			BatchID:    row.BatchID,
			BatchNo:    row.BatchNo,
			ExpiryDate: row.ExpiryDate,
			Status:     row.Status,
			OnHand:     row.OnHand,
		})
	}
	return stocks, nil
}

// OnHand returns the on-hand quantity for one batch position
func (r *GormStockRepository) OnHand(ctx context.Context, tenantID, itemID, warehouseID uuid.UUID, batchID *uuid.UUID) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.StockMovementModel{}).
		Select("COALESCE(SUM(qty_in - qty_out), 0)").
		Where("tenant_id = ? AND item_id = ? AND warehouse_id = ?", tenantID, itemID, warehouseID)
	if batchID == nil {
		query = query.Where("batch_id IS NULL")
	} else {
		query = query.Where("batch_id = ?", *batchID)
	}

	var onHand decimal.Decimal
	if err := query.Scan(&onHand).Error; err != nil {
		return decimal.Zero, err
	}
	return onHand, nil
}

// CostLayer returns the moving-average position for an item in a warehouse
func (r *GormStockRepository) CostLayer(ctx context.Context, tenantID, itemID, warehouseID uuid.UUID) (inventory.CostLayer, error) {
	var model models.CostLayerModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND item_id = ? AND warehouse_id = ?", tenantID, itemID, warehouseID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventory.CostLayer{OnHand: decimal.Zero, AvgCost: valueobject.ZeroDual()}, nil
		}
		return inventory.CostLayer{}, err
	}
	return model.ToDomain(), nil
}

// SaveCostLayer upserts the moving-average position
func (r *GormStockRepository) SaveCostLayer(ctx context.Context, tenantID, itemID, warehouseID uuid.UUID, layer inventory.CostLayer) error {
	model := models.CostLayerModel{
		TenantID:    tenantID,
		ItemID:      itemID,
		WarehouseID: warehouseID,
		OnHand:      layer.OnHand,
		AvgCostUSD:  layer.AvgCost.USD,
		AvgCostLBP:  layer.AvgCost.LBP,
		UpdatedAt:   time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "item_id"}, {Name: "warehouse_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"on_hand", "avg_cost_usd", "avg_cost_lbp", "updated_at"}),
		}).
		Create(&model).Error
}

// SourceUnitCosts returns the per-item outbound unit costs recorded for a
// source document, keyed by item
func (r *GormStockRepository) SourceUnitCosts(ctx context.Context, tenantID uuid.UUID, sourceType string, sourceID uuid.UUID) (map[uuid.UUID]valueobject.DualAmount, error) {
	var rows []struct {
		ItemID      uuid.UUID
		UnitCostUSD decimal.Decimal
		UnitCostLBP decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.StockMovementModel{}).
		Select("item_id, unit_cost_usd, unit_cost_lbp").
		Where("tenant_id = ? AND source_type = ? AND source_id = ? AND qty_out > 0",
			tenantID, sourceType, sourceID).
		Order("created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	costs := make(map[uuid.UUID]valueobject.DualAmount, len(rows))
	for _, row := range rows {
		if _, done := costs[row.ItemID]; done {
			continue
		}
		costs[row.ItemID] = valueobject.NewDualAmount(row.UnitCostUSD, row.UnitCostLBP)
	}
	return costs, nil
}

var _ inventory.StockRepository = (*GormStockRepository)(nil)

// GormPolicyRepository implements inventory.PolicyRepository using GORM
type GormPolicyRepository struct {
	db *gorm.DB
}

// NewGormPolicyRepository creates a new GormPolicyRepository
func NewGormPolicyRepository(db *gorm.DB) *GormPolicyRepository {
	return &GormPolicyRepository{db: db}
}

// TenantPolicy resolves the tenant-wide inventory settings
func (r *GormPolicyRepository) TenantPolicy(ctx context.Context, tenantID uuid.UUID) (inventory.TenantPolicy, error) {
	var model models.TenantPolicyModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventory.DefaultTenantPolicy(), nil
		}
		return inventory.TenantPolicy{}, err
	}
	return model.ToDomain(), nil
}

// ItemPolicies resolves per-item policies; items without a row get the zero
// policy (untracked).
func (r *GormPolicyRepository) ItemPolicies(ctx context.Context, tenantID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID]inventory.ItemPolicy, error) {
	policies := make(map[uuid.UUID]inventory.ItemPolicy, len(itemIDs))
	if len(itemIDs) == 0 {
		return policies, nil
	}

	var rows []models.ItemPolicyModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND item_id IN ?", tenantID, itemIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		policies[rows[i].ItemID] = rows[i].ToDomain()
	}
	return policies, nil
}

// WarehousePolicy resolves the per-warehouse settings
func (r *GormPolicyRepository) WarehousePolicy(ctx context.Context, tenantID, warehouseID uuid.UUID) (inventory.WarehousePolicy, error) {
	var model models.WarehousePolicyModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND warehouse_id = ?", tenantID, warehouseID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventory.WarehousePolicy{}, nil
		}
		return inventory.WarehousePolicy{}, err
	}
	return model.ToDomain(), nil
}

var _ inventory.PolicyRepository = (*GormPolicyRepository)(nil)
