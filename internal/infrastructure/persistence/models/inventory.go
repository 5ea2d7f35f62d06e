package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/inventory"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
)

// BatchModel is the persistence model for stock batches. On-hand quantity is
// never stored here; it is derived from the movement ledger.
type BatchModel struct {
	BaseModel
	TenantID   uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:uq_batch_identity,priority:1"`
	ItemID     uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:uq_batch_identity,priority:2"`
	BatchNo    string                `gorm:"type:varchar(64);not null;default:'';uniqueIndex:uq_batch_identity,priority:3"`
	ExpiryDate *time.Time            `gorm:"type:date;uniqueIndex:uq_batch_identity,priority:4"`
	Status     inventory.BatchStatus `gorm:"type:varchar(20);not null;default:available"`
}

// TableName returns the table name for GORM
func (BatchModel) TableName() string {
	return "item_batches"
}

// ToDomain converts the persistence model to a domain Batch
func (m *BatchModel) ToDomain() *inventory.Batch {
	return &inventory.Batch{
		BaseEntity: m.BaseModel.ToDomain(),
		TenantID:   m.TenantID,
		ItemID:     m.ItemID,
		BatchNo:    m.BatchNo,
		ExpiryDate: m.ExpiryDate,
		Status:     m.Status,
	}
}

// FromDomain populates the persistence model from a domain Batch
func (m *BatchModel) FromDomain(b *inventory.Batch) {
	m.FromDomainBaseEntity(b.BaseEntity)
	m.TenantID = b.TenantID
	m.ItemID = b.ItemID
	m.BatchNo = b.BatchNo
	m.ExpiryDate = b.ExpiryDate
	m.Status = b.Status
}

// StockMovementModel is one append-only inventory ledger row.
type StockMovementModel struct {
	BaseModel
	TenantID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_position,priority:1;index:idx_stock_source,priority:1"`
	ItemID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_position,priority:2"`
	WarehouseID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_position,priority:3"`
	BatchID      *uuid.UUID      `gorm:"type:uuid;index"`
	QtyIn        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	QtyOut       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCostUSD  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCostLBP  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	MoveDate     time.Time       `gorm:"not null"`
	SourceType   string          `gorm:"type:varchar(32);not null;index:idx_stock_source,priority:2"`
	SourceID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_source,priority:3"`
	SourceLineID *uuid.UUID      `gorm:"type:uuid"`
	DeviceID     *uuid.UUID      `gorm:"type:uuid"`
	Reason       string          `gorm:"type:varchar(128)"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain StockMovement
func (m *StockMovementModel) ToDomain() *inventory.StockMovement {
	return &inventory.StockMovement{
		BaseEntity:   m.BaseModel.ToDomain(),
		TenantID:     m.TenantID,
		ItemID:       m.ItemID,
		WarehouseID:  m.WarehouseID,
		BatchID:      m.BatchID,
		QtyIn:        m.QtyIn,
		QtyOut:       m.QtyOut,
		UnitCost:     valueobject.NewDualAmount(m.UnitCostUSD, m.UnitCostLBP),
		MoveDate:     m.MoveDate,
		SourceType:   m.SourceType,
		SourceID:     m.SourceID,
		SourceLineID: m.SourceLineID,
		DeviceID:     m.DeviceID,
		Reason:       m.Reason,
	}
}

// FromDomain populates the persistence model from a domain StockMovement
func (m *StockMovementModel) FromDomain(mv *inventory.StockMovement) {
	m.FromDomainBaseEntity(mv.BaseEntity)
	m.TenantID = mv.TenantID
	m.ItemID = mv.ItemID
	m.WarehouseID = mv.WarehouseID
	m.BatchID = mv.BatchID
	m.QtyIn = mv.QtyIn
	m.QtyOut = mv.QtyOut
	m.UnitCostUSD, m.UnitCostLBP = mv.UnitCost.USD, mv.UnitCost.LBP
	m.MoveDate = mv.MoveDate
	m.SourceType = mv.SourceType
	m.SourceID = mv.SourceID
	m.SourceLineID = mv.SourceLineID
	m.DeviceID = mv.DeviceID
	m.Reason = mv.Reason
}

// CostLayerModel is the moving-average cost position for an item in a
// warehouse, upserted on every receipt and issue.
type CostLayerModel struct {
	TenantID    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ItemID      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OnHand      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AvgCostUSD  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AvgCostLBP  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CostLayerModel) TableName() string {
	return "item_cost_layers"
}

// ToDomain converts the persistence model to a domain CostLayer
func (m *CostLayerModel) ToDomain() inventory.CostLayer {
	return inventory.CostLayer{
		OnHand:  m.OnHand,
		AvgCost: valueobject.NewDualAmount(m.AvgCostUSD, m.AvgCostLBP),
	}
}

// ItemPolicyModel carries per-item tracking and allocation settings.
type ItemPolicyModel struct {
	TenantID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	ItemID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	TrackBatches            bool      `gorm:"not null;default:false"`
	TrackExpiry             bool      `gorm:"not null;default:false"`
	MinShelfLifeDaysForSale int       `gorm:"not null;default:0"`
	DefaultShelfLifeDays    int       `gorm:"not null;default:0"`
	AllowNegativeStock      *bool
	UpdatedAt               time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ItemPolicyModel) TableName() string {
	return "item_policies"
}

// ToDomain converts the persistence model to a domain ItemPolicy
func (m *ItemPolicyModel) ToDomain() inventory.ItemPolicy {
	return inventory.ItemPolicy{
		TrackBatches:            m.TrackBatches,
		TrackExpiry:             m.TrackExpiry,
		MinShelfLifeDaysForSale: m.MinShelfLifeDaysForSale,
		DefaultShelfLifeDays:    m.DefaultShelfLifeDays,
		AllowNegativeStock:      m.AllowNegativeStock,
	}
}

// WarehousePolicyModel carries per-warehouse allocation settings.
type WarehousePolicyModel struct {
	TenantID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	WarehouseID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	MinShelfLifeDaysDefault int       `gorm:"not null;default:0"`
	AllowNegativeStock      *bool
	UpdatedAt               time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WarehousePolicyModel) TableName() string {
	return "warehouse_policies"
}

// ToDomain converts the persistence model to a domain WarehousePolicy
func (m *WarehousePolicyModel) ToDomain() inventory.WarehousePolicy {
	return inventory.WarehousePolicy{
		MinShelfLifeDaysDefault: m.MinShelfLifeDaysDefault,
		AllowNegativeStock:      m.AllowNegativeStock,
	}
}

// TenantPolicyModel carries tenant-wide inventory settings.
type TenantPolicyModel struct {
	TenantID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	AllowNegativeStock        bool      `gorm:"not null;default:true"`
	RequireManualLotSelection bool      `gorm:"not null;default:false"`
	UpdatedAt                 time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TenantPolicyModel) TableName() string {
	return "tenant_inventory_policies"
}

// ToDomain converts the persistence model to a domain TenantPolicy
func (m *TenantPolicyModel) ToDomain() inventory.TenantPolicy {
	return inventory.TenantPolicy{
		AllowNegativeStock:        m.AllowNegativeStock,
		RequireManualLotSelection: m.RequireManualLotSelection,
	}
}
