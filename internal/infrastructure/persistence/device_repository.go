package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahtrading/backend/internal/domain/device"
	"github.com/ahtrading/backend/internal/infrastructure/persistence/models"
)

// GormDeviceRepository implements device.Repository using GORM
type GormDeviceRepository struct {
	db *gorm.DB
}

// NewGormDeviceRepository creates a new GormDeviceRepository
func NewGormDeviceRepository(db *gorm.DB) *GormDeviceRepository {
	return &GormDeviceRepository{db: db}
}

// Save creates or updates a device
func (r *GormDeviceRepository) Save(ctx context.Context, d *device.Device) error {
	var model models.DeviceModel
	model.FromDomain(d)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"branch_id", "token_hash", "active", "updated_at"}),
		}).
		Create(&model).Error
}

// FindByID finds a device by ID within a tenant
func (r *GormDeviceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*device.Device, error) {
	var model models.DeviceModel
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

// FindByCode finds a device by its code within a tenant
func (r *GormDeviceRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, deviceCode string) (*device.Device, error) {
	var model models.DeviceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND device_code = ?", tenantID, deviceCode).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTokenHash finds an active device by its token hash
func (r *GormDeviceRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*device.Device, error) {
	if tokenHash == "" {
		return nil, nil
	}
	var model models.DeviceModel
	if err := r.db.WithContext(ctx).
		Where("token_hash = ? AND active = ?", tokenHash, true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var _ device.Repository = (*GormDeviceRepository)(nil)
