package models

import (
	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/device"
)

// DeviceModel is the persistence model for registered POS terminals. Only
// the SHA-256 hash of a device token is stored.
type DeviceModel struct {
	BaseModel
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_device_code,priority:1"`
	BranchID   *uuid.UUID `gorm:"type:uuid"`
	DeviceCode string     `gorm:"type:varchar(64);not null;uniqueIndex:uq_device_code,priority:2"`
	TokenHash  string     `gorm:"type:varchar(64);not null;default:'';index"`
	Active     bool       `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (DeviceModel) TableName() string {
	return "pos_devices"
}

// ToDomain converts the persistence model to a domain Device
func (m *DeviceModel) ToDomain() *device.Device {
	return &device.Device{
		BaseEntity: m.BaseModel.ToDomain(),
		TenantID:   m.TenantID,
		BranchID:   m.BranchID,
		DeviceCode: m.DeviceCode,
		TokenHash:  m.TokenHash,
		Active:     m.Active,
	}
}

// FromDomain populates the persistence model from a domain Device
func (m *DeviceModel) FromDomain(d *device.Device) {
	m.FromDomainBaseEntity(d.BaseEntity)
	m.TenantID = d.TenantID
	m.BranchID = d.BranchID
	m.DeviceCode = d.DeviceCode
	m.TokenHash = d.TokenHash
	m.Active = d.Active
}
