package device

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists registered devices.
type Repository interface {
	Save(ctx context.Context, device *Device) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Device, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, deviceCode string) (*Device, error)
	// FindByTokenHash resolves a device from a presented token's hash.
	FindByTokenHash(ctx context.Context, tokenHash string) (*Device, error)
}
