package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahtrading/backend/internal/application/posting"
	"github.com/ahtrading/backend/internal/infrastructure/persistence/models"
)

// OutboxTenantSource feeds the dispatcher the tenants that currently have
// claimable work, so idle tenants cost nothing per poll.
type OutboxTenantSource struct {
	db *gorm.DB
}

// NewOutboxTenantSource creates a new OutboxTenantSource
func NewOutboxTenantSource(db *gorm.DB) *OutboxTenantSource {
	return &OutboxTenantSource{db: db}
}

// ActiveTenantIDs returns the tenants with pending or retryable events
func (s *OutboxTenantSource) ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var tenantIDs []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.OutboxEventModel{}).
		Distinct("tenant_id").
		Where("status IN ?", []string{"pending", "failed"}).
		Pluck("tenant_id", &tenantIDs).Error
	if err != nil {
		return nil, err
	}
	return tenantIDs, nil
}

var _ posting.TenantSource = (*OutboxTenantSource)(nil)
