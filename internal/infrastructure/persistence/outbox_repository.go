package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahtrading/backend/internal/domain/outbox"
	"github.com/ahtrading/backend/internal/infrastructure/persistence/models"
)

// GormOutboxRepository implements outbox.Repository using GORM
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new GormOutboxRepository
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// Save persists new events
func (r *GormOutboxRepository) Save(ctx context.Context, events ...*outbox.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]*models.OutboxEventModel, 0, len(events))
	for _, e := range events {
		rows = append(rows, models.OutboxEventModelFromDomain(e))
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// Insert stores a single event, reporting false when uq_outbox_wire or
// uq_outbox_idem already holds the slot. The explicit statement keeps the
// conflict check and the write in one round trip, so two racing submissions
// with the same key cannot both land.
func (r *GormOutboxRepository) Insert(ctx context.Context, event *outbox.Event) (bool, error) {
	m := models.OutboxEventModelFromDomain(event)
	res := r.db.WithContext(ctx).Exec(`
		INSERT INTO outbox_events (
			id, tenant_id, device_id, event_id, event_type, payload,
			idempotency_key, status, attempt_count, max_attempts, last_error,
			next_attempt_at, duplicate_of, resulting_document_id, processed_at,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		m.ID, m.TenantID, m.DeviceID, m.EventID, m.EventType, m.Payload,
		m.IdempotencyKey, m.Status, m.AttemptCount, m.MaxAttempts, m.LastError,
		m.NextAttemptAt, m.DuplicateOf, m.ResultingDocumentID, m.ProcessedAt,
		m.CreatedAt, m.UpdatedAt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindByID retrieves an event by its internal ID within a tenant
func (r *GormOutboxRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*outbox.Event, error) {
	var model models.OutboxEventModel
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

// FindByWireIdentity retrieves an event by its (device, event_id) wire key
func (r *GormOutboxRepository) FindByWireIdentity(ctx context.Context, deviceID, eventID uuid.UUID) (*outbox.Event, error) {
	var model models.OutboxEventModel
	if err := r.db.WithContext(ctx).
		Where("device_id = ? AND event_id = ?", deviceID, eventID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIdempotencyKey retrieves the non-dead event holding the key for a
// tenant and event type, if any. Dead events release their key so a corrected
// resubmission can claim it.
func (r *GormOutboxRepository) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, eventType, key string) (*outbox.Event, error) {
	if key == "" {
		return nil, nil
	}
	var model models.OutboxEventModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND event_type = ? AND idempotency_key = ? AND status <> ?",
			tenantID, eventType, key, outbox.StatusDead).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ClaimNext atomically claims the oldest retry-eligible event for the tenant.
// Within a device only the oldest non-terminal event is ever a candidate, so a
// later sale can never post ahead of an earlier return still waiting out its
// backoff. A device whose oldest eligible event is backoff-gated or in flight
// contributes nothing this round.
func (r *GormOutboxRepository) ClaimNext(ctx context.Context, tenantID uuid.UUID, now time.Time) (*outbox.Event, error) {
	var claimed *outbox.Event
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.OutboxEventModel
		err := tx.Raw(`
			SELECT * FROM outbox_events e
			WHERE e.tenant_id = ?
			  AND (e.status = 'pending'
			       OR (e.status = 'failed' AND e.attempt_count < e.max_attempts
			           AND (e.next_attempt_at IS NULL OR e.next_attempt_at <= ?)))
			  AND NOT EXISTS (
			        SELECT 1 FROM outbox_events p
			        WHERE p.device_id = e.device_id
			          AND p.status IN ('pending', 'processing', 'failed')
			          AND (p.created_at, p.event_id) < (e.created_at, e.event_id))
			ORDER BY e.created_at ASC, e.event_id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED`, tenantID, now).
			Scan(&model).Error
		if err != nil {
			return err
		}
		if model.ID == uuid.Nil {
			return nil
		}

		ev := model.ToDomain()
		if err := ev.MarkProcessing(); err != nil {
			return err
		}
		if err := tx.Model(&models.OutboxEventModel{}).
			Where("id = ?", ev.ID).
			Updates(map[string]interface{}{
				"status":     ev.Status,
				"updated_at": ev.UpdatedAt,
			}).Error; err != nil {
			return err
		}
		claimed = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Claim atomically claims one specific event. force bypasses the next-attempt
// gate for manual retries; terminal events are never claimable.
func (r *GormOutboxRepository) Claim(ctx context.Context, tenantID, id uuid.UUID, now time.Time, force bool) (*outbox.Event, error) {
	var claimed *outbox.Event
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.OutboxEventModel
		err := tx.Raw(`
			SELECT * FROM outbox_events
			WHERE tenant_id = ? AND id = ?
			FOR UPDATE SKIP LOCKED`, tenantID, id).
			Scan(&model).Error
		if err != nil {
			return err
		}
		if model.ID == uuid.Nil {
			return nil
		}

		ev := model.ToDomain()
		if ev.Status != outbox.StatusPending && ev.Status != outbox.StatusFailed {
			return nil
		}
		if !force && !ev.RetryEligible(now) {
			return nil
		}

		// A manual claim still honors per-device serialization: while the
		// dispatcher has another of this device's events in flight, the claim
		// yields rather than post the two concurrently.
		var inFlight int64
		if err := tx.Model(&models.OutboxEventModel{}).
			Where("device_id = ? AND status = ? AND id <> ?",
				ev.DeviceID, outbox.StatusProcessing, ev.ID).
			Count(&inFlight).Error; err != nil {
			return err
		}
		if inFlight > 0 {
			return nil
		}

		if err := ev.MarkProcessing(); err != nil {
			return err
		}
		if err := tx.Model(&models.OutboxEventModel{}).
			Where("id = ?", ev.ID).
			Updates(map[string]interface{}{
				"status":     ev.Status,
				"updated_at": ev.UpdatedAt,
			}).Error; err != nil {
			return err
		}
		claimed = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Update persists lifecycle changes to a claimed event
func (r *GormOutboxRepository) Update(ctx context.Context, event *outbox.Event) error {
	model := models.OutboxEventModelFromDomain(event)
	return r.db.WithContext(ctx).
		Model(&models.OutboxEventModel{}).
		Where("id = ?", event.ID).
		Select("status", "attempt_count", "last_error", "next_attempt_at",
			"duplicate_of", "resulting_document_id", "processed_at", "updated_at").
		Updates(model).Error
}

// ListByDevice returns a device's events, optionally filtered by status,
// newest first
func (r *GormOutboxRepository) ListByDevice(ctx context.Context, tenantID, deviceID uuid.UUID, status outbox.EventStatus, limit int) ([]*outbox.Event, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND device_id = ?", tenantID, deviceID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var rows []models.OutboxEventModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	events := make([]*outbox.Event, 0, len(rows))
	for i := range rows {
		events = append(events, rows[i].ToDomain())
	}
	return events, nil
}

// CountByStatusForDevice returns event counts per status for a device
func (r *GormOutboxRepository) CountByStatusForDevice(ctx context.Context, tenantID, deviceID uuid.UUID) (map[outbox.EventStatus]int64, error) {
	var rows []struct {
		Status outbox.EventStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.OutboxEventModel{}).
		Select("status, count(*) as count").
		Where("tenant_id = ? AND device_id = ?", tenantID, deviceID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[outbox.EventStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ReclaimStale requeues events stuck in processing longer than cutoff
func (r *GormOutboxRepository) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OutboxEventModel{}).
		Where("status = ? AND updated_at < ?", outbox.StatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":     outbox.StatusPending,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

var _ outbox.Repository = (*GormOutboxRepository)(nil)
