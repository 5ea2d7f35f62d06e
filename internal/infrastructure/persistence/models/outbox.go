package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/outbox"
)

// OutboxEventModel is the persistence model for POS events awaiting posting.
// The wire identity (device_id, event_id) carries a unique index so replays
// from flaky device links collapse onto the stored row.
type OutboxEventModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_outbox_tenant_status,priority:1;uniqueIndex:uq_outbox_idem,priority:1"`
	DeviceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_outbox_wire,priority:1;index:idx_outbox_device"`
	EventID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_outbox_wire,priority:2"`

	EventType string `gorm:"type:varchar(64);not null;uniqueIndex:uq_outbox_idem,priority:2"`
	Payload   []byte `gorm:"type:jsonb;not null"`

	// Idempotency keys are only held unique while a row can still claim the
	// slot. Dead rows release the key and duplicate markers record it without
	// owning it, so both are excluded from the partial index.
	IdempotencyKey string `gorm:"type:varchar(255);uniqueIndex:uq_outbox_idem,priority:3,where:idempotency_key <> '' AND status <> 'dead' AND status <> 'duplicate'"`

	Status        outbox.EventStatus `gorm:"type:varchar(20);not null;default:pending;index:idx_outbox_tenant_status,priority:2"`
	AttemptCount  int                `gorm:"not null;default:0"`
	MaxAttempts   int                `gorm:"not null;default:5"`
	LastError     string             `gorm:"type:text"`
	NextAttemptAt *time.Time         `gorm:"index:idx_outbox_next_attempt"`

	DuplicateOf         *uuid.UUID `gorm:"type:uuid"`
	ResultingDocumentID *uuid.UUID `gorm:"type:uuid"`

	ProcessedAt *time.Time
	CreatedAt   time.Time `gorm:"not null;default:now()"`
	UpdatedAt   time.Time `gorm:"not null;default:now()"`
}

// TableName returns the table name for GORM
func (OutboxEventModel) TableName() string {
	return "outbox_events"
}

// ToDomain converts the persistence model to a domain Event
func (m *OutboxEventModel) ToDomain() *outbox.Event {
	return &outbox.Event{
		ID:                  m.ID,
		TenantID:            m.TenantID,
		DeviceID:            m.DeviceID,
		EventID:             m.EventID,
		EventType:           m.EventType,
		Payload:             m.Payload,
		IdempotencyKey:      m.IdempotencyKey,
		Status:              m.Status,
		AttemptCount:        m.AttemptCount,
		MaxAttempts:         m.MaxAttempts,
		LastError:           m.LastError,
		NextAttemptAt:       m.NextAttemptAt,
		DuplicateOf:         m.DuplicateOf,
		ResultingDocumentID: m.ResultingDocumentID,
		ProcessedAt:         m.ProcessedAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Event
func (m *OutboxEventModel) FromDomain(e *outbox.Event) {
	m.ID = e.ID
	m.TenantID = e.TenantID
	m.DeviceID = e.DeviceID
	m.EventID = e.EventID
	m.EventType = e.EventType
	m.Payload = e.Payload
	m.IdempotencyKey = e.IdempotencyKey
	m.Status = e.Status
	m.AttemptCount = e.AttemptCount
	m.MaxAttempts = e.MaxAttempts
	m.LastError = e.LastError
	m.NextAttemptAt = e.NextAttemptAt
	m.DuplicateOf = e.DuplicateOf
	m.ResultingDocumentID = e.ResultingDocumentID
	m.ProcessedAt = e.ProcessedAt
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// OutboxEventModelFromDomain creates a new persistence model from a domain Event
func OutboxEventModelFromDomain(e *outbox.Event) *OutboxEventModel {
	m := &OutboxEventModel{}
	m.FromDomain(e)
	return m
}
