package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Disposition classifies an inbound submission against the store.
type Disposition string

const (
	// DispositionNovel means the event was stored and queued for processing.
	DispositionNovel Disposition = "novel"
	// DispositionDuplicate means an earlier event already covers this
	// submission, either by wire identity or by idempotency key.
	DispositionDuplicate Disposition = "duplicate"
	// DispositionRejected means the submission failed validation and was not
	// stored.
	DispositionRejected Disposition = "rejected"
)

// Acceptance is the per-event outcome of a submission.
type Acceptance struct {
	EventID         uuid.UUID
	Disposition     Disposition
	Status          EventStatus
	ExistingEventID *uuid.UUID
	Reason          string
}

// Repository defines persistence for outbox events.
type Repository interface {
	// Save persists new events.
	Save(ctx context.Context, events ...*Event) error
	// Insert stores a single event, reporting false without error when a
	// wire-identity or idempotency-key conflict means another row already
	// owns the slot. Conflict resolution is left to the caller.
	Insert(ctx context.Context, event *Event) (bool, error)
	// FindByID retrieves an event by its internal ID within a tenant.
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Event, error)
	// FindByWireIdentity retrieves an event by its (device, event_id) wire key.
	FindByWireIdentity(ctx context.Context, deviceID, eventID uuid.UUID) (*Event, error)
	// FindByIdempotencyKey retrieves the non-dead event holding the key for a
	// tenant and event type, if any.
	FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, eventType, key string) (*Event, error)
	// ClaimNext atomically claims the oldest retry-eligible event for the
	// tenant, skipping devices that already have an event in flight. Returns
	// nil when nothing is claimable.
	ClaimNext(ctx context.Context, tenantID uuid.UUID, now time.Time) (*Event, error)
	// Claim atomically claims one specific event. force bypasses the
	// next-attempt gate for manual retries.
	Claim(ctx context.Context, tenantID, id uuid.UUID, now time.Time, force bool) (*Event, error)
	// Update persists lifecycle changes to a claimed event.
	Update(ctx context.Context, event *Event) error
	// ListByDevice returns a device's events, optionally filtered by status,
	// newest first.
	ListByDevice(ctx context.Context, tenantID, deviceID uuid.UUID, status EventStatus, limit int) ([]*Event, error)
	// CountByStatusForDevice returns event counts per status for a device.
	CountByStatusForDevice(ctx context.Context, tenantID, deviceID uuid.UUID) (map[EventStatus]int64, error)
	// ReclaimStale requeues events stuck in processing longer than cutoff,
	// covering workers that died mid-claim. Returns the number reclaimed.
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)
}
