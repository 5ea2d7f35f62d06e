package outbox

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/shared"
)

// EventStatus represents the processing status of an outbox event
type EventStatus string

const (
	StatusPending    EventStatus = "pending"
	StatusProcessing EventStatus = "processing"
	StatusPosted     EventStatus = "posted"
	StatusFailed     EventStatus = "failed"
	StatusDead       EventStatus = "dead"
	StatusDuplicate  EventStatus = "duplicate"
)

// Event types accepted from POS devices
const (
	EventSaleCompleted    = "sale.completed"
	EventSaleReturned     = "sale.returned"
	EventPurchaseReceived = "purchase.received"
	EventPurchaseInvoice  = "purchase.invoice"
	EventCashMovement     = "pos.cash_movement"
)

// SupportedEventType reports whether the event type has a registered processor.
func SupportedEventType(t string) bool {
	switch t {
	case EventSaleCompleted, EventSaleReturned, EventPurchaseReceived, EventPurchaseInvoice, EventCashMovement:
		return true
	}
	return false
}

// DefaultMaxAttempts is the retry ceiling after which an event goes dead.
const DefaultMaxAttempts = 5

// Event is a durably stored POS event awaiting posting. Identity on the wire
// is (DeviceID, EventID); EventID is client-generated, unique per device.
type Event struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	DeviceID uuid.UUID
	EventID  uuid.UUID

	EventType string
	Payload   []byte

	// IdempotencyKey is an optional client-supplied business-level dedup key.
	// Unique per (tenant, event type) when non-empty.
	IdempotencyKey string

	Status        EventStatus
	AttemptCount  int
	MaxAttempts   int
	LastError     string
	NextAttemptAt *time.Time

	// DuplicateOf references the original event when Status is duplicate.
	DuplicateOf *uuid.UUID
	// ResultingDocumentID is set when posting commits a document.
	ResultingDocumentID *uuid.UUID

	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewEvent creates a pending outbox event from a device submission.
func NewEvent(tenantID, deviceID, eventID uuid.UUID, eventType string, payload []byte, idempotencyKey string) *Event {
	now := time.Now()
	return &Event{
		ID:             uuid.New(),
		TenantID:       tenantID,
		DeviceID:       deviceID,
		EventID:        eventID,
		EventType:      eventType,
		Payload:        payload,
		IdempotencyKey: idempotencyKey,
		Status:         StatusPending,
		MaxAttempts:    DefaultMaxAttempts,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewDuplicate creates an event recorded purely as a pointer at an earlier
// submission that carried the same idempotency key.
func NewDuplicate(tenantID, deviceID, eventID uuid.UUID, eventType string, payload []byte, idempotencyKey string, original *Event) *Event {
	e := NewEvent(tenantID, deviceID, eventID, eventType, payload, idempotencyKey)
	e.Status = StatusDuplicate
	orig := original.ID
	e.DuplicateOf = &orig
	e.ResultingDocumentID = original.ResultingDocumentID
	return e
}

// RetryEligible reports whether a failed event may be claimed again at the
// given instant.
func (e *Event) RetryEligible(now time.Time) bool {
	if e.Status == StatusPending {
		return true
	}
	if e.Status != StatusFailed || e.AttemptCount >= e.MaxAttempts {
		return false
	}
	return e.NextAttemptAt == nil || !e.NextAttemptAt.After(now)
}

// MarkProcessing claims the event for a worker.
func (e *Event) MarkProcessing() error {
	if e.Status != StatusPending && e.Status != StatusFailed {
		return errors.New("can only claim pending or failed events")
	}
	e.Status = StatusProcessing
	e.Touch()
	return nil
}

// MarkPosted records a successful posting and the document it produced.
func (e *Event) MarkPosted(documentID *uuid.UUID) {
	now := time.Now()
	e.Status = StatusPosted
	e.ResultingDocumentID = documentID
	e.ProcessedAt = &now
	e.LastError = ""
	e.NextAttemptAt = nil
	e.UpdatedAt = now
}

// MarkFailed records a processing failure. Permanent failures (validation,
// business-rule conflicts) jump the attempt count to the ceiling because an
// unchanged payload would fail identically on retry; only transient failures
// schedule a next attempt.
func (e *Event) MarkFailed(cause error) {
	if shared.IsPermanent(cause) {
		e.AttemptCount = e.MaxAttempts
	} else {
		e.AttemptCount++
	}
	e.LastError = cause.Error()

	if e.AttemptCount >= e.MaxAttempts {
		e.Status = StatusDead
		e.NextAttemptAt = nil
	} else {
		e.Status = StatusFailed
		next := NextAttemptAt(time.Now(), e.AttemptCount, e.ID)
		e.NextAttemptAt = &next
	}
	e.Touch()
}

// Requeue resets a failed or dead event to pending after a root-cause fix.
func (e *Event) Requeue() error {
	if e.Status != StatusFailed && e.Status != StatusDead {
		return errors.New("can only requeue failed or dead events")
	}
	e.Status = StatusPending
	e.AttemptCount = 0
	e.LastError = ""
	e.NextAttemptAt = nil
	e.Touch()
	return nil
}

// IsTerminal reports whether the event will never be processed again without
// operator intervention.
func (e *Event) IsTerminal() bool {
	return e.Status == StatusPosted || e.Status == StatusDead || e.Status == StatusDuplicate
}

func (e *Event) Touch() {
	e.UpdatedAt = time.Now()
}
