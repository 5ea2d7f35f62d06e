package posting

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ahtrading/backend/internal/domain/outbox"
)

// Submission is one event as submitted by a device.
type Submission struct {
	EventID        uuid.UUID       `json:"event_id" binding:"required"`
	EventType      string          `json:"event_type" binding:"required"`
	Payload        json.RawMessage `json:"payload" binding:"required"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// IdempotencyCache is a fast-path duplicate filter in front of the store.
// Misses always fall through to the store, so cache loss only costs a lookup.
type IdempotencyCache interface {
	Seen(ctx context.Context, deviceID, eventID uuid.UUID) (bool, error)
	Remember(ctx context.Context, deviceID, eventID uuid.UUID, ttl time.Duration) error
}

const idempotencyCacheTTL = 48 * time.Hour

// IngestService accepts device event submissions, resolving each one
// independently to novel, duplicate or rejected.
type IngestService struct {
	events outbox.Repository
	cache  IdempotencyCache
	logger *zap.Logger
}

// NewIngestService creates an ingest service. cache may be nil.
func NewIngestService(events outbox.Repository, cache IdempotencyCache, logger *zap.Logger) *IngestService {
	return &IngestService{events: events, cache: cache, logger: logger}
}

// Submit stores a batch of submissions. Each submission is resolved on its
// own; one bad event never rejects its siblings.
func (svc *IngestService) Submit(ctx context.Context, tenantID, deviceID uuid.UUID, subs []Submission) ([]outbox.Acceptance, error) {
	out := make([]outbox.Acceptance, 0, len(subs))
	for _, sub := range subs {
		acc, err := svc.accept(ctx, tenantID, deviceID, sub)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, nil
}

func (svc *IngestService) accept(ctx context.Context, tenantID, deviceID uuid.UUID, sub Submission) (outbox.Acceptance, error) {
	if sub.EventID == uuid.Nil {
		return outbox.Acceptance{
			Disposition: outbox.DispositionRejected,
			Reason:      "event_id is required",
		}, nil
	}
	if !outbox.SupportedEventType(sub.EventType) {
		return outbox.Acceptance{
			EventID:     sub.EventID,
			Disposition: outbox.DispositionRejected,
			Reason:      "unsupported event_type: " + sub.EventType,
		}, nil
	}
	if len(sub.Payload) == 0 {
		return outbox.Acceptance{
			EventID:     sub.EventID,
			Disposition: outbox.DispositionRejected,
			Reason:      "payload is required",
		}, nil
	}

	if svc.cache != nil {
		if seen, err := svc.cache.Seen(ctx, deviceID, sub.EventID); err == nil && seen {
			if existing, err := svc.events.FindByWireIdentity(ctx, deviceID, sub.EventID); err == nil && existing != nil {
				return duplicateAcceptance(sub.EventID, existing), nil
			}
		}
	}

	// Wire identity: the same device resending the same event.
	existing, err := svc.events.FindByWireIdentity(ctx, deviceID, sub.EventID)
	if err != nil {
		return outbox.Acceptance{}, err
	}
	if existing != nil {
		svc.remember(ctx, deviceID, sub.EventID)
		return duplicateAcceptance(sub.EventID, existing), nil
	}

	// Idempotency key: the same business action submitted under a new wire
	// identity, e.g. after a device reset.
	if sub.IdempotencyKey != "" {
		original, err := svc.events.FindByIdempotencyKey(ctx, tenantID, sub.EventType, sub.IdempotencyKey)
		if err != nil {
			return outbox.Acceptance{}, err
		}
		if original != nil {
			return svc.recordDuplicate(ctx, tenantID, deviceID, sub, original)
		}
	}

	ev := outbox.NewEvent(tenantID, deviceID, sub.EventID, sub.EventType, sub.Payload, sub.IdempotencyKey)
	inserted, err := svc.events.Insert(ctx, ev)
	if err != nil {
		return outbox.Acceptance{}, err
	}
	if !inserted {
		// Lost a race with a concurrent submission: another row now owns
		// either this wire identity or this idempotency key. Resolve against
		// whichever won instead of erroring the event.
		return svc.resolveInsertConflict(ctx, tenantID, deviceID, sub)
	}
	svc.remember(ctx, deviceID, sub.EventID)
	svc.logger.Debug("event accepted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("device_id", deviceID.String()),
		zap.String("event_id", sub.EventID.String()),
		zap.String("event_type", sub.EventType))
	return outbox.Acceptance{
		EventID:     sub.EventID,
		Disposition: outbox.DispositionNovel,
		Status:      outbox.StatusPending,
	}, nil
}

// recordDuplicate stores a marker row pointing at the original so the device
// gets a stable answer on later resends. If even the marker insert conflicts,
// a concurrent resend of the same wire identity beat us and its row answers.
func (svc *IngestService) recordDuplicate(ctx context.Context, tenantID, deviceID uuid.UUID, sub Submission, original *outbox.Event) (outbox.Acceptance, error) {
	dup := outbox.NewDuplicate(tenantID, deviceID, sub.EventID, sub.EventType, sub.Payload, sub.IdempotencyKey, original)
	inserted, err := svc.events.Insert(ctx, dup)
	if err != nil {
		return outbox.Acceptance{}, err
	}
	if !inserted {
		existing, err := svc.events.FindByWireIdentity(ctx, deviceID, sub.EventID)
		if err != nil {
			return outbox.Acceptance{}, err
		}
		if existing != nil {
			svc.remember(ctx, deviceID, sub.EventID)
			return duplicateAcceptance(sub.EventID, existing), nil
		}
	}
	svc.remember(ctx, deviceID, sub.EventID)
	origID := original.ID
	return outbox.Acceptance{
		EventID:         sub.EventID,
		Disposition:     outbox.DispositionDuplicate,
		Status:          outbox.StatusDuplicate,
		ExistingEventID: &origID,
	}, nil
}

// resolveInsertConflict re-reads the store after a lost insert race and
// answers with the surviving row's identity.
func (svc *IngestService) resolveInsertConflict(ctx context.Context, tenantID, deviceID uuid.UUID, sub Submission) (outbox.Acceptance, error) {
	existing, err := svc.events.FindByWireIdentity(ctx, deviceID, sub.EventID)
	if err != nil {
		return outbox.Acceptance{}, err
	}
	if existing != nil {
		svc.remember(ctx, deviceID, sub.EventID)
		return duplicateAcceptance(sub.EventID, existing), nil
	}
	if sub.IdempotencyKey != "" {
		original, err := svc.events.FindByIdempotencyKey(ctx, tenantID, sub.EventType, sub.IdempotencyKey)
		if err != nil {
			return outbox.Acceptance{}, err
		}
		if original != nil {
			return svc.recordDuplicate(ctx, tenantID, deviceID, sub, original)
		}
	}
	// The winning row vanished between the insert and the lookups, which only
	// happens when a dead row released the key mid-flight. The device retries.
	return outbox.Acceptance{
		EventID:     sub.EventID,
		Disposition: outbox.DispositionRejected,
		Reason:      "submission raced a concurrent write; retry",
	}, nil
}

func (svc *IngestService) remember(ctx context.Context, deviceID, eventID uuid.UUID) {
	if svc.cache == nil {
		return
	}
	if err := svc.cache.Remember(ctx, deviceID, eventID, idempotencyCacheTTL); err != nil {
		svc.logger.Warn("idempotency cache write failed", zap.Error(err))
	}
}

func duplicateAcceptance(eventID uuid.UUID, existing *outbox.Event) outbox.Acceptance {
	id := existing.ID
	return outbox.Acceptance{
		EventID:         eventID,
		Disposition:     outbox.DispositionDuplicate,
		Status:          existing.Status,
		ExistingEventID: &id,
	}
}

// Requeue puts a failed or dead event back in line for processing.
func (svc *IngestService) Requeue(ctx context.Context, tenantID, id uuid.UUID) (*outbox.Event, error) {
	ev, err := svc.events.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, nil
	}
	if err := ev.Requeue(); err != nil {
		return nil, err
	}
	if err := svc.events.Update(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// DeviceEvents lists a device's events, optionally filtered by status.
func (svc *IngestService) DeviceEvents(ctx context.Context, tenantID, deviceID uuid.UUID, status outbox.EventStatus, limit int) ([]*outbox.Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return svc.events.ListByDevice(ctx, tenantID, deviceID, status, limit)
}

// DeviceSummary returns per-status event counts for a device.
func (svc *IngestService) DeviceSummary(ctx context.Context, tenantID, deviceID uuid.UUID) (map[outbox.EventStatus]int64, error) {
	return svc.events.CountByStatusForDevice(ctx, tenantID, deviceID)
}
