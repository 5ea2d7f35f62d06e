package posting

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ahtrading/backend/internal/domain/outbox"
	"github.com/ahtrading/backend/internal/domain/shared"
)

// TenantSource enumerates the tenants whose queues the dispatcher drains.
type TenantSource interface {
	ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// DispatcherConfig tunes the background workers.
type DispatcherConfig struct {
	Workers       int
	PollInterval  time.Duration
	SweepInterval time.Duration
	// StaleAfter is how long an event may sit in processing before the
	// sweeper assumes its worker died and requeues it.
	StaleAfter time.Duration
}

// DefaultDispatcherConfig returns the production defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:       4,
		PollInterval:  2 * time.Second,
		SweepInterval: time.Minute,
		StaleAfter:    5 * time.Minute,
	}
}

// Dispatcher drains pending and retry-due events. Claiming skips devices
// with an event already in flight, so each device's events post in order
// while different devices proceed in parallel.
type Dispatcher struct {
	events  outbox.Repository
	poster  *Poster
	tenants TenantSource
	cfg     DispatcherConfig
	logger  *zap.Logger

	work chan uuid.UUID
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(events outbox.Repository, poster *Poster, tenants TenantSource, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 5 * time.Minute
	}
	return &Dispatcher{
		events:  events,
		poster:  poster,
		tenants: tenants,
		cfg:     cfg,
		logger:  logger,
		work:    make(chan uuid.UUID),
	}
}

// Run blocks until ctx is canceled, polling tenant queues and sweeping stale
// claims.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.worker(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.sweeper(ctx)
	}()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			close(d.work)
			wg.Wait()
			return
		case <-ticker.C:
			d.enqueueTenants(ctx)
		}
	}
}

func (d *Dispatcher) enqueueTenants(ctx context.Context) {
	ids, err := d.tenants.ActiveTenantIDs(ctx)
	if err != nil {
		d.logger.Error("listing active tenants failed", zap.Error(err))
		return
	}
	for _, id := range ids {
		select {
		case d.work <- id:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	for tenantID := range d.work {
		d.drainTenant(ctx, tenantID)
	}
}

// drainTenant claims and processes until the tenant has nothing claimable.
func (d *Dispatcher) drainTenant(ctx context.Context, tenantID uuid.UUID) {
	for {
		if ctx.Err() != nil {
			return
		}
		ev, err := d.events.ClaimNext(ctx, tenantID, time.Now().UTC())
		if err != nil {
			d.logger.Error("claim failed",
				zap.String("tenant_id", tenantID.String()), zap.Error(err))
			return
		}
		if ev == nil {
			return
		}
		d.process(ctx, ev)
	}
}

func (d *Dispatcher) sweeper(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-d.cfg.StaleAfter)
			n, err := d.events.ReclaimStale(ctx, cutoff)
			if err != nil {
				d.logger.Error("reclaiming stale events failed", zap.Error(err))
				continue
			}
			if n > 0 {
				d.logger.Warn("requeued stale processing events", zap.Int64("count", n))
			}
		}
	}
}

// ProcessOne claims and processes a specific event, used by the synchronous
// process endpoint and by operators retrying a dead event. force bypasses
// the backoff gate.
func (d *Dispatcher) ProcessOne(ctx context.Context, tenantID, id uuid.UUID, force bool) (*outbox.Event, error) {
	ev, err := d.events.Claim(ctx, tenantID, id, time.Now().UTC(), force)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		// Not claimable: already terminal, in flight, or not yet due.
		stored, err := d.events.FindByID(ctx, tenantID, id)
		if err != nil || stored == nil {
			return stored, err
		}
		if stored.Status == outbox.StatusDuplicate {
			if err := d.resolveDuplicate(ctx, stored); err != nil {
				return nil, err
			}
		}
		return stored, nil
	}
	d.process(ctx, ev)
	return ev, nil
}

// resolveDuplicate refreshes a duplicate marker's document pointer from its
// original. A duplicate recorded while the original was still pending carries
// no document id until the original posts.
func (d *Dispatcher) resolveDuplicate(ctx context.Context, ev *outbox.Event) error {
	if ev.DuplicateOf == nil || ev.ResultingDocumentID != nil {
		return nil
	}
	original, err := d.events.FindByID(ctx, ev.TenantID, *ev.DuplicateOf)
	if err != nil {
		return err
	}
	if original == nil || original.ResultingDocumentID == nil {
		return nil
	}
	ev.ResultingDocumentID = original.ResultingDocumentID
	ev.Touch()
	return d.events.Update(ctx, ev)
}

func (d *Dispatcher) process(ctx context.Context, ev *outbox.Event) {
	docID, err := d.poster.Post(ctx, ev)
	if err != nil {
		ev.MarkFailed(err)
		d.logger.Warn("event failed",
			zap.String("event_id", ev.ID.String()),
			zap.String("event_type", ev.EventType),
			zap.String("status", string(ev.Status)),
			zap.Int("attempt", ev.AttemptCount),
			zap.String("class", string(shared.Class(err))),
			zap.Error(err))
	} else {
		ev.MarkPosted(&docID)
		d.logger.Info("event posted",
			zap.String("event_id", ev.ID.String()),
			zap.String("event_type", ev.EventType),
			zap.String("document_id", docID.String()))
	}
	if err := d.events.Update(ctx, ev); err != nil {
		d.logger.Error("persisting event outcome failed",
			zap.String("event_id", ev.ID.String()), zap.Error(err))
	}
}
