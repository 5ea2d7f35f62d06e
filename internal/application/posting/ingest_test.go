package posting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ahtrading/backend/internal/domain/outbox"
)

// fakeEventRepo is an in-memory outbox store for service tests. Guarded so
// dispatcher tests can run workers against it.
type fakeEventRepo struct {
	mu     sync.Mutex
	events map[uuid.UUID]*outbox.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[uuid.UUID]*outbox.Event{}}
}

func (r *fakeEventRepo) Save(ctx context.Context, events ...*outbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		cp := *e
		r.events[e.ID] = &cp
	}
	return nil
}

func (r *fakeEventRepo) Insert(ctx context.Context, event *outbox.Event) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.DeviceID == event.DeviceID && e.EventID == event.EventID {
			return false, nil
		}
		if event.IdempotencyKey != "" &&
			e.TenantID == event.TenantID && e.EventType == event.EventType &&
			e.IdempotencyKey == event.IdempotencyKey &&
			keyHolder(e.Status) && keyHolder(event.Status) {
			return false, nil
		}
	}
	cp := *event
	r.events[event.ID] = &cp
	return true, nil
}

// keyHolder reports whether a row in this status owns its idempotency key.
func keyHolder(s outbox.EventStatus) bool {
	return s != outbox.StatusDead && s != outbox.StatusDuplicate
}

func (r *fakeEventRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*outbox.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || e.TenantID != tenantID {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *fakeEventRepo) FindByWireIdentity(ctx context.Context, deviceID, eventID uuid.UUID) (*outbox.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.DeviceID == deviceID && e.EventID == eventID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeEventRepo) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, eventType, key string) (*outbox.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.TenantID == tenantID && e.EventType == eventType &&
			e.IdempotencyKey == key && e.Status != outbox.StatusDead {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

// ClaimNext mirrors the SQL claim: per device only the oldest non-terminal
// event is a candidate, and it must be retry-eligible right now.
func (r *fakeEventRepo) ClaimNext(ctx context.Context, tenantID uuid.UUID, now time.Time) (*outbox.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var candidate *outbox.Event
	for _, e := range r.events {
		if e.TenantID != tenantID || !nonTerminal(e.Status) {
			continue
		}
		blocked := false
		for _, p := range r.events {
			if p.DeviceID == e.DeviceID && p.ID != e.ID && nonTerminal(p.Status) && claimOrderBefore(p, e) {
				blocked = true
				break
			}
		}
		if blocked || !e.RetryEligible(now) {
			continue
		}
		if candidate == nil || claimOrderBefore(e, candidate) {
			candidate = e
		}
	}
	if candidate == nil {
		return nil, nil
	}
	if err := candidate.MarkProcessing(); err != nil {
		return nil, nil
	}
	cp := *candidate
	return &cp, nil
}

func nonTerminal(s outbox.EventStatus) bool {
	return s == outbox.StatusPending || s == outbox.StatusProcessing || s == outbox.StatusFailed
}

func claimOrderBefore(a, b *outbox.Event) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.EventID.String() < b.EventID.String()
}

func (r *fakeEventRepo) Claim(ctx context.Context, tenantID, id uuid.UUID, now time.Time, force bool) (*outbox.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || e.TenantID != tenantID {
		return nil, nil
	}
	if !force && !e.RetryEligible(now) {
		return nil, nil
	}
	for _, p := range r.events {
		if p.DeviceID == e.DeviceID && p.ID != e.ID && p.Status == outbox.StatusProcessing {
			return nil, nil
		}
	}
	if err := e.MarkProcessing(); err != nil {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *fakeEventRepo) Update(ctx context.Context, event *outbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *fakeEventRepo) ListByDevice(ctx context.Context, tenantID, deviceID uuid.UUID, status outbox.EventStatus, limit int) ([]*outbox.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*outbox.Event
	for _, e := range r.events {
		if e.TenantID != tenantID || e.DeviceID != deviceID {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeEventRepo) CountByStatusForDevice(ctx context.Context, tenantID, deviceID uuid.UUID) (map[outbox.EventStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[outbox.EventStatus]int64{}
	for _, e := range r.events {
		if e.TenantID == tenantID && e.DeviceID == deviceID {
			out[e.Status]++
		}
	}
	return out, nil
}

func (r *fakeEventRepo) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.events {
		if e.Status == outbox.StatusProcessing && e.UpdatedAt.Before(cutoff) {
			e.Status = outbox.StatusPending
			n++
		}
	}
	return n, nil
}

func TestIngestNovelEvent(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewIngestService(repo, nil, zap.NewNop())
	tenantID, deviceID := uuid.New(), uuid.New()

	accs, err := svc.Submit(context.Background(), tenantID, deviceID, []Submission{{
		EventID:   uuid.New(),
		EventType: outbox.EventSaleCompleted,
		Payload:   []byte(`{"invoice_no":"INV-1"}`),
	}})
	require.NoError(t, err)
	require.Len(t, accs, 1)
	assert.Equal(t, outbox.DispositionNovel, accs[0].Disposition)
	assert.Equal(t, outbox.StatusPending, accs[0].Status)
	assert.Len(t, repo.events, 1)
}

func TestIngestWireDuplicate(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewIngestService(repo, nil, zap.NewNop())
	tenantID, deviceID := uuid.New(), uuid.New()
	sub := Submission{
		EventID:   uuid.New(),
		EventType: outbox.EventSaleCompleted,
		Payload:   []byte(`{}`),
	}

	_, err := svc.Submit(context.Background(), tenantID, deviceID, []Submission{sub})
	require.NoError(t, err)
	accs, err := svc.Submit(context.Background(), tenantID, deviceID, []Submission{sub})
	require.NoError(t, err)

	assert.Equal(t, outbox.DispositionDuplicate, accs[0].Disposition)
	require.NotNil(t, accs[0].ExistingEventID)
	// resubmission stores nothing new
	assert.Len(t, repo.events, 1)
}

func TestIngestIdempotencyKeyDuplicate(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewIngestService(repo, nil, zap.NewNop())
	tenantID := uuid.New()

	first := Submission{
		EventID:        uuid.New(),
		EventType:      outbox.EventSaleCompleted,
		Payload:        []byte(`{}`),
		IdempotencyKey: "sale:INV-1",
	}
	_, err := svc.Submit(context.Background(), tenantID, uuid.New(), []Submission{first})
	require.NoError(t, err)

	// same business action from a replacement device
	second := first
	second.EventID = uuid.New()
	accs, err := svc.Submit(context.Background(), tenantID, uuid.New(), []Submission{second})
	require.NoError(t, err)

	assert.Equal(t, outbox.DispositionDuplicate, accs[0].Disposition)
	assert.Equal(t, outbox.StatusDuplicate, accs[0].Status)
	// the duplicate is stored as its own marker row
	assert.Len(t, repo.events, 2)
}

func TestIngestRejectsUnsupportedType(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewIngestService(repo, nil, zap.NewNop())

	accs, err := svc.Submit(context.Background(), uuid.New(), uuid.New(), []Submission{{
		EventID:   uuid.New(),
		EventType: "inventory.adjusted",
		Payload:   []byte(`{}`),
	}})
	require.NoError(t, err)
	assert.Equal(t, outbox.DispositionRejected, accs[0].Disposition)
	assert.NotEmpty(t, accs[0].Reason)
	assert.Empty(t, repo.events)
}

func TestIngestMixedBatch(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewIngestService(repo, nil, zap.NewNop())

	accs, err := svc.Submit(context.Background(), uuid.New(), uuid.New(), []Submission{
		{EventID: uuid.New(), EventType: outbox.EventCashMovement, Payload: []byte(`{}`)},
		{EventID: uuid.New(), EventType: "bogus", Payload: []byte(`{}`)},
	})
	require.NoError(t, err)
	require.Len(t, accs, 2)
	assert.Equal(t, outbox.DispositionNovel, accs[0].Disposition)
	assert.Equal(t, outbox.DispositionRejected, accs[1].Disposition)
}

func TestIngestRequeue(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewIngestService(repo, nil, zap.NewNop())
	tenantID := uuid.New()

	ev := outbox.NewEvent(tenantID, uuid.New(), uuid.New(), outbox.EventSaleCompleted, []byte(`{}`), "")
	ev.Status = outbox.StatusDead
	require.NoError(t, repo.Save(context.Background(), ev))

	got, err := svc.Requeue(context.Background(), tenantID, ev.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, outbox.StatusPending, got.Status)
}

// staleReadEventRepo misses a configured number of idempotency-key lookups,
// standing in for the window where a concurrent submission has inserted the
// key but this goroutine's pre-check ran before it landed.
type staleReadEventRepo struct {
	*fakeEventRepo
	misses int
}

func (r *staleReadEventRepo) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, eventType, key string) (*outbox.Event, error) {
	if r.misses > 0 {
		r.misses--
		return nil, nil
	}
	return r.fakeEventRepo.FindByIdempotencyKey(ctx, tenantID, eventType, key)
}

func TestIngestConcurrentSameKeyResolvesToOneOwner(t *testing.T) {
	store := newFakeEventRepo()
	repo := &staleReadEventRepo{fakeEventRepo: store, misses: 1}
	svc := NewIngestService(repo, nil, zap.NewNop())
	tenantID := uuid.New()

	original := outbox.NewEvent(tenantID, uuid.New(), uuid.New(),
		outbox.EventSaleCompleted, []byte(`{}`), "sale:INV-9")
	require.NoError(t, store.Save(context.Background(), original))

	// The key lookup comes back empty, but the insert hits the unique index.
	accs, err := svc.Submit(context.Background(), tenantID, uuid.New(), []Submission{{
		EventID:        uuid.New(),
		EventType:      outbox.EventSaleCompleted,
		Payload:        []byte(`{}`),
		IdempotencyKey: "sale:INV-9",
	}})
	require.NoError(t, err)
	require.Len(t, accs, 1)

	assert.Equal(t, outbox.DispositionDuplicate, accs[0].Disposition)
	require.NotNil(t, accs[0].ExistingEventID)
	assert.Equal(t, original.ID, *accs[0].ExistingEventID)

	// exactly one row still owns the key
	owners := 0
	for _, e := range store.events {
		if e.IdempotencyKey == "sale:INV-9" && keyHolder(e.Status) {
			owners++
		}
	}
	assert.Equal(t, 1, owners)
}

func TestIngestBatchSurvivesConflictingEvent(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewIngestService(repo, nil, zap.NewNop())
	tenantID, deviceID := uuid.New(), uuid.New()

	seeded := outbox.NewEvent(tenantID, deviceID, uuid.New(),
		outbox.EventSaleCompleted, []byte(`{}`), "sale:INV-3")
	require.NoError(t, repo.Save(context.Background(), seeded))

	// one colliding key, one clean sibling
	accs, err := svc.Submit(context.Background(), tenantID, deviceID, []Submission{
		{EventID: uuid.New(), EventType: outbox.EventSaleCompleted, Payload: []byte(`{}`), IdempotencyKey: "sale:INV-3"},
		{EventID: uuid.New(), EventType: outbox.EventCashMovement, Payload: []byte(`{}`)},
	})
	require.NoError(t, err)
	require.Len(t, accs, 2)
	assert.Equal(t, outbox.DispositionDuplicate, accs[0].Disposition)
	assert.Equal(t, outbox.DispositionNovel, accs[1].Disposition)
}
