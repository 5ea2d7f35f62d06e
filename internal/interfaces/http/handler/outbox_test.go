package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ahtrading/backend/internal/application/posting"
	"github.com/ahtrading/backend/internal/domain/device"
	"github.com/ahtrading/backend/internal/domain/outbox"
	"github.com/ahtrading/backend/internal/interfaces/http/middleware"
)

// fakeEventRepo is a minimal in-memory outbox store for handler tests.
type fakeEventRepo struct {
	events map[uuid.UUID]*outbox.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[uuid.UUID]*outbox.Event{}}
}

func (r *fakeEventRepo) Save(ctx context.Context, events ...*outbox.Event) error {
	for _, e := range events {
		cp := *e
		r.events[e.ID] = &cp
	}
	return nil
}

func (r *fakeEventRepo) Insert(ctx context.Context, event *outbox.Event) (bool, error) {
	for _, e := range r.events {
		if e.DeviceID == event.DeviceID && e.EventID == event.EventID {
			return false, nil
		}
	}
	cp := *event
	r.events[event.ID] = &cp
	return true, nil
}

func (r *fakeEventRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*outbox.Event, error) {
	e, ok := r.events[id]
	if !ok || e.TenantID != tenantID {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *fakeEventRepo) FindByWireIdentity(ctx context.Context, deviceID, eventID uuid.UUID) (*outbox.Event, error) {
	for _, e := range r.events {
		if e.DeviceID == deviceID && e.EventID == eventID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeEventRepo) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, eventType, key string) (*outbox.Event, error) {
	for _, e := range r.events {
		if e.TenantID == tenantID && e.EventType == eventType &&
			e.IdempotencyKey == key && e.Status != outbox.StatusDead {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeEventRepo) ClaimNext(ctx context.Context, tenantID uuid.UUID, now time.Time) (*outbox.Event, error) {
	return nil, nil
}

func (r *fakeEventRepo) Claim(ctx context.Context, tenantID, id uuid.UUID, now time.Time, force bool) (*outbox.Event, error) {
	return nil, nil
}

func (r *fakeEventRepo) Update(ctx context.Context, event *outbox.Event) error {
	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *fakeEventRepo) ListByDevice(ctx context.Context, tenantID, deviceID uuid.UUID, status outbox.EventStatus, limit int) ([]*outbox.Event, error) {
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
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeEventRepo) CountByStatusForDevice(ctx context.Context, tenantID, deviceID uuid.UUID) (map[outbox.EventStatus]int64, error) {
	counts := map[outbox.EventStatus]int64{}
	for _, e := range r.events {
		if e.TenantID == tenantID && e.DeviceID == deviceID {
			counts[e.Status]++
		}
	}
	return counts, nil
}

func (r *fakeEventRepo) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func withTestDevice(d *device.Device) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.DeviceKey, d)
		c.Next()
	}
}

func newSubmitRouter(t *testing.T, repo *fakeEventRepo, d *device.Device) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ingest := posting.NewIngestService(repo, nil, zap.NewNop())
	h := NewOutboxHandler(ingest, nil, 100)

	r := gin.New()
	pos := r.Group("/pos/outbox", withTestDevice(d))
	pos.POST("/submit", h.Submit)
	pos.GET("/events", h.Events)
	pos.GET("/summary", h.Summary)
	return r
}

func testDevice() *device.Device {
	return device.NewDevice(uuid.New(), nil, "REG-01")
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmit_NovelEvent(t *testing.T) {
	repo := newFakeEventRepo()
	d := testDevice()
	r := newSubmitRouter(t, repo, d)

	eventID := uuid.New()
	w := postJSON(r, "/pos/outbox/submit", gin.H{
		"events": []gin.H{{
			"event_id":   eventID,
			"event_type": "sale.completed",
			"payload":    gin.H{"invoice_no_hint": "A-1"},
		}},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Results []AcceptanceResponse `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data.Results, 1)
	assert.Equal(t, "novel", resp.Data.Results[0].Disposition)
	assert.Equal(t, "pending", resp.Data.Results[0].Status)
	assert.Len(t, repo.events, 1)
}

func TestSubmit_DuplicateResend(t *testing.T) {
	repo := newFakeEventRepo()
	d := testDevice()
	r := newSubmitRouter(t, repo, d)

	eventID := uuid.New()
	body := gin.H{
		"events": []gin.H{{
			"event_id":   eventID,
			"event_type": "sale.completed",
			"payload":    gin.H{"invoice_no_hint": "A-1"},
		}},
	}

	w := postJSON(r, "/pos/outbox/submit", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(r, "/pos/outbox/submit", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Results []AcceptanceResponse `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Results, 1)
	assert.Equal(t, "duplicate", resp.Data.Results[0].Disposition)
	require.NotNil(t, resp.Data.Results[0].ExistingEventID)
	assert.Len(t, repo.events, 1)
}

func TestSubmit_RejectedEvent(t *testing.T) {
	repo := newFakeEventRepo()
	d := testDevice()
	r := newSubmitRouter(t, repo, d)

	w := postJSON(r, "/pos/outbox/submit", gin.H{
		"events": []gin.H{{
			"event_id":   uuid.New(),
			"event_type": "pos.unknown.event",
			"payload":    gin.H{},
		}},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Results []AcceptanceResponse `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Results, 1)
	assert.Equal(t, "rejected", resp.Data.Results[0].Disposition)
	assert.Contains(t, resp.Data.Results[0].Reason, "unsupported event_type")
	assert.Empty(t, repo.events)
}

func TestSubmit_BatchTooLarge(t *testing.T) {
	repo := newFakeEventRepo()
	d := testDevice()
	gin.SetMode(gin.TestMode)
	ingest := posting.NewIngestService(repo, nil, zap.NewNop())
	h := NewOutboxHandler(ingest, nil, 2)

	r := gin.New()
	r.POST("/submit", withTestDevice(d), h.Submit)

	events := make([]gin.H, 3)
	for i := range events {
		events[i] = gin.H{
			"event_id":   uuid.New(),
			"event_type": "sale.completed",
			"payload":    gin.H{},
		}
	}
	w := postJSON(r, "/submit", gin.H{"events": events})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.events)
}

func TestSubmit_MissingDeviceContext(t *testing.T) {
	repo := newFakeEventRepo()
	gin.SetMode(gin.TestMode)
	ingest := posting.NewIngestService(repo, nil, zap.NewNop())
	h := NewOutboxHandler(ingest, nil, 100)

	r := gin.New()
	r.POST("/submit", h.Submit)

	w := postJSON(r, "/submit", gin.H{"events": []gin.H{}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSummary_CountsByStatus(t *testing.T) {
	repo := newFakeEventRepo()
	d := testDevice()
	r := newSubmitRouter(t, repo, d)

	for i := 0; i < 3; i++ {
		w := postJSON(r, "/pos/outbox/submit", gin.H{
			"events": []gin.H{{
				"event_id":   uuid.New(),
				"event_type": "sale.completed",
				"payload":    gin.H{},
			}},
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/pos/outbox/summary", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Counts map[string]int64 `json:"counts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Data.Counts["pending"])
}

func TestEvents_FilterByStatus(t *testing.T) {
	repo := newFakeEventRepo()
	d := testDevice()
	r := newSubmitRouter(t, repo, d)

	w := postJSON(r, "/pos/outbox/submit", gin.H{
		"events": []gin.H{{
			"event_id":   uuid.New(),
			"event_type": "sale.completed",
			"payload":    gin.H{},
		}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/pos/outbox/events?status=pending", nil)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code)

	var resp struct {
		Data struct {
			Events []EventResponse `json:"events"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Events, 1)
	assert.Equal(t, "pending", resp.Data.Events[0].Status)

	req = httptest.NewRequest(http.MethodGet, "/pos/outbox/events?status=dead", nil)
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, req)
	require.Equal(t, http.StatusOK, w3.Code)
	require.NoError(t, json.Unmarshal(w3.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data.Events)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 50, parseLimit("", 50, 200))
	assert.Equal(t, 50, parseLimit("abc", 50, 200))
	assert.Equal(t, 50, parseLimit("-2", 50, 200))
	assert.Equal(t, 25, parseLimit("25", 50, 200))
	assert.Equal(t, 200, parseLimit("999", 50, 200))
}
