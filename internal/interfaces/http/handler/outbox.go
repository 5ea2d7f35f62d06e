package handler

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/application/posting"
	"github.com/ahtrading/backend/internal/domain/outbox"
	"github.com/ahtrading/backend/internal/interfaces/http/dto"
	"github.com/ahtrading/backend/internal/interfaces/http/middleware"
)

// OutboxHandler serves event submission for devices and queue management
// for operators.
type OutboxHandler struct {
	BaseHandler
	ingest     *posting.IngestService
	dispatcher *posting.Dispatcher
	maxBatch   int
}

// NewOutboxHandler creates a new outbox handler. maxBatch caps the number of
// events per submission request.
func NewOutboxHandler(ingest *posting.IngestService, dispatcher *posting.Dispatcher, maxBatch int) *OutboxHandler {
	if maxBatch <= 0 {
		maxBatch = 100
	}
	return &OutboxHandler{ingest: ingest, dispatcher: dispatcher, maxBatch: maxBatch}
}

// SubmitRequest is a batch of events from one device.
type SubmitRequest struct {
	Events []posting.Submission `json:"events" binding:"required,min=1,dive"`
}

// AcceptanceResponse is the per-event outcome of a submission.
type AcceptanceResponse struct {
	EventID         string  `json:"event_id,omitempty"`
	Disposition     string  `json:"disposition"`
	Status          string  `json:"status,omitempty"`
	ExistingEventID *string `json:"existing_event_id,omitempty"`
	Reason          string  `json:"reason,omitempty"`
}

// EventResponse is the API view of an outbox event.
type EventResponse struct {
	ID                  string          `json:"id"`
	DeviceID            string          `json:"device_id"`
	EventID             string          `json:"event_id"`
	EventType           string          `json:"event_type"`
	Payload             json.RawMessage `json:"payload,omitempty"`
	IdempotencyKey      string          `json:"idempotency_key,omitempty"`
	Status              string          `json:"status"`
	AttemptCount        int             `json:"attempt_count"`
	MaxAttempts         int             `json:"max_attempts"`
	LastError           string          `json:"last_error,omitempty"`
	NextAttemptAt       *time.Time      `json:"next_attempt_at,omitempty"`
	DuplicateOf         *string         `json:"duplicate_of,omitempty"`
	ResultingDocumentID *string         `json:"resulting_document_id,omitempty"`
	ProcessedAt         *time.Time      `json:"processed_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

func toAcceptanceResponse(acc outbox.Acceptance) AcceptanceResponse {
	resp := AcceptanceResponse{
		Disposition: string(acc.Disposition),
		Status:      string(acc.Status),
		Reason:      acc.Reason,
	}
	if acc.EventID != uuid.Nil {
		resp.EventID = acc.EventID.String()
	}
	if acc.ExistingEventID != nil {
		s := acc.ExistingEventID.String()
		resp.ExistingEventID = &s
	}
	return resp
}

func toEventResponse(ev *outbox.Event, includePayload bool) EventResponse {
	resp := EventResponse{
		ID:             ev.ID.String(),
		DeviceID:       ev.DeviceID.String(),
		EventID:        ev.EventID.String(),
		EventType:      ev.EventType,
		IdempotencyKey: ev.IdempotencyKey,
		Status:         string(ev.Status),
		AttemptCount:   ev.AttemptCount,
		MaxAttempts:    ev.MaxAttempts,
		LastError:      ev.LastError,
		NextAttemptAt:  ev.NextAttemptAt,
		ProcessedAt:    ev.ProcessedAt,
		CreatedAt:      ev.CreatedAt,
	}
	if includePayload {
		resp.Payload = ev.Payload
	}
	if ev.DuplicateOf != nil {
		s := ev.DuplicateOf.String()
		resp.DuplicateOf = &s
	}
	if ev.ResultingDocumentID != nil {
		s := ev.ResultingDocumentID.String()
		resp.ResultingDocumentID = &s
	}
	return resp
}

// Submit accepts a batch of events from the authenticated device. Each event
// resolves on its own; the response mirrors the request order.
// POST /api/v1/pos/outbox/submit
func (h *OutboxHandler) Submit(c *gin.Context) {
	d := middleware.GetDevice(c)
	if d == nil {
		h.Unauthorized(c, "Device authentication required")
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if len(req.Events) > h.maxBatch {
		h.BadRequest(c, "Batch exceeds maximum of "+strconv.Itoa(h.maxBatch)+" events")
		return
	}

	accepted, err := h.ingest.Submit(c.Request.Context(), d.TenantID, d.ID, req.Events)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]AcceptanceResponse, 0, len(accepted))
	for _, acc := range accepted {
		out = append(out, toAcceptanceResponse(acc))
	}
	h.Success(c, gin.H{"results": out})
}

// Events lists the authenticated device's events, newest first.
// GET /api/v1/pos/outbox/events?status=failed&limit=50
func (h *OutboxHandler) Events(c *gin.Context) {
	d := middleware.GetDevice(c)
	if d == nil {
		h.Unauthorized(c, "Device authentication required")
		return
	}

	status := outbox.EventStatus(c.Query("status"))
	limit := parseLimit(c.Query("limit"), 50, 200)

	events, err := h.ingest.DeviceEvents(c.Request.Context(), d.TenantID, d.ID, status, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventResponse(ev, false))
	}
	h.Success(c, gin.H{"events": out})
}

// Summary returns the authenticated device's event counts per status.
// GET /api/v1/pos/outbox/summary
func (h *OutboxHandler) Summary(c *gin.Context) {
	d := middleware.GetDevice(c)
	if d == nil {
		h.Unauthorized(c, "Device authentication required")
		return
	}

	counts, err := h.ingest.DeviceSummary(c.Request.Context(), d.TenantID, d.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make(map[string]int64, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	h.Success(c, gin.H{"counts": out})
}

// DeviceEvents lists a device's events for an operator.
// GET /api/v1/admin/devices/:id/events?status=dead&limit=50
func (h *OutboxHandler) DeviceEvents(c *gin.Context) {
	tenantID, err := getOperatorTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	deviceID := uuid.MustParse(req.ID)

	status := outbox.EventStatus(c.Query("status"))
	limit := parseLimit(c.Query("limit"), 50, 200)

	events, err := h.ingest.DeviceEvents(c.Request.Context(), tenantID, deviceID, status, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventResponse(ev, true))
	}
	h.Success(c, gin.H{"events": out})
}

// Requeue puts a failed or dead event back in line for processing.
// POST /api/v1/admin/outbox/:id/requeue
func (h *OutboxHandler) Requeue(c *gin.Context) {
	tenantID, err := getOperatorTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	ev, err := h.ingest.Requeue(c.Request.Context(), tenantID, uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if ev == nil {
		h.NotFound(c, "Event not found")
		return
	}
	h.Success(c, toEventResponse(ev, false))
}

// Process claims and posts one event synchronously. force bypasses the
// retry backoff gate.
// POST /api/v1/admin/outbox/:id/process?force=true
func (h *OutboxHandler) Process(c *gin.Context) {
	tenantID, err := getOperatorTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	force := c.Query("force") == "true"

	ev, err := h.dispatcher.ProcessOne(c.Request.Context(), tenantID, uuid.MustParse(req.ID), force)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if ev == nil {
		h.NotFound(c, "Event not found")
		return
	}
	h.Success(c, toEventResponse(ev, false))
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
