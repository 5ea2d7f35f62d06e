package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/trade"
)

// fakeSupplierInvoiceRepo is an in-memory supplier invoice store for
// handler tests.
type fakeSupplierInvoiceRepo struct {
	invoices map[uuid.UUID]*trade.SupplierInvoice
}

func newFakeSupplierInvoiceRepo() *fakeSupplierInvoiceRepo {
	return &fakeSupplierInvoiceRepo{invoices: map[uuid.UUID]*trade.SupplierInvoice{}}
}

func (r *fakeSupplierInvoiceRepo) Save(ctx context.Context, inv *trade.SupplierInvoice) error {
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *fakeSupplierInvoiceRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.SupplierInvoice, error) {
	inv, ok := r.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeSupplierInvoiceRepo) FindBySourceEvent(ctx context.Context, tenantID, eventID uuid.UUID) (*trade.SupplierInvoice, error) {
	for _, inv := range r.invoices {
		if inv.TenantID == tenantID && inv.SourceEventID == eventID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSupplierInvoiceRepo) ReleaseHold(ctx context.Context, tenantID, id uuid.UUID) error {
	if inv, ok := r.invoices[id]; ok && inv.TenantID == tenantID {
		inv.Release()
	}
	return nil
}

func newSupplierInvoiceRouter(repo *fakeSupplierInvoiceRepo, tenantID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSupplierInvoiceHandler(repo)

	r := gin.New()
	admin := r.Group("/admin/supplier-invoices", withTestOperator(tenantID))
	admin.POST("/:id/release-hold", h.ReleaseHold)
	return r
}

func TestReleaseHoldClearsHold(t *testing.T) {
	tenantID := uuid.New()
	repo := newFakeSupplierInvoiceRepo()

	inv := &trade.SupplierInvoice{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		InvoiceNo:  "PINV-7001",
		Status:     trade.DocumentStatusPosted,
		DeviceID:   uuid.New(),
		OnHold:     true,
		HoldReason: "variance exceeds tolerance",
	}
	require.NoError(t, repo.Save(context.Background(), inv))

	router := newSupplierInvoiceRouter(repo, tenantID)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/supplier-invoices/"+inv.ID.String()+"/release-hold", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data SupplierInvoiceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.OnHold)
	assert.Empty(t, resp.Data.HoldReason)

	stored, err := repo.FindByID(context.Background(), tenantID, inv.ID)
	require.NoError(t, err)
	assert.False(t, stored.OnHold)
}

func TestReleaseHoldIsIdempotent(t *testing.T) {
	tenantID := uuid.New()
	repo := newFakeSupplierInvoiceRepo()

	inv := &trade.SupplierInvoice{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		InvoiceNo:  "PINV-7002",
		Status:     trade.DocumentStatusPosted,
		DeviceID:   uuid.New(),
	}
	require.NoError(t, repo.Save(context.Background(), inv))

	router := newSupplierInvoiceRouter(repo, tenantID)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/supplier-invoices/"+inv.ID.String()+"/release-hold", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestReleaseHoldUnknownInvoice(t *testing.T) {
	tenantID := uuid.New()
	router := newSupplierInvoiceRouter(newFakeSupplierInvoiceRepo(), tenantID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/supplier-invoices/"+uuid.NewString()+"/release-hold", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReleaseHoldCrossTenant(t *testing.T) {
	repo := newFakeSupplierInvoiceRepo()
	inv := &trade.SupplierInvoice{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   uuid.New(),
		InvoiceNo:  "PINV-7003",
		Status:     trade.DocumentStatusPosted,
		DeviceID:   uuid.New(),
		OnHold:     true,
	}
	require.NoError(t, repo.Save(context.Background(), inv))

	// a different tenant cannot see the invoice
	router := newSupplierInvoiceRouter(repo, uuid.New())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/supplier-invoices/"+inv.ID.String()+"/release-hold", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
