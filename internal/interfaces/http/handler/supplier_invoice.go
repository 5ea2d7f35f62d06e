package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/trade"
	"github.com/ahtrading/backend/internal/interfaces/http/dto"
)

// SupplierInvoiceHandler serves operator actions on posted supplier invoices.
type SupplierInvoiceHandler struct {
	BaseHandler
	invoices trade.SupplierInvoiceRepository
}

// NewSupplierInvoiceHandler creates a new supplier invoice handler.
func NewSupplierInvoiceHandler(invoices trade.SupplierInvoiceRepository) *SupplierInvoiceHandler {
	return &SupplierInvoiceHandler{invoices: invoices}
}

// SupplierInvoiceResponse is the API view of a supplier invoice's hold state.
type SupplierInvoiceResponse struct {
	ID         string `json:"id"`
	InvoiceNo  string `json:"invoice_no"`
	OnHold     bool   `json:"on_hold"`
	HoldReason string `json:"hold_reason,omitempty"`
}

// ReleaseHold clears a match-variance hold after operator review. The event
// that created the invoice stays dead until requeued; its replay then books
// the withheld journal.
// POST /api/v1/admin/supplier-invoices/:id/release-hold
func (h *SupplierInvoiceHandler) ReleaseHold(c *gin.Context) {
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

	inv, err := h.invoices.FindByID(c.Request.Context(), tenantID, uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if inv == nil {
		h.NotFound(c, "Supplier invoice not found")
		return
	}

	if inv.OnHold {
		if err := h.invoices.ReleaseHold(c.Request.Context(), tenantID, inv.ID); err != nil {
			h.HandleError(c, err)
			return
		}
		inv.Release()
	}

	h.Success(c, SupplierInvoiceResponse{
		ID:         inv.ID.String(),
		InvoiceNo:  inv.InvoiceNo,
		OnHold:     inv.OnHold,
		HoldReason: inv.HoldReason,
	})
}
