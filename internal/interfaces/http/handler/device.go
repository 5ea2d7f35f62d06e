package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/device"
	"github.com/ahtrading/backend/internal/interfaces/http/dto"
)

// DeviceHandler serves POS terminal registration for operators.
type DeviceHandler struct {
	BaseHandler
	devices device.Repository
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(devices device.Repository) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

// RegisterDeviceRequest registers a new terminal.
type RegisterDeviceRequest struct {
	DeviceCode string `json:"device_code" binding:"required,min=1,max=64"`
	BranchID   string `json:"branch_id" binding:"omitempty,uuid"`
}

// DeviceResponse is the API view of a device. Token is present only in the
// response that minted it.
type DeviceResponse struct {
	ID         string    `json:"id"`
	DeviceCode string    `json:"device_code"`
	BranchID   *string   `json:"branch_id,omitempty"`
	Active     bool      `json:"active"`
	Token      string    `json:"token,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toDeviceResponse(d *device.Device, token string) DeviceResponse {
	resp := DeviceResponse{
		ID:         d.ID.String(),
		DeviceCode: d.DeviceCode,
		Active:     d.Active,
		Token:      token,
		CreatedAt:  d.CreatedAt,
	}
	if d.BranchID != nil {
		s := d.BranchID.String()
		resp.BranchID = &s
	}
	return resp
}

// Register creates a device and returns its token exactly once.
// POST /api/v1/admin/devices
func (h *DeviceHandler) Register(c *gin.Context) {
	tenantID, err := getOperatorTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	existing, err := h.devices.FindByCode(c.Request.Context(), tenantID, req.DeviceCode)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if existing != nil {
		h.Conflict(c, "Device code already registered")
		return
	}

	var branchID *uuid.UUID
	if req.BranchID != "" {
		id := uuid.MustParse(req.BranchID)
		branchID = &id
	}

	d := device.NewDevice(tenantID, branchID, req.DeviceCode)
	token, err := d.IssueToken()
	if err != nil {
		h.InternalError(c, "Token generation failed")
		return
	}
	if err := h.devices.Save(c.Request.Context(), d); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toDeviceResponse(d, token))
}

// ResetToken mints a fresh token, revoking the previous one.
// POST /api/v1/admin/devices/:id/reset-token
func (h *DeviceHandler) ResetToken(c *gin.Context) {
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

	d, err := h.devices.FindByID(c.Request.Context(), tenantID, uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if d == nil {
		h.NotFound(c, "Device not found")
		return
	}

	token, err := d.IssueToken()
	if err != nil {
		h.InternalError(c, "Token generation failed")
		return
	}
	if err := h.devices.Save(c.Request.Context(), d); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDeviceResponse(d, token))
}

// Deactivate blocks further submissions from the device.
// POST /api/v1/admin/devices/:id/deactivate
func (h *DeviceHandler) Deactivate(c *gin.Context) {
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

	d, err := h.devices.FindByID(c.Request.Context(), tenantID, uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if d == nil {
		h.NotFound(c, "Device not found")
		return
	}

	d.Deactivate()
	if err := h.devices.Save(c.Request.Context(), d); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDeviceResponse(d, ""))
}
