package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ahtrading/backend/internal/domain/device"
	"github.com/ahtrading/backend/internal/infrastructure/logger"
	"github.com/ahtrading/backend/internal/interfaces/http/dto"
)

// Device auth context keys.
const (
	DeviceKey         = "device"
	DeviceIDKey       = "device_id"
	DeviceTenantIDKey = "device_tenant_id"
)

// DeviceAuth authenticates POS terminals by their bearer token. Only the
// token's hash is stored, so the lookup is by hash. Inactive devices and
// unknown tokens get a 401 without distinguishing the two.
func DeviceAuth(devices device.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Missing device token")
			return
		}

		d, err := devices.FindByTokenHash(c.Request.Context(), device.HashToken(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "Device lookup failed", GetRequestID(c)))
			return
		}
		if d == nil || !d.VerifyToken(token) {
			abortUnauthorized(c, dto.ErrCodeTokenInvalid, "Unknown or revoked device token")
			return
		}

		c.Set(DeviceKey, d)
		c.Set(DeviceIDKey, d.ID.String())
		c.Set(DeviceTenantIDKey, d.TenantID.String())

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, log = logger.WithTenantID(ctx, log, d.TenantID.String())
		ctx, _ = logger.WithDeviceID(ctx, log, d.ID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetDevice returns the authenticated device, or nil.
func GetDevice(c *gin.Context) *device.Device {
	v, ok := c.Get(DeviceKey)
	if !ok {
		return nil
	}
	d, ok := v.(*device.Device)
	if !ok {
		return nil
	}
	return d
}
