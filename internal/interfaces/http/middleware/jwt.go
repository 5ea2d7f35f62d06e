package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ahtrading/backend/internal/infrastructure/auth"
	"github.com/ahtrading/backend/internal/infrastructure/logger"
	"github.com/ahtrading/backend/internal/interfaces/http/dto"
)

// Operator auth context keys.
const (
	OperatorClaimsKey   = "operator_claims"
	OperatorIDKey       = "operator_id"
	OperatorTenantIDKey = "operator_tenant_id"

	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// OperatorAuth validates operator bearer tokens and installs the claims in
// the request context. The tenant from the claims scopes every downstream
// query.
func OperatorAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Missing authorization token")
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			code := dto.ErrCodeTokenInvalid
			if errors.Is(err, auth.ErrExpiredToken) {
				code = dto.ErrCodeTokenExpired
			}
			abortUnauthorized(c, code, "Invalid or expired token")
			return
		}

		c.Set(OperatorClaimsKey, claims)
		c.Set(OperatorIDKey, claims.OperatorID)
		c.Set(OperatorTenantIDKey, claims.TenantID)

		ctx, _ := logger.WithTenantID(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.TenantID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequirePermission rejects operators whose token lacks the permission.
// Must run after OperatorAuth.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetOperatorClaims(c)
		if claims == nil {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if !claims.HasPermission(permission) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Insufficient permissions", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

// GetOperatorClaims returns the validated operator claims, or nil.
func GetOperatorClaims(c *gin.Context) *auth.OperatorClaims {
	v, ok := c.Get(OperatorClaimsKey)
	if !ok {
		return nil
	}
	claims, ok := v.(*auth.OperatorClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetOperatorTenantID returns the tenant ID string from operator claims.
func GetOperatorTenantID(c *gin.Context) string {
	return c.GetString(OperatorTenantIDKey)
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader(AuthHeaderKey)
	if header == "" || !strings.HasPrefix(header, BearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(header, BearerPrefix)
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}
