package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahtrading/backend/internal/infrastructure/config"
)

func newTestService(expiration time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-with-enough-length!!",
		AccessTokenExpiration: expiration,
		Issuer:                "pos-posting-test",
	})
}

func TestGenerateToken(t *testing.T) {
	svc := newTestService(15 * time.Minute)

	issued, err := svc.GenerateToken(GenerateTokenInput{
		TenantID:    uuid.New(),
		OperatorID:  uuid.New(),
		Username:    "backoffice",
		Permissions: []string{PermOutboxRead, PermOutboxRequeue},
	})
	require.NoError(t, err)
	require.NotNil(t, issued)

	assert.NotEmpty(t, issued.AccessToken)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), issued.ExpiresAt, 5*time.Second)
}

func TestValidateToken(t *testing.T) {
	svc := newTestService(15 * time.Minute)
	tenantID := uuid.New()
	operatorID := uuid.New()

	issued, err := svc.GenerateToken(GenerateTokenInput{
		TenantID:    tenantID,
		OperatorID:  operatorID,
		Username:    "backoffice",
		Permissions: []string{PermOutboxRead},
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(issued.AccessToken)
	require.NoError(t, err)

	assert.Equal(t, tenantID.String(), claims.TenantID)
	assert.Equal(t, operatorID.String(), claims.OperatorID)
	assert.Equal(t, "backoffice", claims.Username)

	gotTenant, err := claims.GetTenantUUID()
	require.NoError(t, err)
	assert.Equal(t, tenantID, gotTenant)

	gotOperator, err := claims.GetOperatorUUID()
	require.NoError(t, err)
	assert.Equal(t, operatorID, gotOperator)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := newTestService(-1 * time.Minute)

	issued, err := svc.GenerateToken(GenerateTokenInput{
		TenantID:   uuid.New(),
		OperatorID: uuid.New(),
		Username:   "backoffice",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(issued.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := newTestService(15 * time.Minute)
	other := NewJWTService(config.JWTConfig{
		Secret:                "a-completely-different-secret-key!!!",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "pos-posting-test",
	})

	issued, err := svc.GenerateToken(GenerateTokenInput{
		TenantID:   uuid.New(),
		OperatorID: uuid.New(),
		Username:   "backoffice",
	})
	require.NoError(t, err)

	_, err = other.ValidateToken(issued.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := newTestService(15 * time.Minute)

	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaimsPermissions(t *testing.T) {
	claims := &OperatorClaims{
		Permissions: []string{PermOutboxRead, PermOutboxRequeue},
	}

	assert.True(t, claims.HasPermission(PermOutboxRead))
	assert.False(t, claims.HasPermission(PermDeviceManage))
	assert.True(t, claims.HasAnyPermission(PermDeviceManage, PermOutboxRequeue))
	assert.False(t, claims.HasAnyPermission(PermDeviceManage))
}
