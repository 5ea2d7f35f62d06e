package device

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/shared"
)

// Device is a registered POS terminal. Devices authenticate event
// submissions with a bearer token of which only the hash is stored.
type Device struct {
	shared.BaseEntity
	TenantID   uuid.UUID
	BranchID   *uuid.UUID
	DeviceCode string
	TokenHash  string
	Active     bool
}

// NewDevice registers a terminal without a token. IssueToken must be called
// before the device can submit events.
func NewDevice(tenantID uuid.UUID, branchID *uuid.UUID, deviceCode string) *Device {
	return &Device{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		BranchID:   branchID,
		DeviceCode: deviceCode,
		Active:     true,
	}
}

// IssueToken mints a fresh bearer token, stores its hash, and returns the
// plaintext once. Earlier tokens stop working immediately.
func (d *Device) IssueToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	d.TokenHash = HashToken(token)
	d.Touch()
	return token, nil
}

// VerifyToken checks a presented token against the stored hash.
func (d *Device) VerifyToken(token string) bool {
	if d.TokenHash == "" || !d.Active {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(d.TokenHash)) == 1
}

// HashToken returns the hex SHA-256 digest stored in place of the token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Deactivate blocks further submissions from the device.
func (d *Device) Deactivate() {
	d.Active = false
	d.Touch()
}
