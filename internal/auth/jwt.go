package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried by API tokens
const (
	// RoleAdmin may administer rules and provision workflows for any tenant
	RoleAdmin = "admin"
	// RoleCron may trigger scheduled runs and submit events
	RoleCron = "cron"
	// RoleTenant may only read and update its own tenant's alerts
	RoleTenant = "tenant"
)

type Claims struct {
	Role     string `json:"role"`
	TenantID string `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

// MintToken signs an HS256 token for subject with the given role. tenantID is
// required for tenant tokens and ignored otherwise.
func MintToken(subject, role, tenantID, secret string, ttl time.Duration) (string, error) {
	switch role {
	case RoleAdmin, RoleCron:
		tenantID = ""
	case RoleTenant:
		if tenantID == "" {
			return "", fmt.Errorf("tenant token requires a tenant id")
		}
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:     role,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return token.SignedString([]byte(secret))
}

func ParseClaims(tokenStr, secret string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

// CanAccessTenant reports whether the claims grant access to tenantID's data
func (c *Claims) CanAccessTenant(tenantID string) bool {
	return c.Role == RoleAdmin || (c.Role == RoleTenant && c.TenantID == tenantID)
}
