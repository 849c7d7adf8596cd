// Package identity decodes an already-issued bearer token's claims. Token
// issuance (login, refresh, signup) is out of this engine's scope — the
// external interface treats credential validation as opaque and consumes
// {id, role, storeId} from a trusted, already-verified source.
package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Role is one of the four closed roles in the authorization policy.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleStoreAdmin Role = "store_admin"
	RoleStaff      Role = "staff"
	RoleCustomer   Role = "customer"
)

// rank orders roles for AtLeast, which middleware.RequireRole uses.
var rank = map[Role]int{
	RoleCustomer:   0,
	RoleStaff:      1,
	RoleStoreAdmin: 2,
	RoleSuperAdmin: 3,
}

// AtLeast reports whether r is the same as or outranks other.
func (r Role) AtLeast(other Role) bool {
	return rank[r] >= rank[other]
}

// Claims is the subset of the bearer token's payload the engine consumes.
type Claims struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	StoreID string `json:"storeId,omitempty"`
	jwt.RegisteredClaims
}

// Manager validates already-issued tokens against the shared signing secret.
type Manager struct {
	secret string
}

// NewManager creates a claims manager for the given HMAC secret.
func NewManager(secret string) *Manager {
	return &Manager{secret: secret}
}

// Parse validates the token's signature and expiry and returns its claims.
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ExtractBearer extracts the token from a "Bearer <token>" Authorization header.
func ExtractBearer(authHeader string) (string, error) {
	const prefix = "Bearer "
	if authHeader == "" {
		return "", ErrMissingToken
	}
	if len(authHeader) < len(prefix) || authHeader[:len(prefix)] != prefix {
		return "", ErrInvalidTokenFormat
	}
	return authHeader[len(prefix):], nil
}

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrMissingToken       = errors.New("missing token")
	ErrInvalidTokenFormat = errors.New("invalid token format")
)
