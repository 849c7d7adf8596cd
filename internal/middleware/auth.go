package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/reservation-engine/pkg/identity"
)

const (
	ContextKeyUserID  = "user_id"
	ContextKeyRole    = "user_role"
	ContextKeyStoreID = "user_store_id"
)

// RequireAuth parses and validates the bearer token, populating the gin
// context with the caller's identity, or responds 401 per spec.md §7's
// error taxonomy.
func RequireAuth(manager *identity.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := identity.ExtractBearer(c.GetHeader("Authorization"))
		if err != nil {
			RespondError(c, http.StatusUnauthorized, CodeAuthn, "authorization token required")
			return
		}

		claims, err := manager.Parse(token)
		if err != nil {
			RespondError(c, http.StatusUnauthorized, CodeAuthn, "invalid or expired token")
			return
		}

		c.Set(ContextKeyUserID, claims.ID)
		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyStoreID, claims.StoreID)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated caller's role
// meets the minimum required role in the hierarchy
// super_admin > store_admin > staff > customer.
func RequireRole(minimum identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, exists := c.Get(ContextKeyRole)
		if !exists {
			RespondError(c, http.StatusForbidden, CodeAuthz, "missing caller identity")
			return
		}
		role, ok := raw.(identity.Role)
		if !ok {
			RespondError(c, http.StatusForbidden, CodeAuthz, "missing caller identity")
			return
		}
		if !role.AtLeast(minimum) {
			RespondError(c, http.StatusForbidden, CodeAuthz, "insufficient permissions")
			return
		}
		c.Next()
	}
}
