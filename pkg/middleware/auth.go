package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dealflow/dealflow-api/internal/models"
	"github.com/dealflow/dealflow-api/internal/scope"
	"github.com/dealflow/dealflow-api/pkg/respond"
)

const (
	claimsKey = "claims"
	userKey   = "user"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// AuthMiddleware verifies the Bearer token, then stores the raw claims under
// "claims" and the derived *models.User under "user".
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			respond.Fail(c, http.StatusUnauthorized, "missing Authorization header")
			return
		}
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			respond.Fail(c, http.StatusUnauthorized, "invalid Authorization header")
			return
		}

		tok, err := ver.Verify(c.Request.Context(), raw)
		if err != nil {
			respond.Fail(c, http.StatusUnauthorized, "invalid token")
			return
		}

		var claims map[string]interface{}
		if err := tok.Claims(&claims); err != nil {
			respond.Fail(c, http.StatusUnauthorized, "failed to parse claims")
			return
		}
		user, ok := models.UserFromClaims(claims)
		if !ok {
			respond.Fail(c, http.StatusUnauthorized, "token subject is not a user id")
			return
		}

		c.Set(claimsKey, claims)
		SetUser(c, user)
		c.Next()
	}
}

// SetUser stores the caller on the request context.
func SetUser(c *gin.Context, u *models.User) {
	c.Set(userKey, u)
}

// CurrentUser returns the caller set by AuthMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok && u != nil
}

// RequireElevated rejects callers whose role is not admin or manager.
func RequireElevated() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			respond.Fail(c, http.StatusUnauthorized, "authentication required")
			return
		}
		if !scope.IsElevated(u.Role) {
			respond.Fail(c, http.StatusForbidden, "admin or manager role required")
			return
		}
		c.Next()
	}
}
