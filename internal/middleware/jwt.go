package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/highlightreel/backend/internal/models"
	"github.com/highlightreel/backend/pkg/response"
)

const (
	// ContextIdentity is the gin context key holding the caller's Identity.
	ContextIdentity = "identity"
)

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   models.Role
}

// TokenValidator resolves a bearer token into an Identity.
type TokenValidator interface {
	Identify(token string) (Identity, error)
}

// JWT returns a middleware that requires a valid bearer token.
func JWT(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthorized(c, "missing or invalid authorization header")
			c.Abort()
			return
		}
		id, err := v.Identify(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextIdentity, id)
		c.Next()
	}
}

// OptionalJWT sets the Identity when a valid token is present and lets
// anonymous requests through. A present but invalid token is still rejected.
func OptionalJWT(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		token, ok := bearerToken(header)
		if !ok {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		id, err := v.Identify(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextIdentity, id)
		c.Next()
	}
}

// CurrentIdentity returns the caller set by JWT or OptionalJWT.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Viewer returns the caller as a pointer, nil for anonymous requests.
func Viewer(c *gin.Context) *Identity {
	id, ok := CurrentIdentity(c)
	if !ok {
		return nil
	}
	return &id
}
