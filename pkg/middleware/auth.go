package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/acidjurassic/isla-toxica-commands/pkg/identity"
	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
	"github.com/acidjurassic/isla-toxica-commands/pkg/response"
)

const (
	UserIDKey     = log.FieldUserID
	UsernameKey   = log.FieldUsername
	IdentityKey   = "identity"
	AuthHeaderKey = "Authorization"
)

// TokenVerifier resolves a credential into an identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*identity.Identity, error)
}

// AuthMiddleware re-verifies the caller's platform credential on every request.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// RequireAuth returns a Gin middleware that validates the bearer credential.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := identity.ParseAuthorization(c.GetHeader(AuthHeaderKey))
		if token == "" {
			response.Unauthorized(c, "Missing token")
			return
		}

		ident, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			l := log.Ctx(c.Request.Context())
			if errors.Is(err, identity.ErrInvalidCredential) || errors.Is(err, identity.ErrClientMismatch) {
				l.Debug().Err(err).Msg("credential rejected")
			} else {
				l.Warn().Err(err).Msg("credential verification failed")
			}
			response.Unauthorized(c, "Invalid/expired token")
			return
		}

		c.Set(UserIDKey, ident.StableID)
		c.Set(UsernameKey, ident.DisplayName)
		c.Set(IdentityKey, ident)

		c.Next()
	}
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetUsername extracts username from Gin context.
func GetUsername(c *gin.Context) string {
	return c.GetString(UsernameKey)
}

// GetIdentity extracts the verified identity from Gin context.
func GetIdentity(c *gin.Context) *identity.Identity {
	if v, exists := c.Get(IdentityKey); exists {
		if ident, ok := v.(*identity.Identity); ok {
			return ident
		}
	}
	return nil
}
