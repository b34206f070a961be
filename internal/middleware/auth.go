package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carrental/internal/domain"
	"carrental/internal/service"
)

const principalKey = "principal"

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

type errorBody struct {
	Error string `json:"error"`
}

// Authenticate returns middleware that requires a valid bearer token and
// stores the resolved principal in the context.
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "Not authorized, no token"})
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "Not authorized, token failed"})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: "Server error"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireAdmin returns middleware that allows only admin principals. It must
// run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		if principal == nil || !principal.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Error: "Not authorized as admin"})
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal, or nil.
func PrincipalFrom(c *gin.Context) *domain.User {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	principal, _ := v.(*domain.User)
	return principal
}
