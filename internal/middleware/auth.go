package middleware

import (
	"context"
	"strings"

	"github.com/SergeiKhy/geolink/internal/apperrors"
	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/gin-gonic/gin"
)

const (
	userIDKey = "user_id"
	userKey   = "user"
)

var errMissingToken = apperrors.Unauthorized("missing bearer token")

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the caller in the context.
func RequireAuth(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			_ = c.Error(errMissingToken)
			c.Abort()
			return
		}

		user, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(userIDKey, user.ID)
		c.Set(userKey, user)
		c.Next()
	}
}

// UserIDFromContext returns the id stored by RequireAuth.
func UserIDFromContext(c *gin.Context) (int64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// UserFromContext returns the user stored by RequireAuth.
func UserFromContext(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
