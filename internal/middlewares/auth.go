package middlewares

import (
	"context"
	"dsatracker/internal/apperrors"
	"dsatracker/internal/logger"
	"dsatracker/internal/models"
	"dsatracker/internal/services"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	AccessTokenCookie = "access_token"

	identityContextKey = "identity"
	usernameContextKey = "username"
	emailContextKey    = "email"
)

// AuthMiddleware creates a middleware that enforces authentication.
// The access token is read from the cookie or an "Authorization: Bearer"
// header, and the caller's Identity is stored in the context.
func AuthMiddleware(tokenService *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := AccessToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		claims, err := tokenService.ValidateToken(tokenString, services.TokenTypeAccess)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Set(identityContextKey, claims.Identity())
		c.Set(usernameContextKey, claims.Username)
		c.Set(emailContextKey, claims.Email)
		c.Next()
	}
}

// UserLookup loads the current state of an account.
type UserLookup interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

// AdminOnly must run after AuthMiddleware. The check uses the stored account,
// not the role claimed in the token.
func AdminOnly(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), id.UserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			} else {
				logger.Log.Error("Failed to load user for admin check", zap.String("user_id", id.UserID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			c.Abort()
			return
		}

		if user.Role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Set(identityContextKey, models.Identity{UserID: user.ID, Role: user.Role})
		c.Next()
	}
}

// IdentityFrom returns the identity set by AuthMiddleware.
func IdentityFrom(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityContextKey)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok
}

// AccessToken returns the access token from the cookie or a bearer header.
func AccessToken(c *gin.Context) string {
	if token, err := c.Cookie(AccessTokenCookie); err == nil && strings.TrimSpace(token) != "" {
		return token
	}

	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
