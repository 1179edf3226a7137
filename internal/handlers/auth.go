package handlers

import (
	"dsatracker/internal/apperrors"
	"dsatracker/internal/logger"
	"dsatracker/internal/middlewares"
	"dsatracker/internal/models"
	"dsatracker/internal/repositories"
	"dsatracker/internal/services"
	"dsatracker/internal/utils"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const refreshTokenCookie = "refresh_token"

type AuthHandler struct {
	userRepo     repositories.UserRepository
	sessionRepo  repositories.SessionRepository
	tokenService *services.TokenService
	cookieSecure bool
}

func NewAuthHandler(userRepo repositories.UserRepository, sessionRepo repositories.SessionRepository, tokenService *services.TokenService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		tokenService: tokenService,
		cookieSecure: cookieSecure,
	}
}

// Register always creates a regular user account and signs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}

	if err := req.Validate(); err != nil {
		writeError(c, "register user", err)
		return
	}

	user, err := h.userRepo.CreateUser(c.Request.Context(), &req, models.RoleUser)
	if err != nil {
		writeError(c, "register user", err)
		return
	}

	logger.Log.Info("User registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	h.startSession(c, http.StatusCreated, "Account created successfully", user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}

	if err := req.Validate(); err != nil {
		writeError(c, "log in", err)
		return
	}

	user, err := h.userRepo.GetUserByIdentifier(c.Request.Context(), req.Identifier)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		writeError(c, "log in", err)
		return
	}
	if err != nil || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return
	}

	h.startSession(c, http.StatusOK, "Login successfully", user)
}

func (h *AuthHandler) startSession(c *gin.Context, status int, message string, user *models.User) {
	accessToken, refreshToken, err := h.tokenService.GenerateTokens(user)
	if err != nil {
		logger.Log.Error("Failed to generate tokens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to log in"})
		return
	}

	if err := h.sessionRepo.StoreRefreshToken(c.Request.Context(), user.ID, refreshToken, h.tokenService.RefreshTTL()); err != nil {
		logger.Log.Error("Failed to store refresh token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to log in"})
		return
	}

	h.setTokenCookie(c, middlewares.AccessTokenCookie, accessToken, int(h.tokenService.AccessTTL().Seconds()))
	h.setTokenCookie(c, refreshTokenCookie, refreshToken, int(h.tokenService.RefreshTTL().Seconds()))

	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"data": gin.H{
			"user":        user.Profile(),
			"accessToken": accessToken,
		},
	})
}

// still processing request even if the user has not logged in
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshTokenCookie)
	if err == nil && refreshToken != "" {
		if err := h.sessionRepo.RevokeToken(c.Request.Context(), refreshToken); err != nil {
			logger.Log.Warn("Failed to revoke token on logout", zap.Error(err))
		}
	}

	h.setTokenCookie(c, middlewares.AccessTokenCookie, "", -1)
	h.setTokenCookie(c, refreshTokenCookie, "", -1)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// Verify reports whether the caller is signed in. An expired access token is
// replaced when the refresh cookie still maps to a live session.
func (h *AuthHandler) Verify(c *gin.Context) {
	if accessToken := middlewares.AccessToken(c); accessToken != "" {
		claims, err := h.tokenService.ValidateToken(accessToken, services.TokenTypeAccess)
		if err == nil {
			user, err := h.userRepo.GetUserByID(c.Request.Context(), claims.UserID)
			if err != nil {
				if !errors.Is(err, apperrors.ErrNotFound) {
					logger.Log.Error("Failed to load user during verify", zap.Error(err))
				}
				c.JSON(http.StatusUnauthorized, gin.H{"is_authenticated": false, "error": "Unauthorized"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"is_authenticated": true, "user_id": user.ID, "role": user.Role})
			return
		}
	}

	refreshToken, err := c.Cookie(refreshTokenCookie)
	if err != nil || refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"is_authenticated": false, "error": "Unauthorized"})
		return
	}

	claims, err := h.tokenService.ValidateToken(refreshToken, services.TokenTypeRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"is_authenticated": false, "error": "Unauthorized"})
		return
	}

	userID, err := h.sessionRepo.GetRefreshToken(c.Request.Context(), refreshToken)
	if err != nil || userID != claims.UserID {
		if err != nil && !errors.Is(err, repositories.ErrSessionNotFound) {
			logger.Log.Error("Failed to read session", zap.Error(err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"is_authenticated": false, "error": "Unauthorized"})
		return
	}

	// Reload the account so a changed role or a deleted user is picked up.
	user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Log.Error("Failed to load user during verify", zap.Error(err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"is_authenticated": false, "error": "Unauthorized"})
		return
	}

	newAccessToken, err := h.tokenService.GenerateAccessToken(user)
	if err != nil {
		logger.Log.Error("Failed to generate new access token during verify", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"is_authenticated": false, "error": "Could not refresh session"})
		return
	}

	h.setTokenCookie(c, middlewares.AccessTokenCookie, newAccessToken, int(h.tokenService.AccessTTL().Seconds()))
	c.JSON(http.StatusOK, gin.H{"is_authenticated": true, "user_id": user.ID, "role": user.Role})
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.cookieSecure, true)
}

// RegisterRoutes mounts the auth endpoints. limit guards the endpoints that
// check passwords.
func (h *AuthHandler) RegisterRoutes(router gin.IRouter, limit gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", limit, h.Register)
		authGroup.POST("/login", limit, h.Login)
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/verify", h.Verify)
	}
}
