package middlewares

import (
	"context"
	"dsatracker/internal/apperrors"
	"dsatracker/internal/models"
	"dsatracker/internal/services"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type userMap map[string]*models.User

func (m userMap) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	if u, ok := m[userID]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user not found")
}

func newAuthRouter(tokens *services.TokenService, users userMap) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandlerMiddleware())

	protected := r.Group("/", AuthMiddleware(tokens))
	protected.GET("/me", func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "role": id.Role})
	})
	protected.GET("/admin", AdminOnly(users), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tokens := services.NewTokenService("test-secret", time.Hour, 24*time.Hour)
	student := &models.User{ID: "u-1", Username: "grace", Email: "grace@example.com", Role: models.RoleUser}
	admin := &models.User{ID: "a-1", Username: "root", Email: "root@example.com", Role: models.RoleAdmin}

	studentToken, err := tokens.GenerateAccessToken(student)
	require.NoError(t, err)
	adminToken, err := tokens.GenerateAccessToken(admin)
	require.NoError(t, err)
	_, refreshToken, err := tokens.GenerateTokens(student)
	require.NoError(t, err)

	demoted := &models.User{ID: "a-2", Username: "former", Role: models.RoleAdmin}
	demotedToken, err := tokens.GenerateAccessToken(demoted)
	require.NoError(t, err)
	deleted := &models.User{ID: "a-3", Username: "gone", Role: models.RoleAdmin}
	deletedToken, err := tokens.GenerateAccessToken(deleted)
	require.NoError(t, err)

	router := newAuthRouter(tokens, userMap{
		student.ID: student,
		admin.ID:   admin,
		demoted.ID: {ID: demoted.ID, Username: demoted.Username, Role: models.RoleUser},
	})

	tests := []struct {
		name   string
		path   string
		cookie string
		header string
		want   int
	}{
		{"no token", "/me", "", "", http.StatusUnauthorized},
		{"garbage token", "/me", "not-a-jwt", "", http.StatusUnauthorized},
		{"refresh token as access", "/me", refreshToken, "", http.StatusUnauthorized},
		{"cookie", "/me", studentToken, "", http.StatusOK},
		{"bearer header", "/me", "", "Bearer " + studentToken, http.StatusOK},
		{"lowercase scheme", "/me", "", "bearer " + studentToken, http.StatusOK},
		{"basic scheme", "/me", "", "Basic " + studentToken, http.StatusUnauthorized},
		{"student on admin route", "/admin", studentToken, "", http.StatusForbidden},
		{"admin on admin route", "/admin", adminToken, "", http.StatusNoContent},
		{"demoted admin on admin route", "/admin", demotedToken, "", http.StatusForbidden},
		{"deleted admin on admin route", "/admin", deletedToken, "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_SetsIdentity(t *testing.T) {
	tokens := services.NewTokenService("test-secret", time.Hour, 24*time.Hour)
	token, err := tokens.GenerateAccessToken(&models.User{ID: "u-7", Username: "ada", Role: models.RoleUser})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newAuthRouter(tokens, userMap{}).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u-7","role":"user"}`, w.Body.String())
}

func TestErrorHandlerMiddleware_RecoversPanics(t *testing.T) {
	tokens := services.NewTokenService("test-secret", time.Hour, time.Hour)
	w := httptest.NewRecorder()
	newAuthRouter(tokens, userMap{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(2, time.Minute))
	r.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "limits are per client")
}

func TestMetricsMiddleware_ExposesCounters(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", PrometheusHandler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `http_requests_total{endpoint="/health",method="GET",status="200"}`))
}
