package handlers

import (
	"bytes"
	"context"
	"dsatracker/internal/middlewares"
	"dsatracker/internal/models"
	"dsatracker/internal/repositories"
	"dsatracker/internal/services"
	"dsatracker/internal/tracker"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *repositories.MemoryStore
	tokens *services.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repositories.NewMemoryStore()
	tokens := services.NewTokenService("handler-secret", time.Hour, 24*time.Hour)
	sessions := repositories.NewSessionRepository(services.NewMemoryCache())

	router := gin.New()
	api := router.Group("/api/v1")
	NewAuthHandler(store, sessions, tokens, false).RegisterRoutes(api, func(c *gin.Context) { c.Next() })
	NewTopicHandler(
		tracker.NewCatalogService(store),
		tracker.NewProgressService(store, store, store),
	).RegisterRoutes(api, middlewares.AuthMiddleware(tokens), middlewares.AdminOnly(store))

	return &testServer{router: router, store: store, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) userToken(t *testing.T, username string, role models.Role) (string, *models.User) {
	t.Helper()
	user, err := s.store.CreateUser(context.Background(), &models.RegisterRequest{
		FullName: username, Username: username, Email: username + "@example.com", Password: "password123",
	}, role)
	require.NoError(t, err)
	token, err := s.tokens.GenerateAccessToken(user)
	require.NoError(t, err)
	return token, user
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"fullName": "Grace Hopper", "username": "grace", "email": "Grace@Example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var registered struct {
		Data struct {
			User        models.UserProfile `json:"user"`
			AccessToken string             `json:"accessToken"`
		} `json:"data"`
	}
	decode(t, w, &registered)
	assert.Equal(t, models.RoleUser, registered.Data.User.Role)
	assert.Equal(t, "grace@example.com", registered.Data.User.Email)
	assert.NotEmpty(t, registered.Data.AccessToken)

	access := cookieNamed(w, middlewares.AccessTokenCookie)
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)

	w = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"fullName": "Other", "username": "grace", "email": "other@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, identifier := range []string{"grace", "grace@example.com"} {
		w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"identifier": identifier, "password": "password123"})
		assert.Equal(t, http.StatusOK, w.Code, identifier)
	}

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"identifier": "grace", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"identifier": "nobody", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_IgnoresRequestedRole(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"fullName": "Mallory", "username": "mallory", "email": "mallory@example.com", "password": "password123", "role": "admin",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	user, err := s.store.GetUserByIdentifier(context.Background(), "mallory")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
}

func TestRegister_Validation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"fullName": "Grace", "username": "grace", "email": "not-an-email", "password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "grace"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerify_RefreshesAccessToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"fullName": "Grace Hopper", "username": "grace", "email": "grace@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	refresh := cookieNamed(w, refreshTokenCookie)
	require.NotNil(t, refresh)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify", nil)
	req.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: refresh.Value})
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, cookieNamed(w, middlewares.AccessTokenCookie))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: refresh.Value})
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify", nil)
	req.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: refresh.Value})
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTopicRoutes_RequireAuth(t *testing.T) {
	s := newTestServer(t)
	studentToken, _ := s.userToken(t, "student", models.RoleUser)

	w := s.do(t, http.MethodGet, "/api/v1/topic/all", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/topic/all", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/topic", studentToken, gin.H{"title": "Arrays"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodDelete, "/api/v1/topic/some-id", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTopicRoutes_EndToEnd(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.userToken(t, "admin", models.RoleAdmin)
	studentToken, _ := s.userToken(t, "student", models.RoleUser)

	w := s.do(t, http.MethodPost, "/api/v1/topic", adminToken, gin.H{"title": "Arrays", "description": "basics"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data models.Topic `json:"data"`
	}
	decode(t, w, &created)
	topicID := created.Data.ID

	w = s.do(t, http.MethodPost, "/api/v1/topic/"+topicID+"/problem", adminToken, gin.H{"title": "Two Sum", "difficulty": "Easy"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &created)
	require.Len(t, created.Data.Problems, 1)
	problemID := created.Data.Problems[0].ID

	w = s.do(t, http.MethodPost, "/api/v1/topic/"+topicID+"/problem", adminToken, gin.H{"title": "Bad", "difficulty": "Impossible"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/topic/missing/problem", adminToken, gin.H{"title": "Two Sum", "difficulty": "Easy"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/topic/all", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var adminView models.AdminDashboard
	decode(t, w, &adminView)
	assert.True(t, adminView.IsAdmin)
	assert.Equal(t, 1, adminView.TotalTopics)
	assert.Equal(t, 1, adminView.TotalProblems)

	w = s.do(t, http.MethodPost, "/api/v1/topic/toggle", studentToken, gin.H{"topicId": topicID, "problemId": problemID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var record models.Progress
	decode(t, w, &record)
	assert.True(t, record.Completed)

	w = s.do(t, http.MethodGet, "/api/v1/topic/all", studentToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var studentView models.StudentDashboard
	decode(t, w, &studentView)
	assert.False(t, studentView.IsAdmin)
	assert.Equal(t, "student", studentView.User.Username)
	assert.Equal(t, 1, studentView.TotalCompleted)
	require.Len(t, studentView.Topics, 1)
	assert.Equal(t, 1, studentView.Topics[0].CompletedCount)

	w = s.do(t, http.MethodPost, "/api/v1/topic/toggle", studentToken, gin.H{"topicId": "other", "problemId": problemID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/topic/toggle", studentToken, gin.H{"topicId": topicID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/topic/"+topicID+"/problem/"+problemID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, "/api/v1/topic/"+topicID+"/problem/"+problemID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/topic/"+topicID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, "/api/v1/topic/"+topicID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboard_DeletedAccountIsUnauthorized(t *testing.T) {
	s := newTestServer(t)
	token, user := s.userToken(t, "ghost", models.RoleUser)
	s.store.DeleteUser(user.ID)

	w := s.do(t, http.MethodGet, "/api/v1/topic/all", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Unauthorized"}`, w.Body.String())
}

func TestTopicRoutes_MissingFieldsAreDescribed(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.userToken(t, "admin", models.RoleAdmin)
	studentToken, _ := s.userToken(t, "student", models.RoleUser)

	w := s.do(t, http.MethodPost, "/api/v1/topic", adminToken, gin.H{"title": "Arrays"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.Topic `json:"data"`
	}
	decode(t, w, &created)
	topicID := created.Data.ID

	tests := []struct {
		name  string
		path  string
		token string
		body  gin.H
		want  string
	}{
		{"topic without title", "/api/v1/topic", adminToken, gin.H{"description": "x"}, "validation failed: title is required"},
		{"problem without title", "/api/v1/topic/" + topicID + "/problem", adminToken, gin.H{"difficulty": "Easy"}, "validation failed: title is required"},
		{"problem without difficulty", "/api/v1/topic/" + topicID + "/problem", adminToken, gin.H{"title": "Two Sum"}, "validation failed: difficulty is required"},
		{"toggle without topic", "/api/v1/topic/toggle", studentToken, gin.H{"problemId": "p-1"}, "validation failed: topicId is required"},
		{"toggle without problem", "/api/v1/topic/toggle", studentToken, gin.H{"topicId": topicID}, "validation failed: problemId is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, tt.path, tt.token, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"success":false,"error":"`+tt.want+`"}`, w.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/topic", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid request payload"}`, w.Body.String())
}

func TestAdminRoutes_UseStoredRole(t *testing.T) {
	s := newTestServer(t)
	adminToken, admin := s.userToken(t, "admin", models.RoleAdmin)
	goneToken, gone := s.userToken(t, "gone", models.RoleAdmin)

	w := s.do(t, http.MethodPost, "/api/v1/topic", adminToken, gin.H{"title": "Arrays"})
	require.Equal(t, http.StatusCreated, w.Code)

	s.store.SetUserRole(admin.ID, models.RoleUser)
	w = s.do(t, http.MethodPost, "/api/v1/topic", adminToken, gin.H{"title": "Graphs"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	s.store.DeleteUser(gone.ID)
	w = s.do(t, http.MethodPost, "/api/v1/topic", goneToken, gin.H{"title": "Graphs"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	topics, err := s.store.ListTopics(context.Background())
	require.NoError(t, err)
	assert.Len(t, topics, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"is_authenticated":true,"user_id":"`+admin.ID+`","role":"user"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+goneToken)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDashboard_CarriesSuccessFlag(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.userToken(t, "admin", models.RoleAdmin)
	studentToken, _ := s.userToken(t, "student", models.RoleUser)

	for _, token := range []string{adminToken, studentToken} {
		w := s.do(t, http.MethodGet, "/api/v1/topic/all", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		decode(t, w, &body)
		assert.Equal(t, true, body["success"])
	}
}
