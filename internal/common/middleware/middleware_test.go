package middleware

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleindex-backend/internal/common/auth"
	"teleindex-backend/internal/common/config"
	"teleindex-backend/internal/common/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler(), HandleErrors())
	return r
}

func newJWT(t *testing.T) *auth.JWTManager {
	t.Helper()
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "middleware-test-secret"
	cfg.Auth.TokenTTL = time.Hour
	m, err := auth.NewJWTManager(cfg)
	require.NoError(t, err)
	return m
}

func decode(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp struct {
		Success   bool            `json:"success"`
		Error     errors.AppError `json:"error"`
		RequestID string          `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return ErrorResponse{Success: resp.Success, Error: &resp.Error, RequestID: resp.RequestID}
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	r := newEngine()
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Body.String())
}

func TestHandleErrorsStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   errors.ErrorCode
	}{
		{"validation", errors.NewValidationError("name", "required"), http.StatusBadRequest, errors.ErrCodeValidation},
		{"invalid link", errors.NewInvalidLinkError("@tech", "must start with https:// or t.me/"), http.StatusBadRequest, errors.ErrCodeInvalidLink},
		{"not found", errors.NewCreatorNotFoundError("x"), http.StatusNotFound, errors.ErrCodeCreatorNotFound},
		{"conflict", errors.NewConflictError("creator", "slug taken"), http.StatusConflict, errors.ErrCodeConflict},
		{"forbidden", errors.NewForbiddenError("no"), http.StatusForbidden, errors.ErrCodeForbidden},
		{"external", errors.NewExternalAPIError("fetch", stderrors.New("timeout")), http.StatusBadGateway, errors.ErrCodeExternalAPI},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError, errors.ErrCodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newEngine()
			r.GET("/fail", func(c *gin.Context) { _ = c.Error(tc.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

			assert.Equal(t, tc.status, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tc.code, resp.Error.Code)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestPanicRecovered(t *testing.T) {
	r := newEngine()
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.ErrCodeInternal, decode(t, w).Error.Code)
}

func TestRequireAuth(t *testing.T) {
	jwtManager := newJWT(t)
	r := newEngine()
	r.GET("/me", RequireAuth(jwtManager), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "role": GetUserRole(c)})
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := jwtManager.GenerateToken("u-1", "a@b.c", auth.RoleEditor)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"u-1","role":"editor"}`, w.Body.String())
	})
}

func TestRequireRole(t *testing.T) {
	jwtManager := newJWT(t)
	r := newEngine()
	r.POST("/admin", RequireAuth(jwtManager), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	call := func(role string) int {
		token, err := jwtManager.GenerateToken("u-1", "a@b.c", role)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, call(auth.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, call(auth.RoleEditor))
	assert.Equal(t, http.StatusForbidden, call(auth.RoleViewer))
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	r := newEngine()
	r.POST("/login", RateLimit(rl, "login"), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	base := time.Now()
	rl.now = func() time.Time { return base }
	assert.True(t, rl.Allow("10.0.0.1"))

	rl.now = func() time.Time { return base.Add(2 * time.Hour) }
	assert.Equal(t, 1, rl.Cleanup(time.Hour))
}
