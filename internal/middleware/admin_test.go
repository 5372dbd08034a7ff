package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestAdminMiddleware_RequireAdminAuth(t *testing.T) {
	am := NewAdminMiddleware("test-admin-key")
	gin.SetMode(gin.TestMode)

	createTestRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(am.RequireAdminAuth())
		router.POST("/api/v1/agents/collect", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "admin access granted"})
		})
		return router
	}

	t.Run("valid API key in Authorization header", func(t *testing.T) {
		router := createTestRouter()
		req := httptest.NewRequest("POST", "/api/v1/agents/collect", nil)
		req.Header.Set("Authorization", "Bearer test-admin-key")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("valid API key in X-API-Key header", func(t *testing.T) {
		router := createTestRouter()
		req := httptest.NewRequest("POST", "/api/v1/agents/collect", nil)
		req.Header.Set("X-API-Key", "test-admin-key")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("valid API key in query parameter", func(t *testing.T) {
		router := createTestRouter()
		req := httptest.NewRequest("POST", "/api/v1/agents/collect?api_key=test-admin-key", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid API key", func(t *testing.T) {
		router := createTestRouter()
		req := httptest.NewRequest("POST", "/api/v1/agents/collect", nil)
		req.Header.Set("X-API-Key", "wrong-key")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing API key", func(t *testing.T) {
		router := createTestRouter()
		req := httptest.NewRequest("POST", "/api/v1/agents/collect", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed Authorization header", func(t *testing.T) {
		router := createTestRouter()
		req := httptest.NewRequest("POST", "/api/v1/agents/collect", nil)
		req.Header.Set("Authorization", "test-admin-key")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAdminMiddleware_NoKeyConfigured(t *testing.T) {
	am := NewAdminMiddleware("")
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(am.RequireAdminAuth())
	router.POST("/api/v1/agents/collect", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	// Even an empty key is rejected; admin access stays closed.
	req := httptest.NewRequest("POST", "/api/v1/agents/collect", nil)
	req.Header.Set("X-API-Key", "")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminMiddleware_ValidateAdminKey(t *testing.T) {
	am := NewAdminMiddleware("test-admin-key")
	assert.True(t, am.ValidateAdminKey("test-admin-key"))
	assert.False(t, am.ValidateAdminKey("other-key"))
	assert.False(t, NewAdminMiddleware("").ValidateAdminKey(""))
}
