package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.PATCH("/filters", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestPreflightForAllowedOrigin(t *testing.T) {
	r := newRouter("https://portal.example.ac.id/")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/filters", nil)
	req.Header.Set("Origin", "https://portal.example.ac.id")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://portal.example.ac.id", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestDisallowedOrigin(t *testing.T) {
	r := newRouter("https://portal.example.ac.id")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/filters", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/filters", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAnyOriginWhenUnconfigured(t *testing.T) {
	r := newRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/filters", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
