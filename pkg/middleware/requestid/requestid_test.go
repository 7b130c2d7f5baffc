package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, Value(c)) })
	return r
}

func TestMiddlewareGeneratesID(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	newRouter().ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get(HeaderKey))
	assert.Equal(t, w.Header().Get(HeaderKey), w.Body.String())
}

func TestMiddlewareKeepsCallerID(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderKey, "trace-123")
	newRouter().ServeHTTP(w, req)

	assert.Equal(t, "trace-123", w.Body.String())
}

func TestMiddlewareReplacesOversizedID(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderKey, strings.Repeat("x", 500))
	newRouter().ServeHTTP(w, req)

	assert.Len(t, w.Body.String(), 36)
}
