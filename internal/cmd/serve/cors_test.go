package serve

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func corsRouter(origins string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(corsMiddleware(origins))
	router.POST("/v1/methods/stories.get", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestParseOrigins(t *testing.T) {
	require.True(t, parseOrigins("")["*"])

	origins := parseOrigins(" https://a.example , ,https://b.example")
	require.Len(t, origins, 2)
	require.True(t, origins["https://a.example"])
	require.True(t, origins["https://b.example"])
}

func TestCorsMiddleware_PreflightAdvertisesMethodsAPI(t *testing.T) {
	router := corsRouter("https://app.example")

	req := httptest.NewRequest(http.MethodOptions, "/v1/methods/stories.get", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	require.Equal(t, "Authorization, Content-Type, X-API-Key", rec.Header().Get("Access-Control-Allow-Headers"))
	require.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCorsMiddleware_AllowsConfiguredOrigin(t *testing.T) {
	router := corsRouter("https://app.example")

	req := httptest.NewRequest(http.MethodPost, "/v1/methods/stories.get", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorsMiddleware_IgnoresUnknownOrigin(t *testing.T) {
	router := corsRouter("https://app.example")

	req := httptest.NewRequest(http.MethodPost, "/v1/methods/stories.get", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCorsMiddleware_WildcardEchoesOrigin(t *testing.T) {
	router := corsRouter("*")

	req := httptest.NewRequest(http.MethodPost, "/v1/methods/stories.get", nil)
	req.Header.Set("Origin", "https://any.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, "https://any.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
