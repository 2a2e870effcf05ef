package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(origins []string, req *http.Request) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.GET("/courses", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func request(method, origin string) *http.Request {
	req := httptest.NewRequest(method, "/courses", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestCORSAllowedOriginGetsCredentials(t *testing.T) {
	rec := serve([]string{"https://LMS.example/"}, request(http.MethodGet, "https://lms.example"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://lms.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	rec := serve([]string{"https://lms.example"}, request(http.MethodGet, "https://evil.example"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSWildcardWithoutCredentials(t *testing.T) {
	rec := serve(nil, request(http.MethodGet, "https://any.example"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSPreflight(t *testing.T) {
	req := request(http.MethodOptions, "https://lms.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := serve([]string{"https://lms.example"}, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://lms.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}
