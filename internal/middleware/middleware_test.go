package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var tokens = service.NewTokenService(service.TokenConfig{Secret: "test-secret"})

func bearer(t *testing.T, identity models.Identity) string {
	t.Helper()
	signed, err := tokens.Issue(identity, time.Minute)
	require.NoError(t, err)
	return "Bearer " + signed
}

func protectedRouter(roles ...models.UserRole) *gin.Engine {
	r := gin.New()
	r.GET("/p", JWT(tokens), RequireRoles(roles...), func(c *gin.Context) {
		actor, _ := Identity(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "actor": c.GetString(logger.ActorKey)})
	})
	return r
}

func do(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	r := protectedRouter(models.RoleStudent)
	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer not-a-token").Code)
}

func TestJWTAndRoleAllowed(t *testing.T) {
	student := models.Identity{ID: "S1", Role: models.RoleStudent, Name: "Sam"}
	rec := do(protectedRouter(models.RoleStudent), bearer(t, student))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "S1", body["id"])
	assert.Equal(t, "S1", body["actor"])
}

func TestRoleForbidden(t *testing.T) {
	teacher := models.Identity{ID: "T1", Role: models.RoleTeacher}
	rec := do(protectedRouter(models.RoleStudent), bearer(t, teacher))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestRBACWithoutAuthentication(t *testing.T) {
	r := gin.New()
	r.GET("/p", RequireRoles(models.RoleTeacher), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
}

type fixedVersion uint64

func (v fixedVersion) Version() uint64 { return uint64(v) }

func TestResponseMetaCarriesVersionAndCacheHit(t *testing.T) {
	r := gin.New()
	r.Use(WithResponseMeta(fixedVersion(7)))
	var meta map[string]interface{}
	r.GET("/p", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ResponseMeta(c)
		c.Status(http.StatusOK)
	})
	do(r, "")
	require.NotNil(t, meta)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Equal(t, uint64(7), meta["store_version"])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestResponseMetaWithoutMiddleware(t *testing.T) {
	r := gin.New()
	var meta map[string]interface{}
	r.GET("/p", func(c *gin.Context) {
		meta = ResponseMeta(c)
		c.Status(http.StatusOK)
	})
	do(r, "")
	assert.NotNil(t, meta)
	assert.NotContains(t, meta, "store_version")
}

func TestMetricsMiddlewareLabelsRoutes(t *testing.T) {
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/courses/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/courses/c1", "/courses/c2", "/nowhere", "/metrics"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/courses/:id",status="418"} 2`)
	assert.Contains(t, body, `http_requests_total{method="GET",path="unmatched",status="404"} 1`)
	assert.NotContains(t, body, `path="/metrics"`)
}
