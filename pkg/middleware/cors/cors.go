package cors

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	allowHeaders  = "Authorization, Content-Type, X-Requested-With, X-Request-ID"
	allowMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	exposeHeaders = "X-Request-ID, Content-Disposition"
)

// Options tunes the CORS policy. An empty AllowedOrigins list allows any
// origin without credentials.
type Options struct {
	AllowedOrigins []string
	MaxAge         time.Duration
}

// New returns a CORS middleware for the allowed origins.
func New(allowedOrigins []string) gin.HandlerFunc {
	return WithOptions(Options{AllowedOrigins: allowedOrigins, MaxAge: 10 * time.Minute})
}

// WithOptions returns a CORS middleware for opts. Credentials are only
// allowed for explicitly listed origins.
func WithOptions(opts Options) gin.HandlerFunc {
	allowAll := len(opts.AllowedOrigins) == 0
	origins := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		origins[normalize(origin)] = struct{}{}
	}
	maxAge := strconv.Itoa(int(opts.MaxAge.Seconds()))

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		_, listed := origins[normalize(origin)]
		switch {
		case origin == "":
		case listed:
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", exposeHeaders)
		case allowAll:
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Expose-Headers", exposeHeaders)
		}

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(origin, "/"))
}
