package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS applies the cross-origin policy to requests under pathPrefix only.
// Requests from origins outside allowedOrigins are served without
// Access-Control headers rather than rejected.
// It is meant to be installed on the engine, not on a route group, so that
// preflight requests for paths without an OPTIONS route are still answered.
func CORS(pathPrefix string, allowedOrigins []string) gin.HandlerFunc {
	handler := cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	})

	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, pathPrefix) {
			c.Next()
			return
		}

		// Unlisted origins get no CORS headers; the browser enforces the
		// policy. The request itself is still served.
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; !ok {
				if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
					c.AbortWithStatus(http.StatusNoContent)
					return
				}
				c.Next()
				return
			}
		}
		handler(c)
	}
}
