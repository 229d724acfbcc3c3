package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DatabaseChecker reports a database configuration problem detected at startup.
type DatabaseChecker interface {
	Err() error
}

// RequireDatabase short-circuits with a plain 500 while the database is
// misconfigured. Routes outside the guarded group keep working.
func RequireDatabase(checker DatabaseChecker, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := checker.Err(); err != nil {
			log.Error("Rejecting request, database is not configured",
				slog.String("path", c.Request.URL.Path),
				slog.String("error", err.Error()))
			c.String(http.StatusInternalServerError, "Internal Server Error")
			c.Abort()
			return
		}
		c.Next()
	}
}
