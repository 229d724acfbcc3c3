package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/n1207n/blog-post-api/internal/auth"
)

// Identity verifies the bearer ID token, when present, and stores its claims
// in the request context. Mutating requests without a token are rejected.
// A nil verifier disables the check entirely and callers identify
// themselves through the request body.
func Identity(verifier auth.TokenVerifier, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}

		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			if isMutation(c.Request.Method) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
				return
			}
			c.Next()
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), raw)
		if err != nil {
			log.Warn("Rejected bearer token", slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"details": err.Error(),
			})
			return
		}

		c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
