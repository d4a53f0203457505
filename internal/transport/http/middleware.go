package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-notify/internal/auth"
)

// ContextKeyIdentity is the context key for the authenticated identity.
const ContextKeyIdentity = "identity"

// ErrorResponse is the JSON body returned for rejected requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// resolveIdentity authenticates a raw request. Credentials come from
// the Authorization bearer header, or a "token" query parameter for
// clients (EventSource) that cannot set headers. Missing or unparsable
// credentials give 401; a token the verifier rejects gives 403. On
// rejection the returned identity is nil and status/reason describe
// the response to send.
func resolveIdentity(verifier *auth.Verifier, r *http.Request) (*auth.Identity, int, string) {
	var token string

	authHeader := r.Header.Get("Authorization")
	switch {
	case authHeader != "":
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return nil, http.StatusUnauthorized, "invalid authorization header format"
		}
		token = parts[1]
	case r.URL.Query().Get("token") != "":
		token = r.URL.Query().Get("token")
	default:
		return nil, http.StatusUnauthorized, "missing credentials"
	}

	identity, err := verifier.Verify(token)
	if err != nil {
		return nil, http.StatusForbidden, "invalid token"
	}
	return identity, 0, ""
}

// AuthMiddleware resolves a user identity before any stream state is
// created, rejecting the request otherwise (see resolveIdentity).
func AuthMiddleware(verifier *auth.Verifier, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, status, reason := resolveIdentity(verifier, c.Request)
		if identity == nil {
			logger.Debug().Str("reason", reason).Msg("stream auth rejected")
			c.JSON(status, ErrorResponse{Error: reason})
			c.Abort()
			return
		}

		c.Set(ContextKeyIdentity, identity)
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

func identityFrom(c *gin.Context) *auth.Identity {
	return c.MustGet(ContextKeyIdentity).(*auth.Identity)
}
