package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drop-live/internal/apperr"
	"drop-live/internal/auth"
	"drop-live/internal/observability"
)

// Header, cookie and context keys.
const (
	RequestIDHeader = "X-Request-ID"
	SessionCookie   = "session"

	requestIDKey = "request_id"
	identityKey  = "identity"
)

// RequestID propagates or assigns a request id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

func getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLog logs every request and records HTTP metrics.
func AccessLog(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		observability.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(status), latency)

		event := logger.Info()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("request_id", getRequestID(c)).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Int("body_size", c.Writer.Size()).
			Msg("request processed")
	}
}

// Recovery turns panics into INTERNAL error responses.
func Recovery(logger zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error().
			Str("request_id", getRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("panic", fmt.Sprint(recovered)).
			Msg("panic recovered")
		respondError(c, logger, apperr.ErrInternal)
	})
}

// credentialFrom returns the bearer token or session cookie of the request.
func credentialFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// Authenticate resolves the session credential, if any, into an identity.
func Authenticate(a *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := credentialFrom(c)
		if credential == "" {
			c.Next()
			return
		}
		id, err := a.ValidateSession(c.Request.Context(), credential)
		if err != nil {
			abortError(c, err)
			return
		}
		if id != nil {
			c.Set(identityKey, id)
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a valid session.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity(c) == nil {
			abortError(c, apperr.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// identity returns the authenticated caller, or nil.
func identity(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*auth.Identity)
	return id
}
