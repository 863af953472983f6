package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"drop-live/internal/apperr"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success   bool          `json:"success"`
	Error     *apperr.Error `json:"error"`
	RequestID string        `json:"requestId"`
}

// statusFor maps an error kind to an HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindStateConflict:
		return http.StatusConflict
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindGateDenied:
		return http.StatusForbidden
	case apperr.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger zerolog.Logger, err error) {
	e := apperr.As(err)
	status := statusFor(e.Kind)

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("request_id", getRequestID(c)).Str("code", string(e.Code)).Msg("request failed")
	}

	body := *e
	if e.Kind == apperr.KindInternal {
		body.Message = apperr.ErrInternal.Message
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Success:   false,
		Error:     &body,
		RequestID: getRequestID(c),
	})
}

// abortError is used by middleware that has no server logger at hand.
func abortError(c *gin.Context, err error) {
	respondError(c, log.Logger, err)
}

func (s *Server) fail(c *gin.Context, err error) {
	respondError(c, s.logger, err)
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// bind decodes the JSON body into dst or fails the request.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.fail(c, apperr.InvalidField("body", "must be valid JSON"))
		return false
	}
	return true
}
