package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/clinic-schedule/pkg/errors"
	"github.com/jwalitptl/clinic-schedule/pkg/httputil"
)

// ErrorMapper turns a domain error into the AppError sent to the client.
type ErrorMapper func(error) *apperrors.AppError

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler(mapErr ErrorMapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last().Err
		appErr := mapErr(lastErr)

		event := log.Warn()
		if appErr.HTTPStatus() >= 500 {
			event = log.Error()
		}
		event.
			Err(lastErr).
			Str("request_id", c.GetString(ContextRequestID)).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Int("status", appErr.HTTPStatus()).
			Msg("Request error")

		httputil.RespondWithError(c, appErr)
	}
}
