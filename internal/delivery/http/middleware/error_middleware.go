package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"almeone-contact-api/internal/delivery/http/response"
	"almeone-contact-api/pkg/apperror"
	"almeone-contact-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

const MsgUnexpected = "We apologize, but there was an unexpected error processing your request. Please try again later or contact us directly."

// ErrorHandler renders the last error attached to the context. Debug details
// are included only when debug is true.
func ErrorHandler(debug bool, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr, ok := apperror.As(err)
		if !ok || appErr.Kind == apperror.KindUnhandled {
			// SECURITY: Never expose internal error details to clients.
			logger.WithContext(c.Request.Context(), log).Error("unhandled error", "error", err, "path", c.FullPath())
			resp := response.Response{Success: false, Message: MsgUnexpected}
			if debug {
				resp.Debug = map[string]any{"error": err.Error()}
			}
			response.JSON(c, http.StatusInternalServerError, resp)
			return
		}

		if appErr.RetryAfter > 0 {
			seconds := int((appErr.RetryAfter + time.Second - 1) / time.Second)
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", time.Now().Add(appErr.RetryAfter).UTC().Format(time.RFC3339))
		}

		resp := response.Response{
			Success:     false,
			Message:     appErr.Message,
			ReferenceID: appErr.ReferenceID,
			Errors:      appErr.Errors,
		}
		if appErr.Kind == apperror.KindRateLimited {
			resp.Code = string(apperror.KindRateLimited)
		}
		if appErr.Code >= http.StatusInternalServerError {
			resp.EmailSent = response.Bool(false)
		}
		if debug {
			resp.Debug = debugFields(appErr)
		}
		response.JSON(c, appErr.Code, resp)
	}
}

func debugFields(appErr *apperror.AppError) map[string]any {
	out := map[string]any{"kind": appErr.Kind}
	for k, v := range appErr.Debug {
		out[k] = v
	}
	if appErr.Err != nil {
		out["error"] = appErr.Err.Error()
	}
	return out
}

// Recovery converts panics into the standard 500 body, still carrying the
// request id so the failure can be found in the logs.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithContext(c.Request.Context(), log).Error("panic recovered",
					"panic", fmt.Sprint(r),
					"path", c.Request.URL.Path,
				)
				if c.Writer.Written() {
					c.Abort()
					return
				}
				response.JSON(c, http.StatusInternalServerError, response.Response{Success: false, Message: MsgUnexpected})
				c.Abort()
			}
		}()
		c.Next()
	}
}
