package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docnum/internal/core/apperror"
	appctx "docnum/internal/core/context"
	"docnum/internal/infrastructure/http/v1/dto"
	"docnum/pkg/logger"
)

// RetryAfterSeconds is sent with every 503 so clients back off before retrying.
const RetryAfterSeconds = 1

// ErrorHandler renders the last error registered on the context as JSON.
// Internal causes are logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			logger.Error(c.Request.Context(), "unhandled error", "error", err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Code:    apperror.CodeInternal,
				Message: "Internal server error",
				Details: map[string]any{"request_id": appctx.GetRequestID(c.Request.Context())},
			})
			return
		}

		if appErr.Err != nil {
			logger.Error(c.Request.Context(), "request error",
				"code", appErr.Code,
				"cause", appErr.Err,
			)
		}

		if appErr.HTTPStatus == http.StatusServiceUnavailable {
			c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
		}

		c.JSON(appErr.HTTPStatus, dto.ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		})
	}
}
