package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "docnum/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace starts the request's TraceContext from the X-Request-ID and X-Trace-ID
// headers and echoes both ids back.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := appctx.StartTrace(c.Request.Context(), appctx.OriginHTTP,
			c.GetHeader(HeaderRequestID), c.GetHeader(HeaderTraceID))
		c.Request = c.Request.WithContext(ctx)

		t := appctx.GetTrace(ctx)
		c.Header(HeaderRequestID, t.RequestID)
		c.Header(HeaderTraceID, t.TraceID)

		c.Next()
	}
}
