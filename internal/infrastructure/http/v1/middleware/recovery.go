// Package middleware provides HTTP middleware components.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"docnum/internal/core/apperror"
	appctx "docnum/internal/core/context"
	"docnum/pkg/logger"
)

// Recovery turns a handler panic into a 500 rendered by ErrorHandler. The
// panic value and stack are logged with the route and its ids, never returned.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			ctx := c.Request.Context()
			logger.Error(ctx, "handler panicked",
				"panic", rec,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"params", c.Params,
				"stack", string(debug.Stack()),
			)

			_ = c.Error(apperror.NewInternal(fmt.Errorf("panic in %s %s: %v", c.Request.Method, c.FullPath(), rec)).
				WithDetail("request_id", appctx.GetRequestID(ctx)))
			c.Abort()
		}()
		c.Next()
	}
}
