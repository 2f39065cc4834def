package http

import (
	"fmt"
	"runtime/debug"
)

type Middleware func(next Handler) Handler

// RecoverMiddleware turns a panicking handler into a 500 response, unless
// the handler already sent its response.
func RecoverMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx *RequestCtx) {
			defer func() {
				if recovered := recover(); recovered != nil {
					ctx.Logger.Error("handler panic",
						"method", ctx.Request.Method,
						"path", ctx.Path,
						"panic", fmt.Sprint(recovered),
						"stack", string(debug.Stack()),
					)

					if !ctx.Responded() {
						_ = ctx.SendError(ErrInternal)
					}
				}
			}()

			next(ctx)
		}
	}
}
