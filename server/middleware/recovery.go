package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/qiwen/wxrelay/errors"
	"go.uber.org/zap"
)

// Recovery middleware recovers from panics, logs the stack, and answers
// with the generic 500 envelope instead of dropping the connection.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					stack := debug.Stack()
					logger.Error("panic recovered",
						zap.Any("error", err),
						zap.ByteString("stack", stack),
						zap.String("request_id", GetRequestID(r.Context())),
					)

					errors.WriteError(w, errors.NewInternalError(
						GetRequestID(r.Context()),
						fmt.Errorf("panic: %v", err),
					))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
