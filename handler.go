package relay

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// NewHandler adapts router to net/http. A method outside Methods() gets a
// 501. Every other request is resolved exactly once:
//   - an error is written as {"error": "..."} with the status from StatusCode;
//   - a chain that succeeds without writing anything gets a 404.
func NewHandler(router *Router[*Exchange], logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ex := NewExchange(w, r)
		if ex.Method() == "" {
			if werr := ex.JSON(http.StatusNotImplemented, map[string]string{"error": "method not implemented"}); werr != nil {
				logger.Warn("failed to write not implemented response", zap.Error(werr))
			}
			return
		}

		out, err := router.Resolve(r.Context(), ex, ex.Method(), ex.Path())
		if out == nil {
			out = ex
		}

		if err != nil {
			status := StatusCode(err)
			if status >= http.StatusInternalServerError {
				logger.Error("request failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Error(err),
				)
			}
			if out.Written() {
				return
			}
			// Only StatusError messages are meant for clients.
			message := http.StatusText(status)
			var se *StatusError
			if errors.As(err, &se) {
				message = se.Message
			}
			if werr := out.JSON(status, map[string]string{"error": message}); werr != nil {
				logger.Warn("failed to write error response", zap.Error(werr))
			}
			return
		}

		if !out.Written() {
			if werr := out.JSON(http.StatusNotFound, map[string]string{"error": "not found"}); werr != nil {
				logger.Warn("failed to write not found response", zap.Error(werr))
			}
		}
	})
}
