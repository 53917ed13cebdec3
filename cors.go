package relay

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// CORS returns middleware that sets CORS headers on every response.
// Preflight requests (OPTIONS with Access-Control-Request-Method) are
// answered with 204 and end the chain.
func CORS(cfg CORSConfig) Middleware[*Exchange] {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")

	return MiddlewareFunc[*Exchange](func(ctx context.Context, ex *Exchange, next Next[*Exchange]) (*Exchange, error) {
		origin := ex.Request().Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				if allowedOrigin == "*" {
					origin = "*"
				}
				break
			}
		}

		h := ex.Header()
		if allowed {
			h.Set("Access-Control-Allow-Origin", origin)
		}
		if methods != "" {
			h.Set("Access-Control-Allow-Methods", methods)
		}
		if headers != "" {
			h.Set("Access-Control-Allow-Headers", headers)
		}
		if exposed != "" {
			h.Set("Access-Control-Expose-Headers", exposed)
		}
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if cfg.MaxAge > 0 {
			h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if ex.Method() == MethodOptions && ex.Request().Header.Get("Access-Control-Request-Method") != "" {
			ex.Writer().WriteHeader(http.StatusNoContent)
			return ex, nil
		}

		return next(ctx, ex)
	})
}
