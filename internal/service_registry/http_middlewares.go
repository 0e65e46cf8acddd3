package service_registry

import (
	"net/http"

	http_middleware "github.com/inkwell/portfolio/internal/middlewares/http"
	"github.com/inkwell/portfolio/internal/utils"
)

// InitializeMiddlewares returns the enabled HTTP middlewares, outermost first.
func (sr *ServiceRegistry) InitializeMiddlewares(config *utils.Config) []http_middleware.Middleware {
	var middlewares []http_middleware.Middleware

	// Ordered middleware definitions
	middlewaresInOrder := []struct {
		name        string
		enabled     bool
		constructor func() http_middleware.Middleware
	}{
		{name: "request_id", enabled: true, constructor: http_middleware.RequestID},
		{
			name:    "access_log",
			enabled: config.Logging.AccessLog,
			constructor: func() http_middleware.Middleware {
				return http_middleware.AccessLog(sr.Logger)
			},
		},
		{
			name:    "recover",
			enabled: true,
			constructor: func() http_middleware.Middleware {
				return http_middleware.Recover(sr.Logger)
			},
		},
		{name: "render_headers", enabled: true, constructor: http_middleware.RenderHeaders},
	}

	for _, mw := range middlewaresInOrder {
		if mw.enabled {
			middlewares = append(middlewares, mw.constructor())
			sr.Logger.Debug().Str("middleware", mw.name).Msg("Middleware initialized")
		} else {
			sr.Logger.Debug().Str("middleware", mw.name).Msg("Middleware is disabled, skipping")
		}
	}
	return middlewares
}

// WrapHandler applies the configured middleware chain to h.
func (sr *ServiceRegistry) WrapHandler(config *utils.Config, h http.Handler) http.Handler {
	return http_middleware.Chain(h, sr.InitializeMiddlewares(config)...)
}
