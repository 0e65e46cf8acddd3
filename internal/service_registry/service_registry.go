package service_registry

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/inkwell/portfolio/internal/fallback"
	"github.com/inkwell/portfolio/internal/services"
	"github.com/inkwell/portfolio/internal/utils"
)

// Service is implemented by everything the registry starts and stops.
type Service interface {
	Start() error
	Stop() error
}

// Dependencies are the long-lived components built before registration.
type Dependencies struct {
	Monitor *fallback.HealthMonitor
	Hub     *services.UpdateHub
	Handler http.Handler
}

// ServiceRegistry starts services in registration order and stops them in reverse.
type ServiceRegistry struct {
	services map[string]Service
	order    []string
	Logger   zerolog.Logger
}

// NewServiceRegistry initializes a new service registry.
func NewServiceRegistry(logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[string]Service),
		Logger:   logger,
	}
}

// RegisterService adds svc under name. A duplicate name is ignored.
func (sr *ServiceRegistry) RegisterService(name string, svc Service) {
	if _, dup := sr.services[name]; dup {
		sr.Logger.Warn().Str("service", name).Msg("Service already registered, ignoring")
		return
	}
	sr.services[name] = svc
	sr.order = append(sr.order, name)
	sr.Logger.Debug().Str("service", name).Int("position", len(sr.order)).Msg("Service registered")
}

// Names returns the registered service names in start order.
func (sr *ServiceRegistry) Names() []string {
	return append([]string(nil), sr.order...)
}

// StartServices starts every service in order. On the first failure the services
// already running are stopped again, newest first.
func (sr *ServiceRegistry) StartServices() error {
	for i, name := range sr.order {
		log := sr.Logger.With().Str("service", name).Logger()
		log.Info().Msg("Starting service")
		if err := sr.services[name].Start(); err != nil {
			log.Error().Err(err).Int("rolling_back", i).Msg("Service failed to start")
			sr.rollback(sr.order[:i])
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
	}
	return nil
}

func (sr *ServiceRegistry) rollback(started []string) {
	for i := len(started) - 1; i >= 0; i-- {
		if err := sr.services[started[i]].Stop(); err != nil {
			sr.Logger.Warn().Err(err).Str("service", started[i]).Msg("Rollback stop failed")
		}
	}
}

// StopServices stops every service in reverse order and joins the failures.
func (sr *ServiceRegistry) StopServices() error {
	var errs []error
	for i := len(sr.order) - 1; i >= 0; i-- {
		name := sr.order[i]
		if err := sr.services[name].Stop(); err != nil {
			sr.Logger.Error().Err(err).Str("service", name).Msg("Service did not stop cleanly")
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// RegisterServices initializes and registers enabled services based on configuration.
// The HTTP server goes last so it only accepts traffic once everything it uses runs.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, deps Dependencies) error {
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (Service, error)
	}{
		{
			name:    "health_refresh",
			enabled: config.Services.HealthRefresh.Enabled,
			constructor: func() (Service, error) {
				if deps.Monitor == nil {
					return nil, errors.New("health monitor is required")
				}
				return services.NewHealthRefreshService(
					config.Services.HealthRefresh.Interval,
					deps.Monitor,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "update_hub",
			enabled: deps.Hub != nil,
			constructor: func() (Service, error) {
				return deps.Hub, nil
			},
		},
		{
			name:    "http",
			enabled: true,
			constructor: func() (Service, error) {
				if deps.Handler == nil {
					return nil, errors.New("http handler is required")
				}
				return services.NewHTTPService(
					services.HTTPOptions{
						Address:           config.Server.Address,
						H2C:               config.Server.H2C,
						ReadHeaderTimeout: config.Server.ReadHeaderTimeout,
						ShutdownTimeout:   config.Server.ShutdownTimeout,
					},
					sr.WrapHandler(config, deps.Handler),
					sr.Logger,
				), nil
			},
		},
	}

	for _, def := range servicesInOrder {
		if !def.enabled {
			sr.Logger.Debug().Str("service", def.name).Msg("Service disabled")
			continue
		}
		svc, err := def.constructor()
		if err != nil {
			sr.Logger.Error().Err(err).Str("service", def.name).Msg("Failed to create service")
			return err
		}
		sr.RegisterService(def.name, svc)
	}

	sr.Logger.Info().Strs("services", sr.order).Msg("Services registered")
	return nil
}
