package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// HTTPOptions configures an HTTPService.
type HTTPOptions struct {
	Address           string
	H2C               bool
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// HTTPService runs the site's HTTP server.
type HTTPService struct {
	Options HTTPOptions
	Handler http.Handler
	Logger  zerolog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// NewHTTPService initializes a new HTTPService.
func NewHTTPService(opts HTTPOptions, handler http.Handler, logger zerolog.Logger) *HTTPService {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &HTTPService{Options: opts, Handler: handler, Logger: logger}
}

// Start binds the listen address and serves in a separate goroutine. Bind errors are
// returned synchronously.
func (s *HTTPService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		s.Logger.Warn().Msg("HTTPService is already running")
		return errors.New("http service is already running")
	}

	ln, err := net.Listen("tcp", s.Options.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Options.Address, err)
	}

	handler := s.Handler
	if s.Options.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	s.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: s.Options.ReadHeaderTimeout,
	}
	s.listener = ln

	server := s.server
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error().Err(err).Msg("HTTP server stopped unexpectedly")
		}
	}()

	s.Logger.Info().Str("address", ln.Addr().String()).Bool("h2c", s.Options.H2C).Msg("HTTPService started successfully")
	return nil
}

// Addr returns the bound address, or "" when stopped.
func (s *HTTPService) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop drains in-flight requests for up to the shutdown timeout.
func (s *HTTPService) Stop() error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if server == nil {
		s.Logger.Warn().Msg("HTTPService is not running")
		return errors.New("http service is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.Options.ShutdownTimeout)
	defer cancel()
	err := server.Shutdown(ctx)
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	s.Logger.Info().Msg("HTTPService stopped successfully")
	return nil
}
