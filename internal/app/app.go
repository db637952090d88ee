// Package app is the application container: it owns all services, wires
// their dependencies and manages the start/stop lifecycle.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ozhvac/airtouchd/internal/config"
	"github.com/ozhvac/airtouchd/internal/driver"
)

// App is the main application container.
type App struct {
	cfg      *config.Config
	services *Services
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates an App with all services initialized but not started.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, services: services}, nil
}

// NewWithDriver creates an App around an externally supplied gateway
// driver (the vendor transport is not part of this module).
func NewWithDriver(cfg *config.Config, drv driver.Driver) (*App, error) {
	services, err := NewServicesWithDriver(cfg, drv)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, services: services}, nil
}

// Start connects to the gateway, performs the initial refresh and starts
// all background loops. The provided context is used for cancellation.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	if err := a.services.Start(a.ctx); err != nil {
		a.cancel()
		return err
	}

	log.Info().Msg("airtouchd started")
	return nil
}

// Stop gracefully shuts down all services, bounded by the configured
// shutdown timeout.
func (a *App) Stop() error {
	log.Info().Msg("Shutting down...")

	if a.cancel != nil {
		a.cancel()
	}
	if a.services == nil {
		return nil
	}
	return stopWithTimeout(a.services.Stop, a.cfg.ShutdownTimeout.Duration())
}

// stopWithTimeout runs stop but gives up after the timeout so a wedged
// broker or gateway cannot hang shutdown forever.
func stopWithTimeout(stop func() error, timeout time.Duration) error {
	if timeout <= 0 {
		return stop()
	}

	done := make(chan error, 1)
	go func() { done <- stop() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timed out after %s", timeout)
	}
}

// Wait blocks until the application context is cancelled.
func (a *App) Wait() {
	if a.ctx != nil {
		<-a.ctx.Done()
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
