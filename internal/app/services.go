package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/ozhvac/airtouchd/internal/bridge"
	"github.com/ozhvac/airtouchd/internal/broker"
	"github.com/ozhvac/airtouchd/internal/config"
	"github.com/ozhvac/airtouchd/internal/controller"
	"github.com/ozhvac/airtouchd/internal/coordinator"
	"github.com/ozhvac/airtouchd/internal/dispatch"
	"github.com/ozhvac/airtouchd/internal/driver"
	"github.com/ozhvac/airtouchd/internal/driver/sim"
	"github.com/ozhvac/airtouchd/internal/metrics"
	"github.com/ozhvac/airtouchd/internal/sensor"
	"github.com/ozhvac/airtouchd/internal/store"
)

// ErrNoUnits aborts startup when the gateway enumerates no AC units.
// This is the only non-recoverable condition; everything else degrades.
var ErrNoUnits = errors.New("no AC units discovered")

// Services is a container for all application services. It manages
// initialization order and dependencies.
type Services struct {
	cfg *config.Config

	DB      *store.DB
	Gateway *driver.Gate

	Coordinator *coordinator.Coordinator
	Registry    *controller.Registry
	Dispatcher  *dispatch.Dispatcher

	Broker  *broker.Client
	Sensors sensor.Source
	Bridge  *bridge.Bridge

	Metrics       *metrics.Collector
	MetricsServer *metrics.Server
}

// NewServices creates all services with the built-in gateway selection:
// the in-memory simulator when gateway.simulate is set. Production
// builds inject the vendor transport through NewServicesWithDriver.
func NewServices(cfg *config.Config) (*Services, error) {
	if !cfg.Gateway.Simulate {
		return nil, fmt.Errorf(
			"no built-in transport for gateway %q: inject a vendor driver or set gateway.simulate",
			cfg.Gateway.Address,
		)
	}
	return NewServicesWithDriver(cfg, sim.NewDemo())
}

// NewServicesWithDriver creates all services around the given gateway
// driver, with proper dependency injection.
func NewServicesWithDriver(cfg *config.Config, drv driver.Driver) (*Services, error) {
	s := &Services{cfg: cfg}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = db

	// All gateway access goes through one gate: the vendor link is a
	// single logical session.
	s.Gateway = driver.NewGate(drv, cfg.Gateway.RateLimitRPS, cfg.Gateway.CallTimeout.Duration())

	s.Coordinator = coordinator.New(s.Gateway, cfg.Gateway.PollInterval.Duration())

	if cfg.MQTT.Enabled {
		client, err := broker.Connect(broker.Config{
			Broker:   cfg.MQTT.Broker,
			Port:     cfg.MQTT.Port,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			ClientID: "airtouchd",
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("mqtt connect: %w", err)
		}
		s.Broker = client
	}

	// Sensor readings arrive over MQTT; without a broker there are no
	// bound sensors and manual climates stay gated off.
	if s.Broker != nil && len(cfg.Zones.Sensors) > 0 {
		refs := make([]string, 0, len(cfg.Zones.Sensors))
		for _, ref := range cfg.Zones.Sensors {
			refs = append(refs, ref)
		}
		src, err := sensor.NewMQTTSource(s.Broker, refs)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("sensor subscriptions: %w", err)
		}
		s.Sensors = src
	} else {
		s.Sensors = sensor.NewStaticSource()
	}

	// Controllers only exist for bound percentage zones, and only in
	// climate setup.
	var bindings map[int]string
	if cfg.Zones.Setup == config.SetupClimate {
		bindings = cfg.Zones.Sensors
	}
	s.Registry = controller.NewRegistry(
		s.Gateway,
		s.Coordinator,
		s.Sensors,
		db,
		bindings,
		cfg.Gateway.AdjustInterval.Duration(),
	)

	promRegistry := prometheus.NewRegistry()
	s.Metrics = metrics.NewCollector(promRegistry)
	if cfg.Metrics.Enabled {
		s.MetricsServer = metrics.NewServer(cfg.Metrics.Host, cfg.Metrics.Port, promRegistry, func() bool {
			return s.Coordinator.Latest() != nil
		})
	}

	// Every committed snapshot flows to the controller registry and the
	// metric gauges; failed polls only touch the failure counters.
	s.Coordinator.Subscribe(s.Registry.Sync)
	s.Coordinator.Subscribe(s.Metrics.ObserveSnapshot)
	s.Coordinator.OnFailure(func(error) { s.Metrics.ObservePollFailure() })
	s.Registry.OnAdjust(func(zoneID, aperture int) {
		if zc, ok := s.Registry.Get(zoneID); ok {
			s.Metrics.ObserveAdjustment(zoneID, zc.Name, zc.Target(), aperture)
		}
	})

	return s, nil
}

// Start connects to the gateway, performs the initial refresh, loads
// unit capabilities and starts all background loops.
func (s *Services) Start(ctx context.Context) error {
	if err := s.Gateway.Connect(ctx); err != nil {
		return fmt.Errorf("gateway connect: %w", err)
	}
	log.Info().Str("gateway", s.cfg.Gateway.Address).Bool("simulated", s.cfg.Gateway.Simulate).Msg("Connected to gateway")

	snap, err := s.Coordinator.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}
	if len(snap.Units) == 0 {
		return ErrNoUnits
	}

	caps, err := dispatch.LoadCapabilities(ctx, s.Gateway, snap)
	if err != nil {
		return fmt.Errorf("load capabilities: %w", err)
	}
	s.Dispatcher = dispatch.New(s.Gateway, s.Coordinator, s.Registry, caps)

	if s.Broker != nil {
		s.Bridge = bridge.New(
			s.Broker,
			s.Coordinator,
			s.Dispatcher,
			s.Registry,
			s.Sensors,
			s.cfg.MQTT.TopicPrefix,
			s.cfg.Zones.Setup,
			s.cfg.Zones.Sensors,
		)
		if err := s.Bridge.Start(ctx); err != nil {
			return fmt.Errorf("bridge start: %w", err)
		}
		// The bridge subscribed after the initial commit; mirror it now.
		s.Bridge.PublishSnapshot(snap)
	}

	go func() {
		if err := s.Coordinator.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Coordinator error")
		}
	}()
	go func() {
		if err := s.Registry.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Zone controller error")
		}
	}()
	if s.MetricsServer != nil {
		s.MetricsServer.Start(ctx)
	}

	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Broker != nil {
		s.Broker.Close()
	}
	if s.Gateway != nil {
		if err := s.Gateway.Close(); err != nil {
			log.Warn().Err(err).Msg("Gateway close error")
		}
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
