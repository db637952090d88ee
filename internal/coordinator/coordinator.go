// Package coordinator owns the single periodic poll against the gateway
// and publishes normalized snapshots to the rest of the daemon.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ozhvac/airtouchd/internal/driver"
	"github.com/ozhvac/airtouchd/internal/model"
)

// ErrConnectivity marks a refresh that failed because the gateway was
// unreachable or reported an unhealthy state exchange. The previous
// snapshot stays valid; the subsystem is unavailable until a poll
// succeeds again.
var ErrConnectivity = errors.New("gateway connectivity")

// Subscriber is invoked after every committed snapshot.
type Subscriber func(*model.Snapshot)

// inflight is a refresh in progress that concurrent callers can join.
type inflight struct {
	done chan struct{}
	snap *model.Snapshot
	err  error
}

// Coordinator polls the gateway on a fixed interval and on demand,
// normalizes the enumeration into a Snapshot and commits it atomically.
// At most one refresh is in flight at a time; a refresh requested while
// one is running joins it.
type Coordinator struct {
	drv      driver.Driver
	interval time.Duration

	snap      atomic.Pointer[model.Snapshot]
	available atomic.Bool
	version   atomic.Int64

	mu      sync.Mutex
	current *inflight

	subMu     sync.RWMutex
	subs      []Subscriber
	onFailure func(error)
	trigger   chan struct{}
}

// New creates a coordinator polling drv every interval.
func New(drv driver.Driver, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Coordinator{
		drv:      drv,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Latest returns the last committed snapshot, or nil before the first
// successful refresh. The snapshot is immutable; callers may read it
// without locks.
func (c *Coordinator) Latest() *model.Snapshot {
	return c.snap.Load()
}

// Available reports whether the last refresh succeeded. A false value
// means the latest snapshot is stale-but-available.
func (c *Coordinator) Available() bool {
	return c.available.Load()
}

// Subscribe registers a callback invoked after every committed snapshot.
// Callbacks run on the refreshing goroutine and must be quick.
func (c *Coordinator) Subscribe(fn Subscriber) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subs = append(c.subs, fn)
}

// OnFailure registers a callback invoked whenever a refresh fails with
// a connectivity error (used for metrics).
func (c *Coordinator) OnFailure(fn func(error)) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.onFailure = fn
}

// RequestRefresh schedules an out-of-band refresh. Multiple requests
// coalesce into one.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Refresh polls the gateway and commits a new snapshot. If a refresh is
// already in flight the caller joins it and receives its result.
func (c *Coordinator) Refresh(ctx context.Context) (*model.Snapshot, error) {
	c.mu.Lock()
	if fl := c.current; fl != nil {
		c.mu.Unlock()
		select {
		case <-fl.done:
			return fl.snap, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	fl := &inflight{done: make(chan struct{})}
	c.current = fl
	c.mu.Unlock()

	fl.snap, fl.err = c.refresh(ctx)
	if fl.err != nil && errors.Is(fl.err, ErrConnectivity) {
		c.subMu.RLock()
		onFailure := c.onFailure
		c.subMu.RUnlock()
		if onFailure != nil {
			onFailure(fl.err)
		}
	}

	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	close(fl.done)

	return fl.snap, fl.err
}

func (c *Coordinator) refresh(ctx context.Context) (*model.Snapshot, error) {
	health, err := c.drv.RefreshStatus(ctx)
	if err != nil {
		c.available.Store(false)
		return nil, fmt.Errorf("%w: status exchange: %v", ErrConnectivity, err)
	}
	if health != driver.HealthOK {
		c.available.Store(false)
		return nil, fmt.Errorf("%w: gateway reported %s", ErrConnectivity, health)
	}

	units, err := c.drv.ListUnits(ctx)
	if err != nil {
		c.available.Store(false)
		return nil, fmt.Errorf("%w: list units: %v", ErrConnectivity, err)
	}
	zones, err := c.drv.ListZones(ctx)
	if err != nil {
		c.available.Store(false)
		return nil, fmt.Errorf("%w: list zones: %v", ErrConnectivity, err)
	}

	snap := Normalize(units, zones)
	snap.Version = c.version.Add(1)
	if err := snap.Validate(); err != nil {
		// The gateway handed us an inconsistent enumeration. Keep the
		// previous snapshot rather than expose a broken one.
		c.available.Store(false)
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}

	c.snap.Store(snap)
	c.available.Store(true)

	log.Debug().
		Int64("version", snap.Version).
		Int("units", len(snap.Units)).
		Int("zones", len(snap.Zones)).
		Msg("Snapshot committed")

	c.notify(snap)
	return snap, nil
}

func (c *Coordinator) notify(snap *model.Snapshot) {
	c.subMu.RLock()
	subs := make([]Subscriber, len(c.subs))
	copy(subs, c.subs)
	c.subMu.RUnlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// Run drives the periodic poll until the context is cancelled. Failed
// polls are logged and retried on the next tick; the previous snapshot
// stays served throughout.
func (c *Coordinator) Run(ctx context.Context) error {
	log.Info().Dur("interval", c.interval).Msg("Coordinator started")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Coordinator stopping")
			return nil
		case <-c.trigger:
		case <-ticker.C:
		}

		if _, err := c.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Msg("Poll failed, serving last known snapshot")
		}
	}
}

// Normalize maps a raw gateway enumeration into the normalized model,
// applying the documented defaults for absent fields: unit power Off,
// unit mode Fan, fan speed Auto, zone power Off, zone aperture 0.
func Normalize(units []driver.RawUnit, zones []driver.RawZone) *model.Snapshot {
	snap := &model.Snapshot{
		FetchedAt: time.Now(),
		Units:     make([]model.Unit, 0, len(units)),
		Zones:     make([]model.Zone, 0, len(zones)),
	}

	for _, u := range units {
		name := u.Name
		if name == "" {
			name = fmt.Sprintf("AC %d", u.ID)
		}
		snap.Units = append(snap.Units, model.Unit{
			ID:          u.ID,
			Name:        name,
			Power:       powerOrDefault(u.Power),
			Mode:        modeOrDefault(u.Mode),
			FanSpeed:    speedOrDefault(u.FanSpeed),
			Temperature: u.Temperature,
			MinSetpoint: floatOrDefault(u.MinSetpoint, 16),
			MaxSetpoint: floatOrDefault(u.MaxSetpoint, 30),
		})
	}

	for _, z := range zones {
		zone := model.Zone{
			ID:       z.ID,
			Name:     z.Name,
			UnitID:   z.UnitID,
			Contract: contractOf(z.ControlMethod),
			Power:    powerOrDefault(z.Power),
		}
		switch zone.Contract {
		case model.ContractThermostatic:
			zone.Temperature = z.Temperature
			zone.TargetSetpoint = z.TargetSetpoint
		case model.ContractPercentage:
			if z.OpenPercent != nil {
				zone.OpenPercent = *z.OpenPercent
			}
		}
		snap.Zones = append(snap.Zones, zone)
	}

	return snap
}

func contractOf(method string) model.Contract {
	if method == "TemperatureControl" {
		return model.ContractThermostatic
	}
	return model.ContractPercentage
}

func powerOrDefault(p *string) model.PowerState {
	if p != nil && *p == "On" {
		return model.PowerOn
	}
	return model.PowerOff
}

func modeOrDefault(m *string) model.UnitMode {
	if m == nil || *m == "" {
		return model.UnitModeFan
	}
	return model.UnitMode(*m)
}

func speedOrDefault(s *string) model.FanSpeed {
	if s == nil || *s == "" {
		return model.FanAuto
	}
	return model.FanSpeed(*s)
}

func floatOrDefault(f *float64, def float64) float64 {
	if f == nil {
		return def
	}
	return *f
}
