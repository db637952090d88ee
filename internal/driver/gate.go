package driver

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ozhvac/airtouchd/internal/model"
)

// Gate serializes access to a Driver. The gateway link is a single
// logical session: the poll loop, the controller tick and user commands
// all go through one Gate so that no two calls interleave mid-operation.
// Every call also gets a per-call timeout and is rate limited, so a
// wedged gateway cannot stall a schedule forever.
type Gate struct {
	mu      sync.Mutex
	d       Driver
	limiter *rate.Limiter
	timeout time.Duration
}

// NewGate wraps a Driver with serialization, rate limiting and per-call
// timeouts. Zero values fall back to 5 rps and a 10s timeout.
func NewGate(d Driver, rps float64, timeout time.Duration) *Gate {
	if rps <= 0 {
		rps = 5.0
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gate{
		d:       d,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		timeout: timeout,
	}
}

// call runs fn while holding the session, after waiting for the limiter.
func (g *Gate) call(ctx context.Context, fn func(ctx context.Context) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return fn(ctx)
}

func (g *Gate) Connect(ctx context.Context) error {
	return g.call(ctx, func(ctx context.Context) error { return g.d.Connect(ctx) })
}

func (g *Gate) RefreshStatus(ctx context.Context) (Health, error) {
	var h Health
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		h, err = g.d.RefreshStatus(ctx)
		return err
	})
	return h, err
}

func (g *Gate) ListUnits(ctx context.Context) ([]RawUnit, error) {
	var units []RawUnit
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		units, err = g.d.ListUnits(ctx)
		return err
	})
	return units, err
}

func (g *Gate) ListZones(ctx context.Context) ([]RawZone, error) {
	var zones []RawZone
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		zones, err = g.d.ListZones(ctx)
		return err
	})
	return zones, err
}

func (g *Gate) SetUnitPower(ctx context.Context, unitID int, on bool) error {
	return g.call(ctx, func(ctx context.Context) error { return g.d.SetUnitPower(ctx, unitID, on) })
}

func (g *Gate) SetUnitMode(ctx context.Context, unitID int, mode model.UnitMode) error {
	return g.call(ctx, func(ctx context.Context) error { return g.d.SetUnitMode(ctx, unitID, mode) })
}

func (g *Gate) SetUnitFanSpeed(ctx context.Context, unitID int, speed model.FanSpeed) error {
	return g.call(ctx, func(ctx context.Context) error { return g.d.SetUnitFanSpeed(ctx, unitID, speed) })
}

func (g *Gate) SetZonePower(ctx context.Context, zoneID int, on bool) error {
	return g.call(ctx, func(ctx context.Context) error { return g.d.SetZonePower(ctx, zoneID, on) })
}

func (g *Gate) SetZoneSetpoint(ctx context.Context, zoneID int, temp float64) (RawZone, error) {
	var z RawZone
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		z, err = g.d.SetZoneSetpoint(ctx, zoneID, temp)
		return err
	})
	return z, err
}

func (g *Gate) SetZoneAperture(ctx context.Context, zoneID int, percent int) (RawZone, error) {
	var z RawZone
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		z, err = g.d.SetZoneAperture(ctx, zoneID, percent)
		return err
	})
	return z, err
}

func (g *Gate) SupportedUnitModes(ctx context.Context, unitID int) ([]model.UnitMode, error) {
	var modes []model.UnitMode
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		modes, err = g.d.SupportedUnitModes(ctx, unitID)
		return err
	})
	return modes, err
}

func (g *Gate) SupportedUnitFanSpeeds(ctx context.Context, unitID int) ([]model.FanSpeed, error) {
	var speeds []model.FanSpeed
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		speeds, err = g.d.SupportedUnitFanSpeeds(ctx, unitID)
		return err
	})
	return speeds, err
}

func (g *Gate) SupportedZoneFanSpeeds(ctx context.Context, zoneID int) ([]model.FanSpeed, error) {
	var speeds []model.FanSpeed
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		speeds, err = g.d.SupportedZoneFanSpeeds(ctx, zoneID)
		return err
	})
	return speeds, err
}

func (g *Gate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.d.Close()
}
