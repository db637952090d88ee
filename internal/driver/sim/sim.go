// Package sim is an in-memory gateway used for development and tests.
// It implements the full driver contract, including the vendor quirk
// where a unit powers itself off once all of its zones are closed.
package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ozhvac/airtouchd/internal/driver"
	"github.com/ozhvac/airtouchd/internal/model"
)

// Unit is the mutable simulated state of one AC unit.
type Unit struct {
	ID          int
	Name        string
	Power       string
	Mode        string
	FanSpeed    string
	Temperature float64
	MinSetpoint float64
	MaxSetpoint float64
}

// Zone is the mutable simulated state of one zone.
type Zone struct {
	ID             int
	Name           string
	UnitID         int
	ControlMethod  string
	Power          string
	Temperature    float64
	TargetSetpoint float64
	OpenPercent    int
}

// Gateway is a fake vendor gateway holding units and zones in memory.
type Gateway struct {
	mu        sync.Mutex
	connected bool
	healthy   bool
	units     map[int]*Unit
	zones     map[int]*Zone

	// Calls records mutating commands in order, for tests.
	Calls []string
}

// New creates an empty simulated gateway in healthy state.
func New() *Gateway {
	return &Gateway{
		healthy: true,
		units:   make(map[int]*Unit),
		zones:   make(map[int]*Zone),
	}
}

// AddUnit seeds a unit. Not safe to call concurrently with driver use.
func (g *Gateway) AddUnit(u Unit) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := u
	g.units[u.ID] = &cp
}

// AddZone seeds a zone.
func (g *Gateway) AddZone(z Zone) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := z
	g.zones[z.ID] = &cp
}

// SetHealthy flips the health reported by RefreshStatus.
func (g *Gateway) SetHealthy(ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.healthy = ok
}

func (g *Gateway) record(format string, args ...any) {
	g.Calls = append(g.Calls, fmt.Sprintf(format, args...))
}

func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = true
	return nil
}

func (g *Gateway) RefreshStatus(ctx context.Context) (driver.Health, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.healthy {
		return driver.HealthError, nil
	}
	return driver.HealthOK, nil
}

func (g *Gateway) ListUnits(ctx context.Context) ([]driver.RawUnit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]int, 0, len(g.units))
	for id := range g.units {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]driver.RawUnit, 0, len(g.units))
	for _, id := range ids {
		u := g.units[id]
		power, mode, speed := u.Power, u.Mode, u.FanSpeed
		temp, lo, hi := u.Temperature, u.MinSetpoint, u.MaxSetpoint
		out = append(out, driver.RawUnit{
			ID:          u.ID,
			Name:        u.Name,
			Power:       &power,
			Mode:        &mode,
			FanSpeed:    &speed,
			Temperature: &temp,
			MinSetpoint: &lo,
			MaxSetpoint: &hi,
		})
	}
	return out, nil
}

func (g *Gateway) ListZones(ctx context.Context) ([]driver.RawZone, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]int, 0, len(g.zones))
	for id := range g.zones {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]driver.RawZone, 0, len(g.zones))
	for _, id := range ids {
		out = append(out, g.rawZoneLocked(g.zones[id]))
	}
	return out, nil
}

func (g *Gateway) rawZoneLocked(z *Zone) driver.RawZone {
	power := z.Power
	temp, target := z.Temperature, z.TargetSetpoint
	pct := z.OpenPercent
	return driver.RawZone{
		ID:             z.ID,
		Name:           z.Name,
		UnitID:         z.UnitID,
		ControlMethod:  z.ControlMethod,
		Power:          &power,
		Temperature:    &temp,
		TargetSetpoint: &target,
		OpenPercent:    &pct,
	}
}

func (g *Gateway) SetUnitPower(ctx context.Context, unitID int, on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, ok := g.units[unitID]
	if !ok {
		return fmt.Errorf("sim: unknown unit %d", unitID)
	}
	u.Power = powerString(on)
	g.record("SetUnitPower(%d,%v)", unitID, on)
	return nil
}

func (g *Gateway) SetUnitMode(ctx context.Context, unitID int, mode model.UnitMode) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, ok := g.units[unitID]
	if !ok {
		return fmt.Errorf("sim: unknown unit %d", unitID)
	}
	u.Mode = string(mode)
	g.record("SetUnitMode(%d,%s)", unitID, mode)
	return nil
}

func (g *Gateway) SetUnitFanSpeed(ctx context.Context, unitID int, speed model.FanSpeed) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, ok := g.units[unitID]
	if !ok {
		return fmt.Errorf("sim: unknown unit %d", unitID)
	}
	u.FanSpeed = string(speed)
	g.record("SetUnitFanSpeed(%d,%s)", unitID, speed)
	return nil
}

func (g *Gateway) SetZonePower(ctx context.Context, zoneID int, on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	z, ok := g.zones[zoneID]
	if !ok {
		return fmt.Errorf("sim: unknown zone %d", zoneID)
	}
	z.Power = powerString(on)
	g.record("SetZonePower(%d,%v)", zoneID, on)

	// Vendor quirk: the unit shuts itself down once every zone is closed.
	if !on {
		g.autoPowerOffLocked(z.UnitID)
	}
	return nil
}

func (g *Gateway) autoPowerOffLocked(unitID int) {
	for _, z := range g.zones {
		if z.UnitID == unitID && z.Power == "On" {
			return
		}
	}
	if u, ok := g.units[unitID]; ok {
		u.Power = "Off"
	}
}

func (g *Gateway) SetZoneSetpoint(ctx context.Context, zoneID int, temp float64) (driver.RawZone, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	z, ok := g.zones[zoneID]
	if !ok {
		return driver.RawZone{}, fmt.Errorf("sim: unknown zone %d", zoneID)
	}
	z.TargetSetpoint = temp
	g.record("SetZoneSetpoint(%d,%.1f)", zoneID, temp)
	return g.rawZoneLocked(z), nil
}

func (g *Gateway) SetZoneAperture(ctx context.Context, zoneID int, percent int) (driver.RawZone, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	z, ok := g.zones[zoneID]
	if !ok {
		return driver.RawZone{}, fmt.Errorf("sim: unknown zone %d", zoneID)
	}
	z.OpenPercent = percent
	g.record("SetZoneAperture(%d,%d)", zoneID, percent)
	return g.rawZoneLocked(z), nil
}

func (g *Gateway) SupportedUnitModes(ctx context.Context, unitID int) ([]model.UnitMode, error) {
	return []model.UnitMode{
		model.UnitModeHeat,
		model.UnitModeCool,
		model.UnitModeAuto,
		model.UnitModeDry,
		model.UnitModeFan,
	}, nil
}

func (g *Gateway) SupportedUnitFanSpeeds(ctx context.Context, unitID int) ([]model.FanSpeed, error) {
	return []model.FanSpeed{
		model.FanQuiet,
		model.FanLow,
		model.FanMedium,
		model.FanHigh,
		model.FanPowerful,
		model.FanAuto,
	}, nil
}

func (g *Gateway) SupportedZoneFanSpeeds(ctx context.Context, zoneID int) ([]model.FanSpeed, error) {
	return []model.FanSpeed{model.FanAuto}, nil
}

func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = false
	return nil
}

func powerString(on bool) string {
	if on {
		return "On"
	}
	return "Off"
}
