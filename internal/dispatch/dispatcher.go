// Package dispatch validates requested transitions against each entity's
// behavioral contract and forwards accepted commands to the gateway.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ozhvac/airtouchd/internal/controller"
	"github.com/ozhvac/airtouchd/internal/coordinator"
	"github.com/ozhvac/airtouchd/internal/driver"
	"github.com/ozhvac/airtouchd/internal/model"
	"github.com/ozhvac/airtouchd/internal/view"
)

var (
	// ErrUnsupportedTransition rejects a mode or speed outside the
	// entity's supported set. Nothing is sent to the gateway.
	ErrUnsupportedTransition = errors.New("unsupported transition")
	// ErrStaleReference rejects a command addressing a unit or zone no
	// longer present in the latest snapshot.
	ErrStaleReference = errors.New("stale entity reference")
)

// Capabilities is the per-unit supported mode and fan-speed sets,
// fetched from the gateway once at startup (they are static).
type Capabilities struct {
	UnitModes  map[int][]view.Mode
	UnitSpeeds map[int][]view.Speed
}

// LoadCapabilities queries the gateway for every unit in the snapshot.
func LoadCapabilities(ctx context.Context, drv driver.Driver, snap *model.Snapshot) (Capabilities, error) {
	caps := Capabilities{
		UnitModes:  make(map[int][]view.Mode),
		UnitSpeeds: make(map[int][]view.Speed),
	}
	for _, u := range snap.Units {
		deviceModes, err := drv.SupportedUnitModes(ctx, u.ID)
		if err != nil {
			return Capabilities{}, fmt.Errorf("supported modes for unit %d: %w", u.ID, err)
		}
		modes := []view.Mode{view.ModeOff}
		for _, dm := range deviceModes {
			m := view.AbstractMode(dm, "")
			if m != "" && !containsMode(modes, m) {
				modes = append(modes, m)
			}
		}
		caps.UnitModes[u.ID] = modes

		deviceSpeeds, err := drv.SupportedUnitFanSpeeds(ctx, u.ID)
		if err != nil {
			return Capabilities{}, fmt.Errorf("supported fan speeds for unit %d: %w", u.ID, err)
		}
		var speeds []view.Speed
		for _, ds := range deviceSpeeds {
			s := view.AbstractSpeed(ds, "")
			if s != "" && !containsSpeed(speeds, s) {
				speeds = append(speeds, s)
			}
		}
		caps.UnitSpeeds[u.ID] = speeds
	}
	return caps, nil
}

func containsMode(set []view.Mode, m view.Mode) bool {
	for _, v := range set {
		if v == m {
			return true
		}
	}
	return false
}

func containsSpeed(set []view.Speed, s view.Speed) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// Dispatcher is the thin command layer between consumers and the
// gateway. All calls go through the shared driver gate; commands that
// can change unit power as a device-side side effect are followed by an
// explicit coordinator refresh.
type Dispatcher struct {
	drv   driver.Driver
	coord *coordinator.Coordinator
	reg   *controller.Registry
	caps  Capabilities
}

// New creates a dispatcher.
func New(drv driver.Driver, coord *coordinator.Coordinator, reg *controller.Registry, caps Capabilities) *Dispatcher {
	return &Dispatcher{drv: drv, coord: coord, reg: reg, caps: caps}
}

// SetUnitMode sets the abstract mode of a whole unit. ModeOff powers the
// unit down; any other mode is written and then power is re-asserted,
// because a unit with all zones closed reports itself off.
func (d *Dispatcher) SetUnitMode(ctx context.Context, unitID int, mode view.Mode) error {
	cmd := d.logger("set_unit_mode").Int("unit", unitID).Str("mode", string(mode)).Logger()

	if _, err := d.unit(unitID); err != nil {
		cmd.Warn().Err(err).Msg("Command skipped")
		return err
	}

	if mode == view.ModeOff {
		return d.SetUnitPower(ctx, unitID, false)
	}

	supported, ok := d.caps.UnitModes[unitID]
	if ok && !containsMode(supported, mode) {
		cmd.Warn().Msg("Mode not in unit's supported set")
		return fmt.Errorf("%w: mode %s for unit %d", ErrUnsupportedTransition, mode, unitID)
	}
	deviceMode, ok := view.DeviceMode(mode)
	if !ok {
		return fmt.Errorf("%w: mode %s has no device mapping", ErrUnsupportedTransition, mode)
	}

	if err := d.drv.SetUnitMode(ctx, unitID, deviceMode); err != nil {
		return err
	}
	if err := d.drv.SetUnitPower(ctx, unitID, true); err != nil {
		return err
	}
	cmd.Info().Msg("Unit mode set")

	d.refresh(ctx)
	return nil
}

// SetUnitPower powers a unit on or off and refreshes.
func (d *Dispatcher) SetUnitPower(ctx context.Context, unitID int, on bool) error {
	cmd := d.logger("set_unit_power").Int("unit", unitID).Bool("on", on).Logger()

	if _, err := d.unit(unitID); err != nil {
		cmd.Warn().Err(err).Msg("Command skipped")
		return err
	}
	if err := d.drv.SetUnitPower(ctx, unitID, on); err != nil {
		return err
	}
	cmd.Info().Msg("Unit power set")

	d.refresh(ctx)
	return nil
}

// SetUnitFanSpeed sets the fan speed of a whole unit.
func (d *Dispatcher) SetUnitFanSpeed(ctx context.Context, unitID int, speed view.Speed) error {
	cmd := d.logger("set_unit_fan_speed").Int("unit", unitID).Str("speed", string(speed)).Logger()

	if _, err := d.unit(unitID); err != nil {
		cmd.Warn().Err(err).Msg("Command skipped")
		return err
	}
	supported, ok := d.caps.UnitSpeeds[unitID]
	if ok && !containsSpeed(supported, speed) {
		cmd.Warn().Msg("Fan speed not in unit's supported set")
		return fmt.Errorf("%w: fan speed %s for unit %d", ErrUnsupportedTransition, speed, unitID)
	}
	deviceSpeed, ok := view.DeviceSpeed(speed)
	if !ok {
		return fmt.Errorf("%w: fan speed %s has no device mapping", ErrUnsupportedTransition, speed)
	}

	if err := d.drv.SetUnitFanSpeed(ctx, unitID, deviceSpeed); err != nil {
		return err
	}
	cmd.Info().Msg("Unit fan speed set")
	return nil
}

// SetZoneMode sets the abstract mode of a zone. Zones only support Off
// and FanOnly regardless of contract; anything else is rejected without
// a gateway call.
func (d *Dispatcher) SetZoneMode(ctx context.Context, zoneID int, mode view.Mode) error {
	if mode != view.ModeOff && mode != view.ModeFanOnly {
		return fmt.Errorf("%w: mode %s for zone %d", ErrUnsupportedTransition, mode, zoneID)
	}
	return d.SetZonePower(ctx, zoneID, mode == view.ModeFanOnly)
}

// SetZonePower powers a zone on or off. Turning a thermostatic zone on
// also re-asserts the owning unit's power, since the unit may have shut
// itself down while all zones were closed. Either way the result is
// refreshed immediately: zone power flips can change the unit's
// reported power autonomously.
func (d *Dispatcher) SetZonePower(ctx context.Context, zoneID int, on bool) error {
	cmd := d.logger("set_zone_power").Int("zone", zoneID).Bool("on", on).Logger()

	zone, err := d.zone(zoneID)
	if err != nil {
		cmd.Warn().Err(err).Msg("Command skipped")
		return err
	}

	if err := d.drv.SetZonePower(ctx, zoneID, on); err != nil {
		return err
	}
	if on && zone.Contract == model.ContractThermostatic {
		if err := d.drv.SetUnitPower(ctx, zone.UnitID, true); err != nil {
			return err
		}
	}
	cmd.Info().Msg("Zone power set")

	d.refresh(ctx)
	return nil
}

// SetZoneSetpoint writes the device-held setpoint of a thermostatic
// zone, clamped into the owning unit's allowed range.
func (d *Dispatcher) SetZoneSetpoint(ctx context.Context, zoneID int, temp float64) error {
	cmd := d.logger("set_zone_setpoint").Int("zone", zoneID).Float64("temp", temp).Logger()

	zone, err := d.zone(zoneID)
	if err != nil {
		cmd.Warn().Err(err).Msg("Command skipped")
		return err
	}
	if zone.Contract != model.ContractThermostatic {
		return fmt.Errorf("%w: zone %d holds no device setpoint", ErrUnsupportedTransition, zoneID)
	}

	lo, hi := view.FallbackMinSetpoint, view.FallbackMaxSetpoint
	if owner, ok := d.coord.Latest().OwnerOf(zone); ok {
		lo, hi = owner.MinSetpoint, owner.MaxSetpoint
	}
	if temp < lo {
		temp = lo
	}
	if temp > hi {
		temp = hi
	}

	if _, err := d.drv.SetZoneSetpoint(ctx, zoneID, temp); err != nil {
		return err
	}
	cmd.Info().Float64("clamped", temp).Msg("Zone setpoint set")
	return nil
}

// SetZoneAperture writes the damper aperture of a percentage zone.
// Zero aperture turns the zone off instead, matching the actuator's
// semantics; other values are quantized to 5-point steps.
func (d *Dispatcher) SetZoneAperture(ctx context.Context, zoneID int, percent int) error {
	cmd := d.logger("set_zone_aperture").Int("zone", zoneID).Int("percent", percent).Logger()

	zone, err := d.zone(zoneID)
	if err != nil {
		cmd.Warn().Err(err).Msg("Command skipped")
		return err
	}
	if zone.Contract != model.ContractPercentage {
		return fmt.Errorf("%w: zone %d is not percentage-actuated", ErrUnsupportedTransition, zoneID)
	}

	if percent <= 0 {
		return d.SetZonePower(ctx, zoneID, false)
	}
	if percent > 100 {
		percent = 100
	}
	percent = (percent + 2) / 5 * 5
	if percent == 0 {
		// 1 and 2 round up to the smallest step; quantizing them to a
		// zero command would contradict the power-off branch above.
		percent = controller.StepPercent
	}

	if _, err := d.drv.SetZoneAperture(ctx, zoneID, percent); err != nil {
		return err
	}
	cmd.Info().Int("quantized", percent).Msg("Zone aperture set")
	return nil
}

// SetZoneTarget updates the operator target of a manual-climate zone.
// The target is daemon-owned state; no gateway command exists for it.
func (d *Dispatcher) SetZoneTarget(zoneID int, target float64) error {
	if target < view.FallbackMinSetpoint {
		target = view.FallbackMinSetpoint
	}
	if target > view.FallbackMaxSetpoint {
		target = view.FallbackMaxSetpoint
	}
	if err := d.reg.SetTarget(zoneID, target); err != nil {
		return fmt.Errorf("%w: zone %d", ErrUnsupportedTransition, zoneID)
	}
	return nil
}

func (d *Dispatcher) unit(unitID int) (*model.Unit, error) {
	snap := d.coord.Latest()
	if snap == nil {
		return nil, fmt.Errorf("%w: no snapshot yet", ErrStaleReference)
	}
	u, ok := snap.Unit(unitID)
	if !ok {
		return nil, fmt.Errorf("%w: unit %d", ErrStaleReference, unitID)
	}
	return u, nil
}

func (d *Dispatcher) zone(zoneID int) (*model.Zone, error) {
	snap := d.coord.Latest()
	if snap == nil {
		return nil, fmt.Errorf("%w: no snapshot yet", ErrStaleReference)
	}
	z, ok := snap.Zone(zoneID)
	if !ok {
		return nil, fmt.Errorf("%w: zone %d", ErrStaleReference, zoneID)
	}
	return z, nil
}

// refresh re-polls after a command whose device-side effects are not
// fully known (unit power changes done autonomously by the gateway).
func (d *Dispatcher) refresh(ctx context.Context) {
	if _, err := d.coord.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Post-command refresh failed")
	}
}

func (d *Dispatcher) logger(command string) zerolog.Context {
	return log.With().Str("command", command).Str("command_id", uuid.NewString())
}
