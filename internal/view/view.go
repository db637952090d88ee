package view

import (
	"errors"
	"fmt"

	"github.com/ozhvac/airtouchd/internal/model"
)

// Setpoint bounds used when the owning unit cannot be resolved, and for
// manual-climate zones whose target is not device-held.
const (
	FallbackMinSetpoint = 16.0
	FallbackMaxSetpoint = 30.0
)

// ErrNotFound is returned when a projection addresses a unit or zone
// that is not part of the snapshot.
var ErrNotFound = errors.New("entity not in snapshot")

// UnitView is the whole-unit climate projection.
type UnitView struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Mode        Mode      `json:"mode"`
	Modes       []Mode    `json:"modes"`
	FanSpeed    Speed     `json:"fan_speed"`
	Temperature *float64  `json:"temperature,omitempty"`
	MinSetpoint float64   `json:"min_setpoint"`
	MaxSetpoint float64   `json:"max_setpoint"`
}

// ThermoZoneView is the projection of a thermostatic zone: binary mode,
// device-held setpoint bounded by the owning unit.
type ThermoZoneView struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Mode        Mode     `json:"mode"`
	Modes       []Mode   `json:"modes"`
	Temperature *float64 `json:"temperature,omitempty"`
	Setpoint    *float64 `json:"setpoint,omitempty"`
	MinSetpoint float64  `json:"min_setpoint"`
	MaxSetpoint float64  `json:"max_setpoint"`
}

// ActuatorView is the plain projection of a percentage zone: power plus
// aperture, no thermal semantics.
type ActuatorView struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	On          bool   `json:"on"`
	OpenPercent int    `json:"open_percent"`
	StepPercent int    `json:"step_percent"`
}

// ManualZoneView is the synthesized climate projection of a percentage
// zone with a bound external sensor. Target temperature is controller
// state, not device state; Temperature is the external reading.
type ManualZoneView struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Mode        Mode     `json:"mode"`
	Modes       []Mode   `json:"modes"`
	Temperature *float64 `json:"temperature,omitempty"`
	Target      float64  `json:"target"`
	MinSetpoint float64  `json:"min_setpoint"`
	MaxSetpoint float64  `json:"max_setpoint"`
	OpenPercent int      `json:"open_percent"`
}

// ForUnit projects the whole-unit view.
func ForUnit(snap *model.Snapshot, unitID int) (UnitView, error) {
	if snap == nil {
		return UnitView{}, ErrNotFound
	}
	u, ok := snap.Unit(unitID)
	if !ok {
		return UnitView{}, fmt.Errorf("%w: unit %d", ErrNotFound, unitID)
	}

	mode := ModeOff
	if u.Power == model.PowerOn {
		mode = AbstractMode(u.Mode, ModeOff)
	}

	return UnitView{
		ID:          u.ID,
		Name:        u.Name,
		Mode:        mode,
		Modes:       UnitModes(),
		FanSpeed:    AbstractSpeed(u.FanSpeed, SpeedAuto),
		Temperature: u.Temperature,
		MinSetpoint: u.MinSetpoint,
		MaxSetpoint: u.MaxSetpoint,
	}, nil
}

// ForThermoZone projects a thermostatic zone. Setpoint bounds come from
// the owning unit, falling back to 16/30 when the lookup fails.
func ForThermoZone(snap *model.Snapshot, zoneID int) (ThermoZoneView, error) {
	z, err := zoneWithContract(snap, zoneID, model.ContractThermostatic)
	if err != nil {
		return ThermoZoneView{}, err
	}

	lo, hi := FallbackMinSetpoint, FallbackMaxSetpoint
	if owner, ok := snap.OwnerOf(z); ok {
		lo, hi = owner.MinSetpoint, owner.MaxSetpoint
	}

	return ThermoZoneView{
		ID:          z.ID,
		Name:        z.Name,
		Mode:        zoneMode(z.Power),
		Modes:       ZoneModes(),
		Temperature: z.Temperature,
		Setpoint:    z.TargetSetpoint,
		MinSetpoint: lo,
		MaxSetpoint: hi,
	}, nil
}

// ForActuator projects a percentage zone as a plain actuator.
func ForActuator(snap *model.Snapshot, zoneID int) (ActuatorView, error) {
	z, err := zoneWithContract(snap, zoneID, model.ContractPercentage)
	if err != nil {
		return ActuatorView{}, err
	}
	return ActuatorView{
		ID:          z.ID,
		Name:        z.Name,
		On:          z.Power == model.PowerOn,
		OpenPercent: z.OpenPercent,
		StepPercent: 5,
	}, nil
}

// ForManualZone projects a percentage zone as a manual climate view.
// The reading comes from the bound external sensor (nil when the sensor
// is unavailable) and target is the operator-owned controller target.
func ForManualZone(snap *model.Snapshot, zoneID int, reading *float64, target float64) (ManualZoneView, error) {
	z, err := zoneWithContract(snap, zoneID, model.ContractPercentage)
	if err != nil {
		return ManualZoneView{}, err
	}
	return ManualZoneView{
		ID:          z.ID,
		Name:        z.Name,
		Mode:        zoneMode(z.Power),
		Modes:       ZoneModes(),
		Temperature: reading,
		Target:      target,
		MinSetpoint: FallbackMinSetpoint,
		MaxSetpoint: FallbackMaxSetpoint,
		OpenPercent: z.OpenPercent,
	}, nil
}

func zoneWithContract(snap *model.Snapshot, zoneID int, want model.Contract) (*model.Zone, error) {
	if snap == nil {
		return nil, ErrNotFound
	}
	z, ok := snap.Zone(zoneID)
	if !ok {
		return nil, fmt.Errorf("%w: zone %d", ErrNotFound, zoneID)
	}
	if z.Contract != want {
		return nil, fmt.Errorf("%w: zone %d has contract %s", ErrNotFound, zoneID, z.Contract)
	}
	return z, nil
}

// zoneMode is the binary operating state of any zone shape: a zone is
// either off or moving air, never in a thermal mode of its own.
func zoneMode(p model.PowerState) Mode {
	if p == model.PowerOn {
		return ModeFanOnly
	}
	return ModeOff
}
