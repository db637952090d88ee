// Package driver defines the gateway client consumed by the rest of the
// daemon. The concrete vendor transport lives behind the Driver interface;
// the rest of the system never sees wire-level details.
package driver

import (
	"context"

	"github.com/ozhvac/airtouchd/internal/model"
)

// Health is the gateway-reported status of the last state exchange.
type Health int

const (
	HealthOK Health = iota
	HealthError
)

func (h Health) String() string {
	if h == HealthOK {
		return "ok"
	}
	return "error"
}

// RawUnit is a unit as reported by the gateway. Optional fields are
// pointers: the device omits them for units it has no data for, and the
// coordinator maps absent fields to documented defaults.
type RawUnit struct {
	ID          int
	Name        string
	Power       *string // "On"/"Off", default Off
	Mode        *string // gateway mode vocabulary, default Fan
	FanSpeed    *string // gateway fan vocabulary, default Auto
	Temperature *float64
	MinSetpoint *float64 // default 16
	MaxSetpoint *float64 // default 30
}

// RawZone is a zone as reported by the gateway.
type RawZone struct {
	ID             int
	Name           string
	UnitID         int
	ControlMethod  string // "TemperatureControl" or "PercentageControl"
	Power          *string
	Temperature    *float64
	TargetSetpoint *float64
	OpenPercent    *int // default 0
}

// Driver is the vendor gateway client. The gateway exposes one logical
// session, so callers must not issue concurrent calls; wrap a Driver in a
// Gate to get that discipline for free.
type Driver interface {
	// Connect establishes the session with the gateway.
	Connect(ctx context.Context) error
	// RefreshStatus asks the gateway to exchange state and reports the
	// health of that exchange. Enumeration results are only meaningful
	// after a healthy refresh.
	RefreshStatus(ctx context.Context) (Health, error)

	ListUnits(ctx context.Context) ([]RawUnit, error)
	ListZones(ctx context.Context) ([]RawZone, error)

	SetUnitPower(ctx context.Context, unitID int, on bool) error
	SetUnitMode(ctx context.Context, unitID int, mode model.UnitMode) error
	SetUnitFanSpeed(ctx context.Context, unitID int, speed model.FanSpeed) error

	SetZonePower(ctx context.Context, zoneID int, on bool) error
	SetZoneSetpoint(ctx context.Context, zoneID int, temp float64) (RawZone, error)
	SetZoneAperture(ctx context.Context, zoneID int, percent int) (RawZone, error)

	SupportedUnitModes(ctx context.Context, unitID int) ([]model.UnitMode, error)
	SupportedUnitFanSpeeds(ctx context.Context, unitID int) ([]model.FanSpeed, error)
	SupportedZoneFanSpeeds(ctx context.Context, zoneID int) ([]model.FanSpeed, error)

	Close() error
}
