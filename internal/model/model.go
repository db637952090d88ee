// Package model defines the normalized device model shared by the
// coordinator, views and controllers. Values here are produced once per
// poll cycle and treated as immutable afterwards.
package model

import (
	"fmt"
	"time"
)

// PowerState is the on/off state reported by the gateway.
type PowerState string

const (
	PowerOn  PowerState = "On"
	PowerOff PowerState = "Off"
)

// UnitMode is the operating mode in the gateway's own vocabulary.
type UnitMode string

const (
	UnitModeHeat     UnitMode = "Heat"
	UnitModeCool     UnitMode = "Cool"
	UnitModeAutoHeat UnitMode = "AutoHeat"
	UnitModeAutoCool UnitMode = "AutoCool"
	UnitModeAuto     UnitMode = "Auto"
	UnitModeDry      UnitMode = "Dry"
	UnitModeFan      UnitMode = "Fan"
)

// FanSpeed is a fan speed in the gateway's own vocabulary.
type FanSpeed string

const (
	FanQuiet    FanSpeed = "Quiet"
	FanLow      FanSpeed = "Low"
	FanMedium   FanSpeed = "Medium"
	FanHigh     FanSpeed = "High"
	FanPowerful FanSpeed = "Powerful"
	FanAuto     FanSpeed = "Auto"
	FanTurbo    FanSpeed = "Turbo"
)

// Contract describes how a zone can be controlled by the device.
type Contract string

const (
	// ContractThermostatic zones hold a device-side temperature setpoint.
	ContractThermostatic Contract = "Thermostatic"
	// ContractPercentage zones only accept a damper open percentage.
	ContractPercentage Contract = "PercentageActuated"
)

// Unit is one whole air-conditioning system serving one or more zones.
type Unit struct {
	ID          int
	Name        string
	Power       PowerState
	Mode        UnitMode
	FanSpeed    FanSpeed
	Temperature *float64 // device-reported, may be absent
	MinSetpoint float64
	MaxSetpoint float64
}

// Zone is an independently controllable outlet under a unit.
type Zone struct {
	ID       int
	Name     string
	UnitID   int
	Contract Contract
	Power    PowerState

	// Thermostatic zones only.
	Temperature    *float64
	TargetSetpoint *float64

	// Percentage zones only: damper aperture, 0-100 in 5-point steps.
	OpenPercent int
}

// Snapshot is one atomically produced view of all units and zones at a
// poll instant. A snapshot is never mutated after it is committed.
type Snapshot struct {
	Version   int64
	FetchedAt time.Time
	Units     []Unit
	Zones     []Zone
}

// Unit returns the unit with the given id, if present.
func (s *Snapshot) Unit(id int) (*Unit, bool) {
	for i := range s.Units {
		if s.Units[i].ID == id {
			return &s.Units[i], true
		}
	}
	return nil, false
}

// Zone returns the zone with the given id, if present.
func (s *Snapshot) Zone(id int) (*Zone, bool) {
	for i := range s.Zones {
		if s.Zones[i].ID == id {
			return &s.Zones[i], true
		}
	}
	return nil, false
}

// OwnerOf resolves the unit a zone belongs to.
func (s *Snapshot) OwnerOf(zone *Zone) (*Unit, bool) {
	return s.Unit(zone.UnitID)
}

// Validate checks snapshot referential integrity: every zone's owning
// unit must be present in the same snapshot.
func (s *Snapshot) Validate() error {
	for i := range s.Zones {
		if _, ok := s.Unit(s.Zones[i].UnitID); !ok {
			return fmt.Errorf("zone %d references missing unit %d", s.Zones[i].ID, s.Zones[i].UnitID)
		}
	}
	return nil
}
