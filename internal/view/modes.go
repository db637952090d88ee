// Package view derives the externally visible state of units and zones
// from a snapshot. Everything in this package is a pure function: no
// driver calls, no caching past the snapshot handed in.
package view

import "github.com/ozhvac/airtouchd/internal/model"

// Mode is the abstract operating mode exposed to consumers.
type Mode string

const (
	ModeOff     Mode = "off"
	ModeHeat    Mode = "heat"
	ModeCool    Mode = "cool"
	ModeAuto    Mode = "auto"
	ModeDry     Mode = "dry"
	ModeFanOnly Mode = "fan_only"
)

// Speed is the abstract fan speed exposed to consumers.
type Speed string

const (
	SpeedDiffuse Speed = "diffuse"
	SpeedLow     Speed = "low"
	SpeedMedium  Speed = "medium"
	SpeedHigh    Speed = "high"
	SpeedFocus   Speed = "focus"
	SpeedAuto    Speed = "auto"
	SpeedTurbo   Speed = "turbo"
)

// The gateway reports either AutoHeat or AutoCool while in auto; both
// collapse to the abstract auto mode.
var deviceToMode = map[model.UnitMode]Mode{
	model.UnitModeHeat:     ModeHeat,
	model.UnitModeCool:     ModeCool,
	model.UnitModeAutoHeat: ModeAuto,
	model.UnitModeAutoCool: ModeAuto,
	model.UnitModeAuto:     ModeAuto,
	model.UnitModeDry:      ModeDry,
	model.UnitModeFan:      ModeFanOnly,
}

var modeToDevice = map[Mode]model.UnitMode{
	ModeHeat:    model.UnitModeHeat,
	ModeCool:    model.UnitModeCool,
	ModeAuto:    model.UnitModeAuto,
	ModeDry:     model.UnitModeDry,
	ModeFanOnly: model.UnitModeFan,
}

var deviceToSpeed = map[model.FanSpeed]Speed{
	model.FanQuiet:    SpeedDiffuse,
	model.FanLow:      SpeedLow,
	model.FanMedium:   SpeedMedium,
	model.FanHigh:     SpeedHigh,
	model.FanPowerful: SpeedFocus,
	model.FanAuto:     SpeedAuto,
	model.FanTurbo:    SpeedTurbo,
}

var speedToDevice = map[Speed]model.FanSpeed{
	SpeedDiffuse: model.FanQuiet,
	SpeedLow:     model.FanLow,
	SpeedMedium:  model.FanMedium,
	SpeedHigh:    model.FanHigh,
	SpeedFocus:   model.FanPowerful,
	SpeedAuto:    model.FanAuto,
	SpeedTurbo:   model.FanTurbo,
}

// AbstractMode maps a device mode to its abstract mode. Unknown device
// modes map to the fallback instead of crashing.
func AbstractMode(m model.UnitMode, fallback Mode) Mode {
	if mapped, ok := deviceToMode[m]; ok {
		return mapped
	}
	return fallback
}

// DeviceMode maps an abstract mode back to the device vocabulary.
// ModeOff has no device mode: powering off is a separate command.
func DeviceMode(m Mode) (model.UnitMode, bool) {
	mapped, ok := modeToDevice[m]
	return mapped, ok
}

// AbstractSpeed maps a device fan speed to its abstract speed, falling
// back when the gateway reports a speed outside the fixed table.
func AbstractSpeed(s model.FanSpeed, fallback Speed) Speed {
	if mapped, ok := deviceToSpeed[s]; ok {
		return mapped
	}
	return fallback
}

// DeviceSpeed maps an abstract fan speed back to the device vocabulary.
func DeviceSpeed(s Speed) (model.FanSpeed, bool) {
	mapped, ok := speedToDevice[s]
	return mapped, ok
}

// UnitModes is the full abstract mode set a whole unit supports.
func UnitModes() []Mode {
	return []Mode{ModeOff, ModeHeat, ModeCool, ModeAuto, ModeDry, ModeFanOnly}
}

// ZoneModes is the abstract mode set for thermostatic and manual-climate
// zones: a zone cannot select a thermal mode of its own.
func ZoneModes() []Mode {
	return []Mode{ModeOff, ModeFanOnly}
}
