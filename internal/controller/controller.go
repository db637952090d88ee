// Package controller runs the closed loop for percentage-actuated zones:
// an external temperature reading plus an operator target become a
// periodic damper aperture command.
package controller

import (
	"math"

	"github.com/ozhvac/airtouchd/internal/model"
)

// Control law constants. A zone keeps moving a minimum of air even at
// target; the blend reaches full aperture at the boundary temperatures.
const (
	MinFanSpeed = 20
	MaxFanSpeed = 100
	AutoMaxTemp = 40.0 // cooling: reading at which aperture saturates
	AutoMinTemp = 15.0 // heating: reading at which aperture saturates
	StepPercent = 5

	// DefaultTarget is used until the operator sets a target of their own.
	DefaultTarget = 24.0
)

// coolingMode reports whether the unit mode belongs to the cooling family.
func coolingMode(m model.UnitMode) bool {
	switch m {
	case model.UnitModeCool, model.UnitModeAutoCool, model.UnitModeAuto, model.UnitModeDry:
		return true
	}
	return false
}

// heatingMode reports whether the unit mode belongs to the heating family.
func heatingMode(m model.UnitMode) bool {
	return m == model.UnitModeHeat || m == model.UnitModeAutoHeat
}

// DesiredAperture computes the raw aperture for a reading and target
// under the owning unit's mode. The second return is false when the mode
// is outside both families: the controller then defers to the device
// state and must not issue a command.
func DesiredAperture(current, target float64, mode model.UnitMode) (int, bool) {
	switch {
	case coolingMode(mode):
		if current <= target {
			return MinFanSpeed, true
		}
		return blend(fraction(current-target, AutoMaxTemp-target)), true
	case heatingMode(mode):
		if current >= target {
			return MinFanSpeed, true
		}
		return blend(fraction(target-current, target-AutoMinTemp)), true
	default:
		return 0, false
	}
}

// fraction is delta/span clamped to [0,1]. A degenerate span (target at
// the boundary constant) saturates instead of dividing by zero.
func fraction(delta, span float64) float64 {
	if span <= 0 {
		return 1
	}
	f := delta / span
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func blend(f float64) int {
	return int(MinFanSpeed + f*(MaxFanSpeed-MinFanSpeed))
}

// RoundStep quantizes an aperture to the actuator's 5-point granularity
// and clamps it into the commandable range.
func RoundStep(aperture int) int {
	rounded := int(math.Round(float64(aperture)/StepPercent)) * StepPercent
	if rounded < MinFanSpeed {
		return MinFanSpeed
	}
	if rounded > MaxFanSpeed {
		return MaxFanSpeed
	}
	return rounded
}
