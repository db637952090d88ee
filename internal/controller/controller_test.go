package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ozhvac/airtouchd/internal/model"
)

func TestDesiredAperture(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		target   float64
		mode     model.UnitMode
		expected int
		act      bool
	}{
		{"cooling at target holds minimum", 22.0, 22.0, model.UnitModeCool, MinFanSpeed, true},
		{"cooling below target holds minimum", 20.0, 22.0, model.UnitModeCool, MinFanSpeed, true},
		{"cooling halfway to boundary", 31.0, 22.0, model.UnitModeCool, 60, true},
		{"cooling at boundary saturates", 40.0, 22.0, model.UnitModeCool, MaxFanSpeed, true},
		{"cooling past boundary clamps", 45.0, 22.0, model.UnitModeCool, MaxFanSpeed, true},
		{"auto cool follows cooling law", 31.0, 22.0, model.UnitModeAutoCool, 60, true},
		{"auto follows cooling law", 31.0, 22.0, model.UnitModeAuto, 60, true},
		{"dry follows cooling law", 31.0, 22.0, model.UnitModeDry, 60, true},

		{"heating at target holds minimum", 20.0, 20.0, model.UnitModeHeat, MinFanSpeed, true},
		{"heating above target holds minimum", 24.0, 20.0, model.UnitModeHeat, MinFanSpeed, true},
		{"heating four below", 16.0, 20.0, model.UnitModeHeat, 84, true},
		{"heating at boundary saturates", 15.0, 20.0, model.UnitModeHeat, MaxFanSpeed, true},
		{"auto heat follows heating law", 16.0, 20.0, model.UnitModeAutoHeat, 84, true},

		{"fan mode defers", 22.0, 24.0, model.UnitModeFan, 0, false},
		{"unknown mode defers", 22.0, 24.0, model.UnitMode("Mystery"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, act := DesiredAperture(tt.current, tt.target, tt.mode)
			assert.Equal(t, tt.act, act)
			if tt.act {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestDesiredAperture_DegenerateSpanSaturates(t *testing.T) {
	// Target pinned at the cooling boundary leaves a zero span; any
	// overshoot must saturate instead of dividing by zero.
	got, act := DesiredAperture(41.0, AutoMaxTemp, model.UnitModeCool)
	assert.True(t, act)
	assert.Equal(t, MaxFanSpeed, got)

	got, act = DesiredAperture(14.0, AutoMinTemp, model.UnitModeHeat)
	assert.True(t, act)
	assert.Equal(t, MaxFanSpeed, got)
}

func TestRoundStep(t *testing.T) {
	tests := []struct {
		in       int
		expected int
	}{
		{20, 20},
		{22, 20},
		{23, 25},
		{60, 60},
		{84, 85},
		{98, 100},
		{100, 100},
		{7, 20},   // below range clamps up
		{130, 100}, // above range clamps down
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, RoundStep(tt.in), "RoundStep(%d)", tt.in)
	}
}

func TestRoundStep_AlwaysCommandable(t *testing.T) {
	for in := 0; in <= 150; in++ {
		got := RoundStep(in)
		assert.GreaterOrEqual(t, got, MinFanSpeed)
		assert.LessOrEqual(t, got, MaxFanSpeed)
		assert.Zero(t, got%StepPercent, "RoundStep(%d) = %d", in, got)
	}
}
