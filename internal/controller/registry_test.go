package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozhvac/airtouchd/internal/coordinator"
	"github.com/ozhvac/airtouchd/internal/driver/sim"
	"github.com/ozhvac/airtouchd/internal/sensor"
)

const studySensor = "sensors/study"

func testGateway() *sim.Gateway {
	g := sim.New()
	g.AddUnit(sim.Unit{
		ID: 0, Name: "Living AC", Power: "On", Mode: "Cool", FanSpeed: "Auto",
		Temperature: 24.5, MinSetpoint: 16, MaxSetpoint: 30,
	})
	g.AddZone(sim.Zone{
		ID: 1, Name: "Living Room", UnitID: 0, ControlMethod: "TemperatureControl",
		Power: "On", Temperature: 23, TargetSetpoint: 22,
	})
	g.AddZone(sim.Zone{
		ID: 2, Name: "Study", UnitID: 0, ControlMethod: "PercentageControl",
		Power: "On", OpenPercent: 60,
	})
	return g
}

func testRegistry(t *testing.T, g *sim.Gateway, src sensor.Source) (*Registry, *coordinator.Coordinator) {
	t.Helper()
	coord := coordinator.New(g, time.Hour)
	reg := NewRegistry(g, coord, src, nil, map[int]string{2: studySensor}, time.Hour)
	coord.Subscribe(reg.Sync)

	_, err := coord.Refresh(context.Background())
	require.NoError(t, err)
	return reg, coord
}

func TestRegistry_SyncCreatesAndRemoves(t *testing.T) {
	g := testGateway()
	reg, coord := testRegistry(t, g, sensor.NewStaticSource())

	zc, ok := reg.Get(2)
	require.True(t, ok)
	assert.Equal(t, "Study", zc.Name)
	assert.Equal(t, studySensor, zc.SensorRef)
	assert.Equal(t, DefaultTarget, zc.Target())

	// Thermostatic and unbound zones never get a controller.
	_, ok = reg.Get(1)
	assert.False(t, ok)

	// The zone disappearing from the enumeration tears the controller down.
	snap := coord.Latest()
	require.NotNil(t, snap)
	snap2 := *snap
	snap2.Zones = nil
	reg.Sync(&snap2)

	_, ok = reg.Get(2)
	assert.False(t, ok)
}

func TestRegistry_SetTarget(t *testing.T) {
	g := testGateway()
	reg, _ := testRegistry(t, g, sensor.NewStaticSource())

	require.NoError(t, reg.SetTarget(2, 21.5))
	zc, _ := reg.Get(2)
	assert.Equal(t, 21.5, zc.Target())

	assert.ErrorIs(t, reg.SetTarget(1, 21.5), ErrNoController)
	assert.ErrorIs(t, reg.SetTarget(99, 21.5), ErrNoController)
}

func TestRegistry_AdjustIssuesAperture(t *testing.T) {
	g := testGateway()
	src := sensor.NewStaticSource()
	src.Set(studySensor, 31.0)
	reg, _ := testRegistry(t, g, src)

	before := len(g.Calls)
	reg.AdjustAll(context.Background())

	// Cooling, reading 7 above the default target of 24: blended and
	// rounded to the 5-point grid.
	require.Len(t, g.Calls, before+1)
	assert.Equal(t, "SetZoneAperture(2,55)", g.Calls[len(g.Calls)-1])

	zc, _ := reg.Get(2)
	assert.Equal(t, 55, zc.LastAperture())
}

func TestRegistry_AdjustSkipsWhenZoneOff(t *testing.T) {
	g := testGateway()
	src := sensor.NewStaticSource()
	src.Set(studySensor, 31.0)

	coord := coordinator.New(g, time.Hour)
	reg := NewRegistry(g, coord, src, nil, map[int]string{2: studySensor}, time.Hour)
	coord.Subscribe(reg.Sync)

	require.NoError(t, g.SetZonePower(context.Background(), 2, false))
	_, err := coord.Refresh(context.Background())
	require.NoError(t, err)

	before := len(g.Calls)
	reg.AdjustAll(context.Background())
	assert.Len(t, g.Calls, before, "closed zone must not be adjusted")
}

func TestRegistry_AdjustSkipsWhenUnitOff(t *testing.T) {
	g := testGateway()
	src := sensor.NewStaticSource()
	src.Set(studySensor, 31.0)

	coord := coordinator.New(g, time.Hour)
	reg := NewRegistry(g, coord, src, nil, map[int]string{2: studySensor}, time.Hour)
	coord.Subscribe(reg.Sync)

	require.NoError(t, g.SetUnitPower(context.Background(), 0, false))
	_, err := coord.Refresh(context.Background())
	require.NoError(t, err)

	before := len(g.Calls)
	reg.AdjustAll(context.Background())
	assert.Len(t, g.Calls, before, "zone under a powered-off unit must not be adjusted")
}

func TestRegistry_AdjustSkipsWhenSensorUnavailable(t *testing.T) {
	g := testGateway()
	reg, _ := testRegistry(t, g, sensor.NewStaticSource())

	before := len(g.Calls)
	reg.AdjustAll(context.Background())
	assert.Len(t, g.Calls, before, "missing reading must not produce a command")

	zc, _ := reg.Get(2)
	assert.Zero(t, zc.LastAperture())
}

func TestRegistry_AdjustDefersInFanMode(t *testing.T) {
	g := testGateway()
	src := sensor.NewStaticSource()
	src.Set(studySensor, 31.0)

	coord := coordinator.New(g, time.Hour)
	reg := NewRegistry(g, coord, src, nil, map[int]string{2: studySensor}, time.Hour)
	coord.Subscribe(reg.Sync)

	require.NoError(t, g.SetUnitMode(context.Background(), 0, "Fan"))
	_, err := coord.Refresh(context.Background())
	require.NoError(t, err)

	before := len(g.Calls)
	reg.AdjustAll(context.Background())
	assert.Len(t, g.Calls, before, "fan-only unit must leave the aperture alone")
}

func TestRegistry_RunStopsOnCancel(t *testing.T) {
	g := testGateway()
	src := sensor.NewStaticSource()
	src.Set(studySensor, 31.0)

	coord := coordinator.New(g, time.Hour)
	reg := NewRegistry(g, coord, src, nil, map[int]string{2: studySensor}, 10*time.Millisecond)
	coord.Subscribe(reg.Sync)
	_, err := coord.Refresh(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	zc, ok := reg.Get(2)
	require.True(t, ok)
	assert.Equal(t, 55, zc.LastAperture(), "adjust ticks ran before cancellation")
}

func TestRegistry_OnAdjustCallback(t *testing.T) {
	g := testGateway()
	src := sensor.NewStaticSource()
	src.Set(studySensor, 31.0)
	reg, _ := testRegistry(t, g, src)

	var gotZone, gotAperture int
	reg.OnAdjust(func(zoneID, aperture int) {
		gotZone, gotAperture = zoneID, aperture
	})

	reg.AdjustAll(context.Background())
	assert.Equal(t, 2, gotZone)
	assert.Equal(t, 55, gotAperture)
}
