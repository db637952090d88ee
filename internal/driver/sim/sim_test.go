package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoPowerOff(t *testing.T) {
	ctx := context.Background()
	g := New()
	g.AddUnit(Unit{ID: 0, Name: "AC", Power: "On", Mode: "Cool"})
	g.AddZone(Zone{ID: 0, UnitID: 0, ControlMethod: "PercentageControl", Power: "On"})
	g.AddZone(Zone{ID: 1, UnitID: 0, ControlMethod: "PercentageControl", Power: "On"})

	// One zone closing leaves the unit running.
	require.NoError(t, g.SetZonePower(ctx, 0, false))
	units, err := g.ListUnits(ctx)
	require.NoError(t, err)
	assert.Equal(t, "On", *units[0].Power)

	// The last zone closing shuts the unit down on its own.
	require.NoError(t, g.SetZonePower(ctx, 1, false))
	units, err = g.ListUnits(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Off", *units[0].Power)
}

func TestListOrderIsStable(t *testing.T) {
	ctx := context.Background()
	g := New()
	g.AddUnit(Unit{ID: 2, Name: "B"})
	g.AddUnit(Unit{ID: 0, Name: "A"})
	g.AddZone(Zone{ID: 5, UnitID: 0})
	g.AddZone(Zone{ID: 1, UnitID: 0})

	units, err := g.ListUnits(ctx)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, 0, units[0].ID)
	assert.Equal(t, 2, units[1].ID)

	zones, err := g.ListZones(ctx)
	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, 1, zones[0].ID)
	assert.Equal(t, 5, zones[1].ID)
}

func TestNewDemo_Consistent(t *testing.T) {
	ctx := context.Background()
	g := NewDemo()

	units, err := g.ListUnits(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, units)

	zones, err := g.ListZones(ctx)
	require.NoError(t, err)
	for _, z := range zones {
		found := false
		for _, u := range units {
			if u.ID == z.UnitID {
				found = true
			}
		}
		assert.True(t, found, "zone %d references unit %d", z.ID, z.UnitID)
	}
}
