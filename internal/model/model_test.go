package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotLookups(t *testing.T) {
	snap := &Snapshot{
		Units: []Unit{{ID: 0, Name: "AC"}},
		Zones: []Zone{{ID: 3, Name: "Study", UnitID: 0}},
	}

	u, ok := snap.Unit(0)
	require.True(t, ok)
	assert.Equal(t, "AC", u.Name)

	_, ok = snap.Unit(1)
	assert.False(t, ok)

	z, ok := snap.Zone(3)
	require.True(t, ok)
	assert.Equal(t, "Study", z.Name)

	owner, ok := snap.OwnerOf(z)
	require.True(t, ok)
	assert.Equal(t, 0, owner.ID)
}

func TestSnapshotValidate(t *testing.T) {
	ok := &Snapshot{
		Units: []Unit{{ID: 0}},
		Zones: []Zone{{ID: 0, UnitID: 0}, {ID: 1, UnitID: 0}},
	}
	assert.NoError(t, ok.Validate())

	dangling := &Snapshot{
		Units: []Unit{{ID: 0}},
		Zones: []Zone{{ID: 0, UnitID: 5}},
	}
	assert.Error(t, dangling.Validate())

	empty := &Snapshot{}
	assert.NoError(t, empty.Validate())
}
