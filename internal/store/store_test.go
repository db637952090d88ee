package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTarget_EmptyDatabase(t *testing.T) {
	db := openTestDB(t)

	_, ok, err := db.Target(1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetTarget_RoundTrip(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SetTarget(2, 22.5))
	got, ok, err := db.Target(2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 22.5, got)
}

func TestSetTarget_Replaces(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SetTarget(2, 22.5))
	require.NoError(t, db.SetTarget(2, 19.0))

	got, ok, err := db.Target(2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 19.0, got)
}

func TestDeleteTarget(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SetTarget(3, 24.0))
	require.NoError(t, db.DeleteTarget(3))

	_, ok, err := db.Target(3)
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting a missing row is not an error.
	assert.NoError(t, db.DeleteTarget(99))
}

func TestTargets_IndependentPerZone(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SetTarget(1, 20.0))
	require.NoError(t, db.SetTarget(2, 25.0))

	a, _, err := db.Target(1)
	require.NoError(t, err)
	b, _, err := db.Target(2)
	require.NoError(t, err)
	assert.Equal(t, 20.0, a)
	assert.Equal(t, 25.0, b)
}
