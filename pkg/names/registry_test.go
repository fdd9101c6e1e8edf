package names

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(globalNames ...string) (*Registry, *MemoryScope, *MemoryOwnerScope) {
	global := NewMemoryScope(globalNames...)
	owner := NewMemoryOwnerScope()
	return NewRegistry(global, owner, nil), global, owner
}

func TestReserveFreshName(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry()

	name, err := reg.Reserve(ctx, "user-1", "Benchy", ".gcode")
	require.NoError(t, err)
	assert.Equal(t, "Benchy.gcode", name)
}

func TestReserveGlobalCollision(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry("benchy.gcode")

	name, err := reg.Reserve(ctx, "user-1", "Benchy.gcode", ".gcode")
	require.NoError(t, err)
	assert.Equal(t, "Benchy_V2.gcode", name)
}

func TestReserveOwnerCollision(t *testing.T) {
	ctx := context.Background()
	reg, _, owner := newTestRegistry()
	owner.Add("user-1", "Benchy.gcode")

	name, err := reg.Reserve(ctx, "user-1", "Benchy.gcode", ".gcode")
	require.NoError(t, err)
	assert.Equal(t, "Benchy_V2.gcode", name)

	// A different owner is still blocked only by the global scope, which
	// does not hold the name here.
	name, err = reg.Reserve(ctx, "user-2", "Benchy.gcode", ".gcode")
	require.NoError(t, err)
	assert.Equal(t, "Benchy.gcode", name)
}

func TestReserveBatchVisibility(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry()

	// Two artifacts in one run asking for the same name must not be
	// assigned the same result, even though neither is committed yet.
	first, err := reg.Reserve(ctx, "user-1", "Benchy.gcode", ".gcode")
	require.NoError(t, err)
	second, err := reg.Reserve(ctx, "user-1", "Benchy.gcode", ".gcode")
	require.NoError(t, err)

	assert.Equal(t, "Benchy.gcode", first)
	assert.Equal(t, "Benchy_V2.gcode", second)

	third, err := reg.Reserve(ctx, "user-1", "Benchy.gcode", ".gcode")
	require.NoError(t, err)
	assert.Equal(t, "Benchy_V3.gcode", third)
}

func TestReserveVersionMonotonic(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry("foo_v3.gcode")

	// Resolving a collision on Foo_V3 starts probing at V4, never below.
	name, err := reg.Reserve(ctx, "user-1", "Foo_V3.gcode", ".gcode")
	require.NoError(t, err)
	assert.Equal(t, "Foo_V4.gcode", name)
}

func TestReserveSkipsTakenVersions(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry("part.gcode", "part_v2.gcode", "part_v3.gcode", "part_v5.gcode")

	// Smallest free version >= 2 wins; the gap at V4 is filled first.
	name, err := reg.Reserve(ctx, "user-1", "part.gcode", ".gcode")
	require.NoError(t, err)
	assert.Equal(t, "part_V4.gcode", name)
}

func TestReserveCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry("benchy.gcode")

	name, err := reg.Reserve(ctx, "user-1", "BENCHY.GCODE", ".gcode")
	require.NoError(t, err)
	assert.Equal(t, "BENCHY_V2.GCODE", name)
}

func TestReserveExhaustionReturnsDesired(t *testing.T) {
	ctx := context.Background()

	taken := []string{"jam.gcode"}
	for i := 2; i < 2+maxVersionProbes; i++ {
		taken = append(taken, fmt.Sprintf("jam_v%d.gcode", i))
	}
	reg, _, _ := newTestRegistry(taken...)

	// With every candidate in the probe window taken, the desired name
	// comes back unchanged so the durable unique constraint rejects it
	// loudly downstream.
	name, err := reg.Reserve(ctx, "user-1", "jam.gcode", ".gcode")
	require.NoError(t, err)
	assert.Equal(t, "jam.gcode", name)
}

func TestResetBatch(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry()

	name, err := reg.Reserve(ctx, "user-1", "Benchy.gcode", ".gcode")
	require.NoError(t, err)
	assert.Equal(t, "Benchy.gcode", name)

	reg.ResetBatch()

	name, err = reg.Reserve(ctx, "user-1", "Benchy.gcode", ".gcode")
	require.NoError(t, err)
	assert.Equal(t, "Benchy.gcode", name)
}
