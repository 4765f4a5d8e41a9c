package engine

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/guard/internal/params"
	"github.com/talgya/guard/internal/snapshot"
	"github.com/talgya/guard/internal/world"
)

func TestSnapshotRestore(t *testing.T) {
	def := world.Generate(world.SmallTestConfig())
	w := newTestWorld(t, def, params.Default(), 21)
	for i := 0; i < 30; i++ {
		w.Step(nil)
	}
	st := w.Snapshot()
	st.Header.Seed = 21

	path := filepath.Join(t.TempDir(), "world.snap")
	require.NoError(t, snapshot.Write(path, st))
	loaded, err := snapshot.Read(path)
	require.NoError(t, err)

	restored := newTestWorld(t, def, params.Default(), 1)
	require.NoError(t, restored.Restore(loaded))
	checkInvariants(t, restored)

	got := restored.Snapshot()
	got.Header.Seed = 21
	assert.Equal(t, st, got)
	assert.Equal(t, w.Stats(), restored.Stats())
	assert.Equal(t, w.NumberOfPolities(), restored.NumberOfPolities())
	assert.Equal(t, w.Paradigms().Len(), restored.Paradigms().Len())

	// Identifiers continue from where the snapshot left off.
	m := restored.Index(0, 0).Paradigm().Mutate(restored.Index(0, 0))
	assert.Equal(t, ParadigmID(st.LastParadigmID+1), m.ID)

	// Both worlds keep running on the same rng stream.
	w.rng = rand.New(rand.NewSource(5))
	restored.rng = rand.New(rand.NewSource(5))
	w.paradigms.last++
	for i := 0; i < 10; i++ {
		w.Step(nil)
		restored.Step(nil)
	}
	assert.Equal(t, w.Snapshot(), restored.Snapshot())
}

func TestRestoreRejectsMismatch(t *testing.T) {
	w := newTestWorld(t, world.Uniform(3, 2, world.TerrainAgriculture), params.Default(), 1)
	st := w.Snapshot()

	other := newTestWorld(t, world.Uniform(2, 3, world.TerrainAgriculture), params.Default(), 1)
	assert.Error(t, other.Restore(st))

	bad := w.Snapshot()
	bad.Communities[0].Paradigm = 999999
	assert.Error(t, w.Restore(bad))

	bad = w.Snapshot()
	bad.Polities = bad.Polities[1:]
	assert.Error(t, w.Restore(bad))
}
