package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/guard/internal/engine"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "guard.sqlite")
	db, err := Open(DialectSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	_, err := Open("oracle", "x")
	assert.Error(t, err)

	_, err = Open(DialectPostgres, "")
	assert.Error(t, err)
}

func TestRuns(t *testing.T) {
	db, _ := openTestDB(t)
	assert.Equal(t, DialectSQLite, db.Dialect())

	first := &Run{Seed: 42, Width: 10, Height: 5, World: "generated", Params: "icono: true\n"}
	require.NoError(t, db.CreateRun(first))
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second := &Run{
		ID:        "fixed",
		CreatedAt: first.CreatedAt.Add(time.Second),
		Seed:      -7,
		Width:     3,
		Height:    3,
		World:     "small.yaml",
	}
	require.NoError(t, db.CreateRun(second))
	require.NoError(t, db.UpdateRunSteps("fixed", 120))

	runs, err := db.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first.ID, runs[0].ID)
	assert.True(t, first.CreatedAt.Equal(runs[0].CreatedAt))
	assert.Equal(t, "icono: true\n", runs[0].Params)
	assert.Equal(t, "fixed", runs[1].ID)
	assert.Equal(t, int64(-7), runs[1].Seed)
	assert.Equal(t, 120, runs[1].Steps)

	assert.Error(t, db.CreateRun(&Run{ID: "fixed"}))
}

func TestStepStats(t *testing.T) {
	db, _ := openTestDB(t)

	stats := []engine.Stats{
		{Step: 2, Year: -1496, Polities: 40, LargestPolity: 3, MultiPolities: 5, Paradigms: 50, MeanComfort: 0.5, MeanYield: 2.25},
		{Step: 1, Year: -1498, Polities: 48, LargestPolity: 2, MultiPolities: 1, Paradigms: 50, MeanComfort: 0.4, MeanTraits: 0.01},
	}
	require.NoError(t, db.SaveStepStats("run", stats))
	require.NoError(t, db.SaveStepStats("run", nil))
	require.NoError(t, db.SaveStepStats("other", stats[:1]))

	got, err := db.StepStats("run")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, stats[1], got[0])
	assert.Equal(t, stats[0], got[1])

	// Steps are unique per run.
	assert.Error(t, db.SaveStepStats("run", stats[:1]))

	got, err = db.StepStats("missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPolitySizes(t *testing.T) {
	db, path := openTestDB(t)

	require.NoError(t, db.SavePolitySizes("run", 10, []int{4, 2}))
	require.NoError(t, db.SavePolitySizes("run", 10, []int{7}))
	require.NoError(t, db.SavePolitySizes("run", 3, []int{1}))
	require.NoError(t, db.SavePolitySizes("run", 20, nil))

	sizes, err := db.PolitySizes("run")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 2, 7}, sizes)

	// Data survives reopening, and the schema migration is repeatable.
	require.NoError(t, db.Close())
	db2, err := Open(DialectSQLite, path)
	require.NoError(t, err)
	defer db2.Close()
	sizes, err = db2.PolitySizes("run")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 2, 7}, sizes)
}
