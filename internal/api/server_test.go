package api

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/guard/internal/engine"
	"github.com/talgya/guard/internal/params"
	"github.com/talgya/guard/internal/persistence"
	"github.com/talgya/guard/internal/world"
)

func newWorld(t *testing.T) *engine.World {
	t.Helper()
	w, err := engine.NewWorld(world.Uniform(4, 4, world.TerrainAgriculture), params.Default(), rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	return w
}

func get(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestObserver(t *testing.T) {
	w := newWorld(t)
	a := w.Index(0, 0)
	a.Polity().TransferCommunity(w.Index(1, 0))
	a.Polity().TransferCommunity(w.Index(2, 0))

	o := NewObserver(w)
	polities := o.Polities()
	require.NotEmpty(t, polities)
	assert.Equal(t, uint64(a.Polity().ID), polities[0].ID)
	assert.Equal(t, 3, polities[0].Size)
	for i := 1; i < len(polities); i++ {
		assert.GreaterOrEqual(t, polities[i-1].Size, polities[i].Size)
	}
	assert.LessOrEqual(t, len(polities), maxPolities)

	w.Step(nil)
	o.Update(w)
	assert.Equal(t, 1, o.Stats().Step)
}

func TestLiveEndpoints(t *testing.T) {
	w := newWorld(t)
	w.Step(nil)
	s := &Server{Observer: NewObserver(w)}
	h := s.Handler()

	var status struct {
		Stats engine.Stats `json:"stats"`
	}
	require.Equal(t, http.StatusOK, get(t, h, "/api/v1/status", &status))
	assert.Equal(t, 1, status.Stats.Step)
	assert.Equal(t, w.NumberOfPolities(), status.Stats.Polities)

	var polities []PolitySummary
	require.Equal(t, http.StatusOK, get(t, h, "/api/v1/polities", &polities))
	assert.NotEmpty(t, polities)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/api/v1/runs", nil))
}

func TestRunEndpoints(t *testing.T) {
	db, err := persistence.Open(persistence.DialectSQLite, filepath.Join(t.TempDir(), "api.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	run := &persistence.Run{Seed: 9, Width: 4, Height: 4, World: "generated"}
	require.NoError(t, db.CreateRun(run))
	require.NoError(t, db.SaveStepStats(run.ID, []engine.Stats{{Step: 1, Polities: 15}, {Step: 2, Polities: 14}}))
	require.NoError(t, db.SavePolitySizes(run.ID, 2, []int{2}))

	h := (&Server{DB: db}).Handler()

	var runs []persistence.Run
	require.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs", &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	var stats []engine.Stats
	require.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs/"+run.ID+"/stats", &stats))
	require.Len(t, stats, 2)
	assert.Equal(t, 14, stats[1].Polities)

	var sizes []int
	require.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs/"+run.ID+"/polity-sizes", &sizes))
	assert.Equal(t, []int{2}, sizes)

	require.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs/unknown/stats", &stats))
	assert.Empty(t, stats)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/api/v1/status", nil))
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 61, rl.RetryAfter("a"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("a"))
}

func TestRateLimitMiddleware(t *testing.T) {
	w := newWorld(t)
	h := (&Server{Observer: NewObserver(w), Limiter: NewRateLimiter(1, time.Hour)}).Handler()

	req := func(xff string) int {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
		r.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, req("10.0.0.1, 10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, req("10.0.0.1"))
	assert.Equal(t, http.StatusOK, req("10.0.0.3"))
}

func TestRateLimiterSweepsExpiredClients(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	for i := 0; i <= staleClients; i++ {
		rl.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	require.Len(t, rl.clients, staleClients+1)

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("192.0.2.1"))
	assert.Len(t, rl.clients, 1)
}

func TestRateLimitRetryAfterHeader(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	start := time.Unix(1000, 0)
	rl.now = func() time.Time { return start }
	h := (&Server{Observer: NewObserver(newWorld(t)), Limiter: rl}).Handler()

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
		require.Equal(t, want, rec.Code, "request %d", i)
		if want == http.StatusTooManyRequests {
			assert.Equal(t, "3601", rec.Header().Get("Retry-After"))
		}
	}
}
