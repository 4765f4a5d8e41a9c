package api

import (
	"sort"
	"sync"

	"github.com/talgya/guard/internal/engine"
)

// maxPolities caps the polity list kept for the API.
const maxPolities = 25

// PolitySummary describes one live polity.
type PolitySummary struct {
	ID         uint64  `json:"id"`
	Size       int     `json:"size"`
	MaxSize    int     `json:"max_size"`
	MeanTraits float64 `json:"mean_traits"`
}

// Observer holds a copy of the latest world state for concurrent readers.
// Update is called from the simulation goroutine.
type Observer struct {
	mu       sync.RWMutex
	stats    engine.Stats
	polities []PolitySummary
	records  int
}

// NewObserver returns an observer primed with w's current state.
func NewObserver(w *engine.World) *Observer {
	o := &Observer{}
	o.Update(w)
	return o
}

// Update copies the world's statistics and largest polities.
func (o *Observer) Update(w *engine.World) {
	stats := w.Stats()

	polities := make([]PolitySummary, 0, len(w.Polities()))
	for _, p := range w.Polities() {
		polities = append(polities, PolitySummary{
			ID:         uint64(p.ID),
			Size:       p.Size(),
			MaxSize:    p.MaxSize,
			MeanTraits: p.MeanUltrasocietalTraits(),
		})
	}
	sort.Slice(polities, func(i, j int) bool {
		if polities[i].Size != polities[j].Size {
			return polities[i].Size > polities[j].Size
		}
		return polities[i].ID < polities[j].ID
	})
	if len(polities) > maxPolities {
		polities = polities[:maxPolities]
	}

	o.mu.Lock()
	o.stats = stats
	o.polities = polities
	o.records = len(w.PolitySizes())
	o.mu.Unlock()
}

// Stats returns the latest statistics.
func (o *Observer) Stats() engine.Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stats
}

// Polities returns the largest polities, biggest first.
func (o *Observer) Polities() []PolitySummary {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]PolitySummary, len(o.polities))
	copy(out, o.polities)
	return out
}

// SizeRecords returns the number of polity sizes recorded so far.
func (o *Observer) SizeRecords() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.records
}
