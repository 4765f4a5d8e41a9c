// Package engine is the per-step simulation core: a grid of communities that
// absorb one another by conquest while their agricultural belief systems
// ("paradigms") spread between neighbours.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/guard/internal/params"
	"github.com/talgya/guard/internal/social"
	"github.com/talgya/guard/internal/world"
)

// World owns the grid of communities and the polities they form, and drives
// the attack → cultural shift → disintegration cycle.
type World struct {
	Width  int
	Height int

	params *params.Parameters
	rng    *rand.Rand

	communities []*Community
	polities    []*social.Polity
	polityIDs   social.IDSource
	paradigms   *Registry
	step        int

	// politySizes records the max size of every polity at disintegration.
	politySizes []int

	attack    attackStrategy
	belief    beliefModel
	seedTechs techSeeder
}

// NewWorld builds a world from a definition. The neighbour and littoral
// topology is computed once here; the world is then Reset. All randomness
// is drawn from rng.
func NewWorld(def *world.Definition, p *params.Parameters, rng *rand.Rand) (*World, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}
	if def.Width < 1 || def.Height < 1 || len(def.Cells) != def.Width*def.Height {
		return nil, fmt.Errorf("world definition: %dx%d with %d cells", def.Width, def.Height, len(def.Cells))
	}

	w := &World{
		Width:     def.Width,
		Height:    def.Height,
		params:    p,
		rng:       rng,
		attack:    newAttackStrategy(p.AttackMethod()),
		belief:    newBeliefModel(p.Contagion()),
		seedTechs: newTechSeeder(p.TechSeed()),
	}
	w.paradigms = newRegistry(w)

	w.communities = make([]*Community, len(def.Cells))
	for i, cell := range def.Cells {
		w.communities[i] = newCommunity(w, CommunityID(i), cell)
	}

	w.setNeighbours()
	if p.SeaAttacks {
		w.setLittoralCommunities()
		w.setLittoralNeighbours()
	}

	w.Reset()
	return w, nil
}

func (w *World) String() string {
	return fmt.Sprintf("World(%dx%d, communities=%d, polities=%d, step=%d)",
		w.Width, w.Height, len(w.communities), len(w.polities), w.step)
}

// Params returns the world's parameter set.
func (w *World) Params() *params.Parameters { return w.params }

// StepNumber returns the number of completed steps since the last reset.
func (w *World) StepNumber() int { return w.step }

// Year returns the calendar year of the current step.
func (w *World) Year() int { return world.Year(w.step) }

// Communities returns every community in grid order.
func (w *World) Communities() []*Community { return w.communities }

// Polities returns the live polities.
func (w *World) Polities() []*social.Polity { return w.polities }

// NumberOfPolities returns the number of live polities.
func (w *World) NumberOfPolities() int { return len(w.polities) }

// Paradigms returns the paradigm registry.
func (w *World) Paradigms() *Registry { return w.paradigms }

// PolitySizes returns the max sizes recorded at each disintegration so far.
func (w *World) PolitySizes() []int { return w.politySizes }

// Index returns the community at (x, y), or nil outside the grid.
func (w *World) Index(x, y int) *Community {
	c := world.Coord{X: x, Y: y}
	if !world.InBounds(c, w.Width, w.Height) {
		return nil
	}
	return w.communities[world.Index(c, w.Width)]
}

func (w *World) community(id CommunityID) *Community {
	if id < 0 || int(id) >= len(w.communities) {
		return nil
	}
	return w.communities[id]
}

// SeaAttackDistance returns the maximum sea attack range at the current step.
func (w *World) SeaAttackDistance() float64 {
	return w.params.BaseSeaAttackDistance + float64(w.step)*w.params.SeaAttackIncrement
}

func (w *World) setNeighbours() {
	for _, c := range w.communities {
		for _, d := range world.Directions {
			n := c.Coord.Neighbor(d)
			c.neighbours[d] = w.Index(n.X, n.Y)
		}
	}
}

// setLittoralCommunities flags polity-forming communities with a sea neighbour.
func (w *World) setLittoralCommunities() {
	for _, c := range w.communities {
		if !c.Terrain.LittoralEligible() {
			continue
		}
		for _, n := range c.neighbours {
			if n != nil && n.Terrain == world.TerrainSea {
				c.littoral = true
				break
			}
		}
	}
}

// setLittoralNeighbours links every pair of littoral communities with their
// Euclidean distance. Each littoral community also lists itself at distance 0.
func (w *World) setLittoralNeighbours() {
	var littoral []*Community
	for _, c := range w.communities {
		if c.littoral {
			littoral = append(littoral, c)
			c.littoralNeighbours = append(c.littoralNeighbours, LittoralNeighbour{Neighbour: c})
		}
	}
	for i := 0; i < len(littoral)-1; i++ {
		a := littoral[i]
		for j := i + 1; j < len(littoral); j++ {
			b := littoral[j]
			d := world.Distance(a.Coord, b.Coord)
			a.littoralNeighbours = append(a.littoralNeighbours, LittoralNeighbour{Neighbour: b, Distance: d})
			b.littoralNeighbours = append(b.littoralNeighbours, LittoralNeighbour{Neighbour: a, Distance: d})
		}
	}
}

// Reset returns the world to step 0. Every community gets fresh cultural
// state and forms its own polity.
// The topology is kept.
func (w *World) Reset() {
	w.step = 0
	w.politySizes = nil
	w.paradigms.reset()

	pr := w.params
	for _, c := range w.communities {
		c.paradigm = nil
		w.paradigms.Adopt(c, w.paradigms.create(c))
		c.icono.Comfort = w.rng.Float64()
		c.icono.clearInbox()
		c.agri = NewAgriculture()
		c.SeaAttackDistance = 0
		c.LastBattle = BattleRecord{}

		c.UltrasocietalTraits = make([]bool, pr.NUltrasocietalTraits)
		c.MilitaryTechs = w.seedTechs(w.rng, c.Terrain, pr)
	}

	w.polities = make([]*social.Polity, 0, len(w.communities))
	for _, c := range w.communities {
		w.polities = append(w.polities, social.NewPolity(&w.polityIDs, c))
	}
}

// Step advances the simulation by one step: attacks, then cultural shift,
// then disintegration. cb, if non-nil, sees every attack target.
func (w *World) Step(cb AttackCallback) {
	w.attackPass(cb)
	w.culturalShiftPass()
	w.disintegrationPass()

	w.step++

	for _, p := range w.polities {
		p.UpdateMaxSize()
	}

	slog.Debug("step complete",
		"step", w.step,
		"year", w.Year(),
		"polities", len(w.polities),
		"paradigms", w.paradigms.Len(),
	)
}

// attackPass lets every eligible community attack, in a fresh random order
// each step.
func (w *World) attackPass(cb AttackCallback) {
	seaDistance := w.SeaAttackDistance()
	for _, idx := range w.rng.Perm(len(w.communities)) {
		c := w.communities[idx]
		if c.CanAttack(w.step) {
			c.AttemptAttack(w.step, seaDistance, cb)
		}
	}
	w.pruneEmptyPolities()
}

func (w *World) culturalShiftPass() {
	for _, c := range w.communities {
		if c.Terrain.PolityForming() {
			c.CulturalShift()
		}
	}
}

func (w *World) disintegrationPass() {
	var fresh []*social.Polity
	for _, p := range w.polities {
		if p.Size() < 2 {
			continue
		}
		if p.DisintegrateProbability(w.params) > w.rng.Float64() {
			w.politySizes = append(w.politySizes, p.MaxSize)
			slog.Debug("polity disintegrated", "polity", p.ID, "size", p.Size(), "max_size", p.MaxSize, "step", w.step)
			fresh = append(fresh, p.Disintegrate(&w.polityIDs)...)
		}
	}
	w.pruneEmptyPolities()
	w.polities = append(w.polities, fresh...)
}

func (w *World) pruneEmptyPolities() {
	kept := w.polities[:0]
	for _, p := range w.polities {
		if p.Size() != 0 {
			kept = append(kept, p)
		}
	}
	for i := len(kept); i < len(w.polities); i++ {
		w.polities[i] = nil
	}
	w.polities = kept
}

// End appends the max size of every live polity to the disintegration record
// and returns the full record.
func (w *World) End() []int {
	for _, p := range w.polities {
		w.politySizes = append(w.politySizes, p.MaxSize)
	}
	return w.politySizes
}

// techSeeder returns the initial military technology vector for a community.
type techSeeder func(rng *rand.Rand, t world.Terrain, pr *params.Parameters) []bool

func newTechSeeder(mode params.TechSeed) techSeeder {
	if mode == params.TechSeedUniform {
		return seedTechsUniform
	}
	return seedTechsSteppes
}

// seedTechsSteppes gives steppe communities every technology.
func seedTechsSteppes(_ *rand.Rand, t world.Terrain, pr *params.Parameters) []bool {
	return filled(pr.NMilitaryTechs, t == world.TerrainSteppe)
}

// seedTechsUniform gives any polity-forming community every technology with a
// fixed probability, matching the steppe share of the reference map.
func seedTechsUniform(rng *rand.Rand, t world.Terrain, pr *params.Parameters) []bool {
	if rng.Float64() < pr.UniformTechSeedProbability {
		return filled(pr.NMilitaryTechs, t.PolityForming())
	}
	return filled(pr.NMilitaryTechs, false)
}

func filled(n int, v bool) []bool {
	out := make([]bool, n)
	if v {
		for i := range out {
			out[i] = true
		}
	}
	return out
}
