package engine

import (
	"fmt"

	"github.com/talgya/guard/internal/social"
	"github.com/talgya/guard/internal/world"
)

// CommunityID is a community's index in the world grid (x + y*width).
type CommunityID int

// LittoralNeighbour is a littoral community reachable by sea and its
// Euclidean distance in cells. Every littoral community lists itself at 0.
type LittoralNeighbour struct {
	Neighbour *Community
	Distance  float64
}

// BattleRecord captures the polity sizes around a community's latest attack.
type BattleRecord struct {
	AttackerBefore int
	DefenderBefore int
	AttackerAfter  int
	DefenderAfter  int
	Success        bool
	Ethnocide      bool
}

// Size returns the combined polity size after the battle.
func (b BattleRecord) Size() int {
	return b.AttackerAfter + b.DefenderAfter
}

// Community is an agent occupying one grid cell.
type Community struct {
	ID        CommunityID
	Coord     world.Coord
	Terrain   world.Terrain
	Elevation float64 // km
	Period    world.Period

	UltrasocietalTraits []bool
	MilitaryTechs       []bool

	// SeaAttackDistance is the range used in this community's latest attack
	// attempt; paradigm announcements reach littoral neighbours within it.
	SeaAttackDistance float64
	LastBattle        BattleRecord

	neighbours         [world.NumDirections]*Community
	littoral           bool
	littoralNeighbours []LittoralNeighbour

	polity   *social.Polity
	paradigm *Paradigm
	agri     *Agriculture
	icono    *Iconorhythm

	w *World
}

func newCommunity(w *World, id CommunityID, cell world.Cell) *Community {
	return &Community{
		ID:        id,
		Coord:     cell.Coord,
		Terrain:   cell.Terrain,
		Elevation: cell.Elevation,
		Period:    cell.Period,
		agri:      NewAgriculture(),
		icono:     &Iconorhythm{},
		w:         w,
	}
}

func (c *Community) String() string {
	return fmt.Sprintf("Community(%d,%d %s elev=%.3fkm traits=%d techs=%d)",
		c.Coord.X, c.Coord.Y, c.Terrain, c.Elevation,
		c.TotalUltrasocietalTraits(), c.TotalMilitaryTechs())
}

// Polity returns the polity the community belongs to.
func (c *Community) Polity() *social.Polity { return c.polity }

// SetPolity records the community's polity. Called by social.Polity.
func (c *Community) SetPolity(p *social.Polity) { c.polity = p }

// UltrasocietalTraitCount implements social.Member.
func (c *Community) UltrasocietalTraitCount() int { return c.TotalUltrasocietalTraits() }

// TraitCapacity implements social.Member.
func (c *Community) TraitCapacity() int { return len(c.UltrasocietalTraits) }

// Paradigm returns the paradigm the community currently follows.
func (c *Community) Paradigm() *Paradigm { return c.paradigm }

// Agriculture returns the community's agricultural state.
func (c *Community) Agriculture() *Agriculture { return c.agri }

// Iconorhythm returns the community's comfort engine.
func (c *Community) Iconorhythm() *Iconorhythm { return c.icono }

// Comfort returns the community's current comfort in [0,1].
func (c *Community) Comfort() float64 { return c.icono.Comfort }

// Latitude returns the community's latitude in grid rows.
func (c *Community) Latitude() float64 { return float64(c.Coord.Y) }

// Neighbour returns the cardinal neighbour in direction d, or nil at the edge.
func (c *Community) Neighbour(d world.Direction) *Community { return c.neighbours[d] }

// Littoral reports whether the community borders the sea.
func (c *Community) Littoral() bool { return c.littoral }

// LittoralNeighbours returns every littoral neighbour, including the community itself.
func (c *Community) LittoralNeighbours() []LittoralNeighbour { return c.littoralNeighbours }

// LittoralNeighboursInRange returns littoral neighbours no further than distance.
func (c *Community) LittoralNeighboursInRange(distance float64) []LittoralNeighbour {
	var out []LittoralNeighbour
	for _, ln := range c.littoralNeighbours {
		if ln.Distance <= distance {
			out = append(out, ln)
		}
	}
	return out
}

// TotalUltrasocietalTraits returns the number of traits held.
func (c *Community) TotalUltrasocietalTraits() int {
	return countTrue(c.UltrasocietalTraits)
}

// TotalMilitaryTechs returns the number of military technologies held.
func (c *Community) TotalMilitaryTechs() int {
	return countTrue(c.MilitaryTechs)
}

// IsActive reports whether the community is agriculturally active at step.
func (c *Community) IsActive(step int) bool {
	return c.Period.IsActive(step)
}

// CanAttack reports whether the community may attack at step.
func (c *Community) CanAttack(step int) bool {
	return c.Terrain.PolityForming() && c.IsActive(step)
}

// latitudeModifier scales yields by the distance between the community and
// the latitude its paradigm was developed at.
func (c *Community) latitudeModifier() float64 {
	pr := c.w.params
	p := c.paradigm
	gap := c.Latitude() - p.Latitude
	if gap < 0 {
		gap = -gap
	}
	return (1 - (gap/p.MaxLatitude)*pr.LatitudeModifier) * pr.YieldMultiplier
}

// CulturalShift runs the community's agriculture and comfort engine when it is
// active, then mutates ultrasocietal traits. Comfort above 0.5 makes traits
// harder to lose.
func (c *Community) CulturalShift() {
	pr := c.w.params

	if pr.Iconorhythm && c.IsActive(c.w.step) {
		for i := 0; i < pr.IconoLoops; i++ {
			c.agri.Step(c.paradigm, c.latitudeModifier())
			c.w.belief.step(c)
		}

		loss := pr.MutationFromUltrasocietal - (c.icono.Comfort-0.5)*pr.MutationFromUltrasocietal
		c.mutateTraits(pr.MutationToUltrasocietal, loss)
		return
	}
	c.mutateTraits(pr.MutationToUltrasocietal, pr.MutationFromUltrasocietal)
}

func (c *Community) mutateTraits(gain, loss float64) {
	rng := c.w.rng
	for i, held := range c.UltrasocietalTraits {
		if !held {
			if gain > rng.Float64() {
				c.UltrasocietalTraits[i] = true
			}
		} else if loss > rng.Float64() {
			c.UltrasocietalTraits[i] = false
		}
	}
}

func countTrue(v []bool) int {
	n := 0
	for _, b := range v {
		if b {
			n++
		}
	}
	return n
}
