package engine

import (
	"github.com/talgya/guard/internal/params"
	"github.com/talgya/guard/internal/world"
)

// comfortEpsilon keeps attack power positive for a community with no comfort.
const comfortEpsilon = 0.001

// AttackCallback is invoked with the target whenever an attack is made.
type AttackCallback func(target *Community)

// AttackPower is the polity's power scaled by the community's comfort.
func (c *Community) AttackPower() float64 {
	return c.polity.AttackPower(c.w.params) * (c.icono.Comfort + comfortEpsilon) * 2
}

// DefencePower is the polity's power plus an elevation bonus on land.
func (c *Community) DefencePower(sea bool) float64 {
	power := c.polity.AttackPower(c.w.params)
	if !sea {
		power += c.w.params.ElevationDefenceCoefficient * c.Elevation
	}
	return power
}

// SuccessProbability returns the chance an attack on target succeeds,
// floored at zero.
func (c *Community) SuccessProbability(target *Community, sea bool) float64 {
	attacker := c.AttackPower()
	defender := target.DefencePower(sea)
	success := (attacker - defender) / (attacker + defender)
	if success < 0 {
		return 0
	}
	return success
}

// EthnocideProbability rises with the attacker's military technology and
// falls with the target's elevation. Clamped to [0,1].
func (c *Community) EthnocideProbability(target *Community) float64 {
	pr := c.w.params
	prob := pr.EthnocideMin +
		(pr.EthnocideMax-pr.EthnocideMin)*float64(c.TotalMilitaryTechs())/float64(pr.NMilitaryTechs) -
		pr.EthnocideElevationCoefficient*target.Elevation
	return clamp01(prob)
}

// Attack conducts an attack on target. On success the target joins the
// attacker's polity and may suffer ethnocide.
func (c *Community) Attack(target *Community, sea bool) {
	c.attackWith(target, sea, c.SuccessProbability(target, sea))
}

func (c *Community) attackWith(target *Community, sea bool, probability float64) {
	rng := c.w.rng
	rec := BattleRecord{
		AttackerBefore: c.polity.Size(),
		DefenderBefore: target.polity.Size(),
	}

	if probability > rng.Float64() {
		rec.Success = true
		c.polity.TransferCommunity(target)

		if c.EthnocideProbability(target) > rng.Float64() {
			rec.Ethnocide = true
			copy(target.UltrasocietalTraits, c.UltrasocietalTraits)
			if c.w.params.SpreadParadigmOnEthnocide {
				c.w.paradigms.Adopt(target, c.paradigm)
			}
		}
	}

	rec.AttackerAfter = c.polity.Size()
	rec.DefenderAfter = target.polity.Size()
	c.LastBattle = rec
}

// AttemptAttack picks a target with the configured strategy and attacks it.
// Military technology diffusion is attempted whenever a target was found,
// whether or not an attack took place.
func (c *Community) AttemptAttack(step int, seaDistance float64, cb AttackCallback) {
	c.SeaAttackDistance = seaDistance

	target, sea, proceed, ok := c.w.attack.selectTarget(c, step, seaDistance)
	if !ok {
		return
	}
	if proceed {
		c.Attack(target, sea)
		if cb != nil {
			cb(target)
		}
	}
	c.diffuseMilitaryTechTo(target)
}

// diffuseMilitaryTechTo picks one technology at random and, if c has it,
// shares it with target with the configured probability.
func (c *Community) diffuseMilitaryTechTo(target *Community) {
	pr := c.w.params
	rng := c.w.rng
	tech := rng.Intn(pr.NMilitaryTechs)
	if c.MilitaryTechs[tech] && pr.MilitaryTechSpreadProbability > rng.Float64() {
		target.MilitaryTechs[tech] = true
	}
}

// attackStrategy chooses an attack target. ok is false when the turn is
// skipped entirely; proceed is false when only technology diffuses.
type attackStrategy interface {
	selectTarget(c *Community, step int, seaDistance float64) (target *Community, sea, proceed, ok bool)
}

func newAttackStrategy(m params.AttackMethod) attackStrategy {
	if m == params.AttackEntropyMaximisation {
		return entropyAttack{}
	}
	return uniformAttack{}
}

// uniformAttack attacks each cardinal direction with probability 1/4.
type uniformAttack struct{}

func (uniformAttack) selectTarget(c *Community, step int, seaDistance float64) (*Community, bool, bool, bool) {
	rng := c.w.rng
	target := c.neighbours[world.Directions[rng.Intn(world.NumDirections)]]
	if target == nil {
		return nil, false, false, false
	}

	sea := false
	if target.Terrain == world.TerrainSea {
		if !c.w.params.SeaAttacks {
			return nil, false, false, false
		}
		inRange := c.LittoralNeighboursInRange(seaDistance)
		if len(inRange) == 0 {
			return nil, false, false, false
		}
		target = inRange[rng.Intn(len(inRange))].Neighbour
		sea = true
	}

	if !target.Terrain.PolityForming() || !target.IsActive(step) {
		return nil, false, false, false
	}
	return target, sea, target.polity != c.polity, true
}

// entropyAttack prefers weak targets: each candidate is weighted by the
// inverse of its attack power.
type entropyAttack struct{}

func (entropyAttack) selectTarget(c *Community, step int, seaDistance float64) (*Community, bool, bool, bool) {
	var candidates []*Community
	for _, n := range c.neighbours {
		if n == nil || !n.Terrain.PolityForming() || !n.IsActive(step) || n.polity == c.polity {
			continue
		}
		candidates = append(candidates, n)
	}
	land := len(candidates)
	if c.w.params.SeaAttacks {
		for _, ln := range c.LittoralNeighboursInRange(seaDistance) {
			candidates = append(candidates, ln.Neighbour)
		}
	}
	if len(candidates) == 0 {
		return nil, false, false, false
	}

	weights := make([]float64, len(candidates))
	for i, n := range candidates {
		weights[i] = 1 / n.AttackPower()
	}
	idx := weightedChoice(c.w.rng.Float64(), weights)
	return candidates[idx], idx >= land, true, true
}

// weightedChoice maps u in [0,1) onto an index drawn proportionally to weights.
func weightedChoice(u float64, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	target := u * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if target < acc {
			return i
		}
	}
	return len(weights) - 1
}
