package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/guard/internal/params"
	"github.com/talgya/guard/internal/world"
)

func TestSuccessProbability(t *testing.T) {
	def := world.Uniform(2, 1, world.TerrainAgriculture)
	def.Cells[1].Elevation = 2
	w := newTestWorld(t, def, params.Default(), 1)
	a, b := w.Index(0, 0), w.Index(1, 0)

	a.icono.Comfort = 1
	b.icono.Comfort = 0
	attack := 1 * (1 + comfortEpsilon) * 2
	assert.InDelta(t, attack, a.AttackPower(), 1e-12)
	assert.InDelta(t, 1.0, b.DefencePower(true), 1e-12)
	assert.InDelta(t, 9.0, b.DefencePower(false), 1e-12)

	assert.InDelta(t, (attack-1)/(attack+1), a.SuccessProbability(b, true), 1e-12)

	// Elevation makes the land attack hopeless.
	assert.Equal(t, 0.0, a.SuccessProbability(b, false))
	assert.Equal(t, 0.0, b.SuccessProbability(a, false))
}

func TestEthnocideProbability(t *testing.T) {
	def := world.Uniform(2, 1, world.TerrainAgriculture)
	def.Cells[1].Elevation = 0.2
	w := newTestWorld(t, def, params.Default(), 1)
	a, b := w.Index(0, 0), w.Index(1, 0)

	// Clamped at zero.
	assert.Equal(t, 0.0, a.EthnocideProbability(b))
	for i := 0; i < 5; i++ {
		a.MilitaryTechs[i] = true
	}
	assert.InDelta(t, 0.05+0.95*0.5-0.1, a.EthnocideProbability(b), 1e-12)
	assert.InDelta(t, 0.05, b.EthnocideProbability(a), 1e-12)
}

func TestAttackConquersAndEthnocides(t *testing.T) {
	p := params.Default()
	p.EthnocideMin = 1
	p.EthnocideMax = 1
	w := newTestWorld(t, world.Uniform(2, 1, world.TerrainAgriculture), p, 1)
	a, b := w.Index(0, 0), w.Index(1, 0)
	a.UltrasocietalTraits[3] = true

	a.attackWith(b, false, 1)
	assert.Same(t, a.Polity(), b.Polity())
	assert.Equal(t, 2, a.Polity().Size())
	assert.Equal(t, a.UltrasocietalTraits, b.UltrasocietalTraits)
	assert.NotSame(t, &a.UltrasocietalTraits[0], &b.UltrasocietalTraits[0])
	assert.Same(t, a.Paradigm(), b.Paradigm())
	assert.Equal(t, BattleRecord{
		AttackerBefore: 1,
		DefenderBefore: 1,
		AttackerAfter:  2,
		DefenderAfter:  2,
		Success:        true,
		Ethnocide:      true,
	}, a.LastBattle)
}

func TestAttackFails(t *testing.T) {
	w := newTestWorld(t, world.Uniform(2, 1, world.TerrainAgriculture), params.Default(), 1)
	a, b := w.Index(0, 0), w.Index(1, 0)
	pb := b.Polity()

	a.attackWith(b, false, 0)
	assert.Same(t, pb, b.Polity())
	assert.False(t, a.LastBattle.Success)
	assert.Equal(t, 1, a.LastBattle.AttackerAfter)
	assert.Equal(t, 1, a.LastBattle.DefenderAfter)
}

func TestAttemptAttackSkipsSea(t *testing.T) {
	def := world.NewDefinition(3, 3)
	require.NoError(t, def.Set(world.Cell{Coord: world.Coord{X: 1, Y: 1}, Terrain: world.TerrainAgriculture}))
	p := params.Default()
	p.SeaAttacks = false
	w := newTestWorld(t, def, p, 1)
	c := w.Index(1, 1)

	calls := 0
	for i := 0; i < 50; i++ {
		c.AttemptAttack(0, 1, func(*Community) { calls++ })
	}
	assert.Zero(t, calls)
	assert.Equal(t, 1, c.Polity().Size())
}

func TestAttemptAttackInactiveTarget(t *testing.T) {
	def := world.Uniform(2, 1, world.TerrainAgriculture)
	def.Cells[1].Period = world.PeriodAgri3
	p := params.Default()
	p.MilitaryTechSpreadProbability = 1
	w := newTestWorld(t, def, p, 1)
	a, b := w.Index(0, 0), w.Index(1, 0)
	for i := range a.MilitaryTechs {
		a.MilitaryTechs[i] = true
	}

	calls := 0
	for i := 0; i < 50; i++ {
		a.AttemptAttack(0, 0, func(*Community) { calls++ })
	}
	assert.Zero(t, calls)
	// An inactive target ends the turn before technology can diffuse.
	assert.Zero(t, b.TotalMilitaryTechs())

	// Active from step 750 onwards.
	for i := 0; i < 50; i++ {
		a.AttemptAttack(750, 0, func(*Community) { calls++ })
	}
	assert.NotZero(t, calls)
}

func TestUniformAttackSameTerrainNeighbours(t *testing.T) {
	p := params.Default()
	p.SeaAttacks = false
	w := newTestWorld(t, world.Uniform(3, 3, world.TerrainAgriculture), p, 4)
	c := w.Index(1, 1)

	hit := make(map[CommunityID]int)
	for i := 0; i < 200; i++ {
		target, sea, proceed, ok := uniformAttack{}.selectTarget(c, 0, 0)
		require.True(t, ok)
		assert.False(t, sea)
		assert.True(t, proceed)
		hit[target.ID]++
	}
	assert.Len(t, hit, 4)
	for _, d := range world.Directions {
		assert.Contains(t, hit, c.Neighbour(d).ID)
	}

	// Members of the same polity only exchange technology.
	c.Polity().TransferCommunity(c.Neighbour(world.Left))
	for i := 0; i < 50; i++ {
		target, _, proceed, ok := uniformAttack{}.selectTarget(c, 0, 0)
		require.True(t, ok)
		assert.Equal(t, target.Polity() != c.Polity(), proceed)
	}
}

func TestUniformAttackBySea(t *testing.T) {
	def := world.Uniform(3, 1, world.TerrainAgriculture)
	def.Cells[1].Terrain = world.TerrainSea
	w := newTestWorld(t, def, params.Default(), 2)
	a, b := w.Index(0, 0), w.Index(2, 0)

	seaHits := 0
	for i := 0; i < 100; i++ {
		target, sea, _, ok := uniformAttack{}.selectTarget(a, 0, 2)
		if !ok {
			continue
		}
		require.True(t, sea)
		assert.True(t, target == a || target == b)
		seaHits++
	}
	assert.NotZero(t, seaHits)

	// Out of range only the attacker itself is reachable.
	for i := 0; i < 100; i++ {
		target, _, proceed, ok := uniformAttack{}.selectTarget(a, 0, 1.5)
		if ok {
			assert.Same(t, a, target)
			assert.False(t, proceed)
		}
	}
}

func TestEntropyAttackPrefersOtherPolities(t *testing.T) {
	p := params.Default()
	p.AttackMethodName = "entropy_maximisation"
	p.SeaAttacks = false
	w := newTestWorld(t, world.Uniform(3, 1, world.TerrainAgriculture), p, 8)
	left, mid, right := w.Index(0, 0), w.Index(1, 0), w.Index(2, 0)

	mid.Polity().TransferCommunity(left)
	for i := 0; i < 50; i++ {
		target, sea, proceed, ok := entropyAttack{}.selectTarget(mid, 0, 0)
		require.True(t, ok)
		assert.Same(t, right, target)
		assert.False(t, sea)
		assert.True(t, proceed)
	}

	mid.Polity().TransferCommunity(right)
	_, _, _, ok := entropyAttack{}.selectTarget(mid, 0, 0)
	assert.False(t, ok)
}

func TestWeightedChoice(t *testing.T) {
	weights := []float64{1, 1, 2}
	assert.Equal(t, 0, weightedChoice(0, weights))
	assert.Equal(t, 0, weightedChoice(0.2, weights))
	assert.Equal(t, 1, weightedChoice(0.3, weights))
	assert.Equal(t, 2, weightedChoice(0.5, weights))
	assert.Equal(t, 2, weightedChoice(0.999, weights))
}

func TestMilitaryTechDiffusion(t *testing.T) {
	p := params.Default()
	p.MilitaryTechSpreadProbability = 1
	def := world.Uniform(2, 1, world.TerrainSteppe)
	def.Cells[1].Terrain = world.TerrainAgriculture
	w := newTestWorld(t, def, p, 1)
	a, b := w.Index(0, 0), w.Index(1, 0)
	require.Equal(t, 10, a.TotalMilitaryTechs())

	a.diffuseMilitaryTechTo(b)
	assert.Equal(t, 1, b.TotalMilitaryTechs())

	// Diffusion never removes technology.
	b.diffuseMilitaryTechTo(w.Index(0, 0))
	assert.Equal(t, 10, a.TotalMilitaryTechs())
}

func TestStepCallbackSeesTargets(t *testing.T) {
	p := params.Default()
	p.SeaAttacks = false
	w := newTestWorld(t, world.Uniform(3, 3, world.TerrainAgriculture), p, 12)

	var targets []*Community
	for i := 0; i < 5; i++ {
		w.Step(func(c *Community) { targets = append(targets, c) })
	}
	require.NotEmpty(t, targets)
	for _, c := range targets {
		assert.True(t, c.Terrain.PolityForming())
	}
}
