package engine

import "github.com/talgya/guard/internal/params"

// beliefModel is the contagion-mode strategy. One model is chosen when the
// world is built.
type beliefModel interface {
	compare(candidate, current *Paradigm) float64
	updateExpectations(p *Paradigm, c *Community)
	step(c *Community)
}

func newBeliefModel(mode params.ContagionMode) beliefModel {
	switch mode {
	case params.ContagionPerfect:
		return contagionModel{depletionWeight: 10}
	case params.ContagionFutureDiscounted:
		return contagionModel{depletionWeight: 1}
	default:
		return comfortModel{}
	}
}

// comfortModel drives paradigm change from comfort, which tracks whether
// yields cover the community's ultrasocietal needs.
type comfortModel struct{}

func (comfortModel) compare(candidate, current *Paradigm) float64 {
	return candidate.Expectations / current.Expectations
}

// Expectations drift towards comfort and realised yield, more slowly the more
// communities share the paradigm.
func (comfortModel) updateExpectations(p *Paradigm, c *Community) {
	n := p.Followers()
	if n < 1 {
		n = 1
	}
	p.Expectations += ((c.icono.Comfort-0.5)*0.02 + (c.agri.Yield-p.Expectations)*0.02) / float64(n)
}

func (comfortModel) step(c *Community) {
	c.icono.updateComfort(c)

	p := c.paradigm
	p.UpdateExpectations(c)

	comfort := c.icono.Comfort
	discomfort := 1 - comfort

	// Complacency and mitigation.
	if comfort > 0.75 {
		c.agri.Workrate -= p.WorkrateChange
	} else if comfort < 0.25 {
		c.agri.Workrate += p.WorkrateChange
	}
	c.agri.Workrate = clamp01(c.agri.Workrate)

	changed := c.considerCounterParadigms(p.Threshold*comfort, c.w.params.MilitarySpreadOnMimesis)
	if !changed && c.w.rng.Float64() < discomfort*discomfort*discomfort*p.MutationRate {
		c.w.paradigms.Adopt(c, p.Mutate(c))
		changed = true
	}
	if !changed {
		c.announceParadigm()
	}
	c.icono.clearInbox()
}

// contagionModel spreads paradigms on net returns alone. depletionWeight is
// 10 under perfect information and 1 when the future is discounted.
type contagionModel struct {
	depletionWeight float64
}

func (m contagionModel) compare(candidate, current *Paradigm) float64 {
	return candidate.netReturns(m.depletionWeight) / (current.netReturns(m.depletionWeight) + returnsEpsilon)
}

// Expectations are recomputed from the rules on every call.
func (m contagionModel) updateExpectations(p *Paradigm, _ *Community) {
	p.Expectations = p.netReturns(m.depletionWeight)
}

func (contagionModel) step(c *Community) {
	// Only checking whether yields meet ultrasocietal needs.
	c.icono.Comfort = clamp01((c.agri.Yield - float64(c.TotalUltrasocietalTraits())) / 10)

	p := c.paradigm
	p.UpdateExpectations(c)

	changed := c.considerCounterParadigms(p.Threshold, false)
	if !changed && c.w.rng.Float64() < p.MutationRate {
		c.w.paradigms.Adopt(c, p.Mutate(c))
		changed = true
	}
	if !changed {
		c.announceParadigm()
	}
	c.icono.clearInbox()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
