package engine

// Agriculture holds a community's soil depletion and the yields produced
// under its current paradigm.
type Agriculture struct {
	// Depletion per land-use slot, each within [0,1].
	Depletion [RuleSlots]float64
	Yield     float64
	PrevYield float64
	// Workrate is the effort applied to every slot, within [0,1].
	Workrate float64
}

// NewAgriculture returns untouched land worked at half effort.
func NewAgriculture() *Agriculture {
	return &Agriculture{Workrate: 0.5}
}

// Step computes one season of yield under p and advances depletion.
// latMod scales yields by how well the paradigm suits the latitude.
func (a *Agriculture) Step(p *Paradigm, latMod float64) {
	a.PrevYield = a.Yield
	a.Yield = 0
	for i := 0; i < RuleSlots; i++ {
		a.Yield += (p.YieldRules[i]*a.Workrate - a.Depletion[i]) * latMod
		a.Depletion[i] = clamp01(a.Depletion[i] + p.DepletionRules[i]*a.Workrate)
	}
}
