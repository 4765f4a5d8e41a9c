package engine

// Iconorhythm is a community's comfort/response engine. Comfort summarises
// how well the current paradigm is serving the community; the inbox holds
// paradigms announced by neighbours since the community last responded.
type Iconorhythm struct {
	Comfort float64
	inbox   []*Paradigm
}

// Receive queues a paradigm announced by a neighbour.
func (ic *Iconorhythm) Receive(p *Paradigm) {
	ic.inbox = append(ic.inbox, p)
}

// Inbox returns the queued counter-paradigms in arrival order.
func (ic *Iconorhythm) Inbox() []*Paradigm {
	out := make([]*Paradigm, len(ic.inbox))
	copy(out, ic.inbox)
	return out
}

func (ic *Iconorhythm) clearInbox() {
	ic.inbox = ic.inbox[:0]
}

// updateComfort sums the yield trend with the expectation and needs gaps,
// scaled by the paradigm's sensitivity.
func (ic *Iconorhythm) updateComfort(c *Community) {
	a := c.agri
	p := c.paradigm

	gettingBetter := a.Yield - a.PrevYield
	expectsVsReal := (a.Yield+p.Expectations)/p.Expectations - 2
	meetingNeeds := a.Yield - float64(c.TotalUltrasocietalTraits()) - 1

	ic.Comfort = clamp01(ic.Comfort + (gettingBetter+expectsVsReal+meetingNeeds)*p.Sensitivity)
}

// considerCounterParadigms adopts the first queued paradigm whose Compare
// exceeds threshold. With spreadTech, adoption also offers one military
// technology from the paradigm's origin community.
func (c *Community) considerCounterParadigms(threshold float64, spreadTech bool) bool {
	for _, cand := range c.icono.inbox {
		if cand.Compare(c) <= threshold {
			continue
		}
		c.w.paradigms.Adopt(c, cand)
		if spreadTech {
			if origin := c.w.community(cand.Origin); origin != nil {
				origin.diffuseMilitaryTechTo(c)
			}
		}
		return true
	}
	return false
}

// announceParadigm sends the current paradigm to every polity-forming cardinal
// neighbour and every polity-forming littoral neighbour in sea-attack range.
func (c *Community) announceParadigm() {
	for _, n := range c.neighbours {
		if n != nil && n.Terrain.PolityForming() {
			n.icono.Receive(c.paradigm)
		}
	}
	for _, ln := range c.LittoralNeighboursInRange(c.SeaAttackDistance) {
		if ln.Neighbour.Terrain.PolityForming() {
			ln.Neighbour.icono.Receive(c.paradigm)
		}
	}
}
