package engine

// RuleSlots is the number of land-use rules in a paradigm.
const RuleSlots = 10

const (
	// expectationsFloor keeps expectations strictly positive.
	expectationsFloor = 1e-7
	// returnsEpsilon keeps net-return ratios finite.
	returnsEpsilon = 0.001
	// defaultMaxLatitude is the latitude span over which yields fall off.
	defaultMaxLatitude = 100
)

// ParadigmID is a stable identifier for a paradigm.
type ParadigmID uint64

// Paradigm is a belief system: agricultural yield and depletion rules plus
// expectations about returns. Several communities may follow one paradigm.
// A paradigm is replaced, never edited, when a follower adopts or mutates.
type Paradigm struct {
	ID             ParadigmID
	YieldRules     [RuleSlots]float64
	DepletionRules [RuleSlots]float64
	Expectations   float64
	Latitude       float64
	MaxLatitude    float64

	// Origin is the community that created this paradigm.
	Origin CommunityID

	MutationAmount int
	Sensitivity    float64
	MutationRate   float64
	Threshold      float64
	WorkrateChange float64

	followers map[CommunityID]struct{}
}

// Followers returns the number of communities using the paradigm.
func (p *Paradigm) Followers() int {
	return len(p.followers)
}

// HasFollower reports whether community id uses the paradigm.
func (p *Paradigm) HasFollower(id CommunityID) bool {
	_, ok := p.followers[id]
	return ok
}

// netReturns returns Σyield − depletionWeight·Σdepletion.
func (p *Paradigm) netReturns(depletionWeight float64) float64 {
	var y, d float64
	for i := 0; i < RuleSlots; i++ {
		y += p.YieldRules[i]
		d += p.DepletionRules[i]
	}
	return y - depletionWeight*d
}

// Compare returns the fitness of p relative to the paradigm c currently
// follows. Values above the adopter's threshold favour switching to p.
func (p *Paradigm) Compare(c *Community) float64 {
	return c.w.belief.compare(p, c.paradigm)
}

// Mutate returns a new registered paradigm derived from p in the context of c.
// The new paradigm's origin latitude is c's latitude and at most
// MutationAmount rule slots differ from p. p itself is not modified.
func (p *Paradigm) Mutate(c *Community) *Paradigm {
	w := c.w
	m := w.paradigms.create(c)
	m.YieldRules = p.YieldRules
	m.DepletionRules = p.DepletionRules
	m.Expectations = p.Expectations
	m.Latitude = c.Latitude()

	for i := 0; i < p.MutationAmount; i++ {
		slot := w.rng.Intn(RuleSlots)
		m.DepletionRules[slot] = (w.rng.Float64()*1.5 - 1) * 0.01
		m.YieldRules[slot] = w.rng.Float64()
	}
	return m
}

// UpdateExpectations adjusts expectations from c's experience.
func (p *Paradigm) UpdateExpectations(c *Community) {
	c.w.belief.updateExpectations(p, c)
	if p.Expectations <= 0 {
		p.Expectations = expectationsFloor
	}
}

// Registry tracks every paradigm that has at least one follower.
type Registry struct {
	last      ParadigmID
	paradigms map[ParadigmID]*Paradigm
	w         *World
}

func newRegistry(w *World) *Registry {
	return &Registry{paradigms: make(map[ParadigmID]*Paradigm), w: w}
}

// Len returns the number of paradigms with followers.
func (r *Registry) Len() int {
	return len(r.paradigms)
}

// Get returns the paradigm with the given id, or nil if it has no followers.
func (r *Registry) Get(id ParadigmID) *Paradigm {
	return r.paradigms[id]
}

// create builds a fresh paradigm seeded from c and the world parameters.
// It is registered once a community adopts it.
func (r *Registry) create(c *Community) *Paradigm {
	pr := r.w.params
	r.last++
	return &Paradigm{
		ID:             r.last,
		Expectations:   r.w.rng.Float64() * 100,
		MaxLatitude:    defaultMaxLatitude,
		Origin:         c.ID,
		MutationAmount: pr.MutationAmount,
		Sensitivity:    pr.Sensitivity,
		MutationRate:   pr.MutationRate,
		Threshold:      pr.Threshold,
		WorkrateChange: pr.WorkrateChange,
		followers:      make(map[CommunityID]struct{}),
	}
}

// Adopt makes c a follower of p, leaving its previous paradigm. Paradigms
// left without followers are dropped from the registry.
func (r *Registry) Adopt(c *Community, p *Paradigm) {
	old := c.paradigm
	if old == p {
		return
	}
	if old != nil {
		delete(old.followers, c.ID)
		if len(old.followers) == 0 {
			delete(r.paradigms, old.ID)
		}
	}
	p.followers[c.ID] = struct{}{}
	r.paradigms[p.ID] = p
	c.paradigm = p
}

func (r *Registry) reset() {
	r.paradigms = make(map[ParadigmID]*Paradigm)
}
