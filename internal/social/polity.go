// Package social provides polities: groups of communities sharing political
// allegiance that grow through conquest and shrink through disintegration.
package social

import "github.com/talgya/guard/internal/params"

// PolityID is a unique identifier for a polity.
type PolityID uint64

// Member is a community as seen by its polity.
type Member interface {
	Polity() *Polity
	SetPolity(p *Polity)
	UltrasocietalTraitCount() int
	TraitCapacity() int
}

// IDSource issues polity identifiers.
type IDSource struct {
	next PolityID
}

// Next returns a fresh identifier.
func (s *IDSource) Next() PolityID {
	s.next++
	return s.next
}

// Peek returns the last identifier issued.
func (s *IDSource) Peek() PolityID { return s.next }

// Restore sets the last identifier issued.
func (s *IDSource) Restore(last PolityID) { s.next = last }

// Polity is a set of communities with aggregate military power.
type Polity struct {
	ID      PolityID
	members []Member

	// MaxSize is the largest membership the polity has reached.
	MaxSize int
}

// NewPolity creates a polity and assigns each member to it.
func NewPolity(ids *IDSource, members ...Member) *Polity {
	p := &Polity{ID: ids.Next(), members: make([]Member, 0, len(members))}
	for _, m := range members {
		p.members = append(p.members, m)
		m.SetPolity(p)
	}
	p.MaxSize = len(p.members)
	return p
}

// RestorePolity rebuilds a stored polity with its original identifier.
func RestorePolity(id PolityID, maxSize int, members ...Member) *Polity {
	p := &Polity{ID: id, members: make([]Member, 0, len(members)), MaxSize: maxSize}
	for _, m := range members {
		p.members = append(p.members, m)
		m.SetPolity(p)
	}
	p.UpdateMaxSize()
	return p
}

// Size returns the number of member communities.
func (p *Polity) Size() int {
	return len(p.members)
}

// Members returns a copy of the membership in insertion order.
func (p *Polity) Members() []Member {
	out := make([]Member, len(p.members))
	copy(out, p.members)
	return out
}

// MeanUltrasocietalTraits returns the fraction of ultrasocietal traits held,
// averaged over members. Empty polities return 0.
func (p *Polity) MeanUltrasocietalTraits() float64 {
	if len(p.members) == 0 {
		return 0
	}
	total := 0.0
	for _, m := range p.members {
		if c := m.TraitCapacity(); c > 0 {
			total += float64(m.UltrasocietalTraitCount()) / float64(c)
		}
	}
	return total / float64(len(p.members))
}

// AttackPower returns size × (1 + β·Ū).
func (p *Polity) AttackPower(pr *params.Parameters) float64 {
	return float64(p.Size()) * (1 + pr.UltrasocietalAttackCoefficient*p.MeanUltrasocietalTraits())
}

// DisintegrateProbability returns δ0 + δS·size − δU·Ū, clamped to [0,1].
func (p *Polity) DisintegrateProbability(pr *params.Parameters) float64 {
	prob := pr.DisintegrationBase +
		pr.DisintegrationSizeCoefficient*float64(p.Size()) -
		pr.DisintegrationUltrasocietalTraitCoefficient*p.MeanUltrasocietalTraits()
	if prob < 0 {
		return 0
	}
	if prob > 1 {
		return 1
	}
	return prob
}

// TransferCommunity moves m from its current polity into p.
func (p *Polity) TransferCommunity(m Member) {
	old := m.Polity()
	if old == p {
		return
	}
	if old != nil {
		old.remove(m)
	}
	p.members = append(p.members, m)
	m.SetPolity(p)
}

// Disintegrate empties the polity and returns one singleton polity per former member.
func (p *Polity) Disintegrate(ids *IDSource) []*Polity {
	out := make([]*Polity, 0, len(p.members))
	for _, m := range p.members {
		out = append(out, NewPolity(ids, m))
	}
	p.members = nil
	return out
}

// UpdateMaxSize raises the watermark to the current size.
func (p *Polity) UpdateMaxSize() {
	if n := len(p.members); n > p.MaxSize {
		p.MaxSize = n
	}
}

func (p *Polity) remove(m Member) {
	for i, x := range p.members {
		if x == m {
			p.members = append(p.members[:i], p.members[i+1:]...)
			return
		}
	}
}
