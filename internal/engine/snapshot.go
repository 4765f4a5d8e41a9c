package engine

import (
	"fmt"

	"github.com/talgya/guard/internal/snapshot"
	"github.com/talgya/guard/internal/social"
)

// Snapshot captures the mutable world state. Topology and parameters are not
// included; they come from the world definition and parameter files. The
// header's Seed is left for the caller to fill in.
func (w *World) Snapshot() snapshot.State {
	st := snapshot.State{
		Header: snapshot.Header{
			Version: snapshot.Version,
			Step:    w.step,
			Width:   w.Width,
			Height:  w.Height,
		},
		PolitySizes:    append([]int(nil), w.politySizes...),
		LastParadigmID: uint64(w.paradigms.last),
		LastPolityID:   uint64(w.polityIDs.Peek()),
	}

	seen := make(map[ParadigmID]bool)
	addParadigm := func(p *Paradigm) {
		if seen[p.ID] {
			return
		}
		seen[p.ID] = true
		st.Paradigms = append(st.Paradigms, paradigmState(p))
	}

	st.Communities = make([]snapshot.Community, 0, len(w.communities))
	for _, c := range w.communities {
		cs := snapshot.Community{
			ID:                  int(c.ID),
			UltrasocietalTraits: append([]bool(nil), c.UltrasocietalTraits...),
			MilitaryTechs:       append([]bool(nil), c.MilitaryTechs...),
			Comfort:             c.icono.Comfort,
			Depletion:           append([]float64(nil), c.agri.Depletion[:]...),
			Yield:               c.agri.Yield,
			PrevYield:           c.agri.PrevYield,
			Workrate:            c.agri.Workrate,
			SeaAttackDistance:   c.SeaAttackDistance,
			Paradigm:            uint64(c.paradigm.ID),
		}
		addParadigm(c.paradigm)
		for _, p := range c.icono.inbox {
			cs.Inbox = append(cs.Inbox, uint64(p.ID))
			addParadigm(p)
		}
		st.Communities = append(st.Communities, cs)
	}

	st.Polities = make([]snapshot.Polity, 0, len(w.polities))
	for _, p := range w.polities {
		ps := snapshot.Polity{ID: uint64(p.ID), MaxSize: p.MaxSize}
		for _, m := range p.Members() {
			ps.Members = append(ps.Members, int(m.(*Community).ID))
		}
		st.Polities = append(st.Polities, ps)
	}
	return st
}

func paradigmState(p *Paradigm) snapshot.Paradigm {
	return snapshot.Paradigm{
		ID:             uint64(p.ID),
		YieldRules:     append([]float64(nil), p.YieldRules[:]...),
		DepletionRules: append([]float64(nil), p.DepletionRules[:]...),
		Expectations:   p.Expectations,
		Latitude:       p.Latitude,
		MaxLatitude:    p.MaxLatitude,
		Origin:         int(p.Origin),
		MutationAmount: p.MutationAmount,
		Sensitivity:    p.Sensitivity,
		MutationRate:   p.MutationRate,
		Threshold:      p.Threshold,
		WorkrateChange: p.WorkrateChange,
	}
}

// Restore replaces the world's mutable state with st. The world must have been
// built from the same definition and parameters the snapshot was taken with.
// On error the world must be Reset before further use.
func (w *World) Restore(st snapshot.State) error {
	if st.Header.Width != w.Width || st.Header.Height != w.Height {
		return fmt.Errorf("snapshot is %dx%d, world is %dx%d",
			st.Header.Width, st.Header.Height, w.Width, w.Height)
	}
	if len(st.Communities) != len(w.communities) {
		return fmt.Errorf("snapshot has %d communities, world has %d", len(st.Communities), len(w.communities))
	}

	paradigms := make(map[uint64]*Paradigm, len(st.Paradigms))
	for _, ps := range st.Paradigms {
		if len(ps.YieldRules) != RuleSlots || len(ps.DepletionRules) != RuleSlots {
			return fmt.Errorf("paradigm %d: want %d rule slots", ps.ID, RuleSlots)
		}
		p := &Paradigm{
			ID:             ParadigmID(ps.ID),
			Expectations:   ps.Expectations,
			Latitude:       ps.Latitude,
			MaxLatitude:    ps.MaxLatitude,
			Origin:         CommunityID(ps.Origin),
			MutationAmount: ps.MutationAmount,
			Sensitivity:    ps.Sensitivity,
			MutationRate:   ps.MutationRate,
			Threshold:      ps.Threshold,
			WorkrateChange: ps.WorkrateChange,
			followers:      make(map[CommunityID]struct{}),
		}
		copy(p.YieldRules[:], ps.YieldRules)
		copy(p.DepletionRules[:], ps.DepletionRules)
		paradigms[ps.ID] = p
	}
	lookup := func(id uint64) (*Paradigm, error) {
		p, ok := paradigms[id]
		if !ok {
			return nil, fmt.Errorf("unknown paradigm %d", id)
		}
		return p, nil
	}

	pr := w.params
	w.paradigms.reset()
	for i, cs := range st.Communities {
		c := w.communities[i]
		if cs.ID != int(c.ID) {
			return fmt.Errorf("community %d stored at index %d", cs.ID, i)
		}
		if len(cs.UltrasocietalTraits) != pr.NUltrasocietalTraits || len(cs.MilitaryTechs) != pr.NMilitaryTechs {
			return fmt.Errorf("community %d: trait vectors do not match parameters", cs.ID)
		}
		if len(cs.Depletion) != RuleSlots {
			return fmt.Errorf("community %d: want %d depletion slots", cs.ID, RuleSlots)
		}

		c.UltrasocietalTraits = append([]bool(nil), cs.UltrasocietalTraits...)
		c.MilitaryTechs = append([]bool(nil), cs.MilitaryTechs...)
		c.icono.Comfort = cs.Comfort
		c.agri = &Agriculture{Yield: cs.Yield, PrevYield: cs.PrevYield, Workrate: cs.Workrate}
		copy(c.agri.Depletion[:], cs.Depletion)
		c.SeaAttackDistance = cs.SeaAttackDistance
		c.LastBattle = BattleRecord{}

		p, err := lookup(cs.Paradigm)
		if err != nil {
			return fmt.Errorf("community %d: %w", cs.ID, err)
		}
		c.paradigm = nil
		w.paradigms.Adopt(c, p)

		c.icono.clearInbox()
		for _, id := range cs.Inbox {
			q, err := lookup(id)
			if err != nil {
				return fmt.Errorf("community %d inbox: %w", cs.ID, err)
			}
			c.icono.Receive(q)
		}
	}

	w.polities = make([]*social.Polity, 0, len(st.Polities))
	assigned := make([]bool, len(w.communities))
	for _, ps := range st.Polities {
		members := make([]social.Member, 0, len(ps.Members))
		for _, id := range ps.Members {
			c := w.community(CommunityID(id))
			if c == nil || assigned[id] {
				return fmt.Errorf("polity %d: bad member %d", ps.ID, id)
			}
			assigned[id] = true
			members = append(members, c)
		}
		w.polities = append(w.polities, social.RestorePolity(social.PolityID(ps.ID), ps.MaxSize, members...))
	}
	for i, ok := range assigned {
		if !ok {
			return fmt.Errorf("community %d belongs to no polity", i)
		}
	}

	w.step = st.Header.Step
	w.politySizes = append([]int(nil), st.PolitySizes...)
	w.paradigms.last = ParadigmID(st.LastParadigmID)
	w.polityIDs.Restore(social.PolityID(st.LastPolityID))
	return nil
}
