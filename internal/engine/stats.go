package engine

// Stats are aggregate world statistics at the end of a step. Means are taken
// over polity-forming communities.
type Stats struct {
	Step              int     `json:"step" db:"step"`
	Year              int     `json:"year" db:"year"`
	Polities          int     `json:"polities" db:"polities"`
	LargestPolity     int     `json:"largest_polity" db:"largest_polity"`
	MultiPolities     int     `json:"multi_polities" db:"multi_polities"`
	Paradigms         int     `json:"paradigms" db:"paradigms"`
	MeanComfort       float64 `json:"mean_comfort" db:"mean_comfort"`
	MeanTraits        float64 `json:"mean_traits" db:"mean_traits"`
	MeanMilitaryTechs float64 `json:"mean_military_techs" db:"mean_military_techs"`
	MeanExpectations  float64 `json:"mean_expectations" db:"mean_expectations"`
	MeanYield         float64 `json:"mean_yield" db:"mean_yield"`
}

// Stats computes the current aggregate statistics.
func (w *World) Stats() Stats {
	s := Stats{
		Step:      w.step,
		Year:      w.Year(),
		Polities:  len(w.polities),
		Paradigms: w.paradigms.Len(),
	}
	for _, p := range w.polities {
		if p.Size() > s.LargestPolity {
			s.LargestPolity = p.Size()
		}
		if p.Size() > 1 {
			s.MultiPolities++
		}
	}

	n := 0
	for _, c := range w.communities {
		if !c.Terrain.PolityForming() {
			continue
		}
		n++
		s.MeanComfort += c.icono.Comfort
		s.MeanTraits += float64(c.TotalUltrasocietalTraits())
		s.MeanMilitaryTechs += float64(c.TotalMilitaryTechs())
		s.MeanExpectations += c.paradigm.Expectations
		s.MeanYield += c.agri.Yield
	}
	if n > 0 {
		f := float64(n)
		s.MeanComfort /= f
		s.MeanTraits /= f
		s.MeanMilitaryTechs /= f
		s.MeanExpectations /= f
		s.MeanYield /= f
	}
	return s
}
