// Package metrics exposes simulation statistics as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/guard/internal/engine"
)

const namespace = "guard"

// Recorder publishes per-step world statistics.
type Recorder struct {
	step          prometheus.Gauge
	year          prometheus.Gauge
	polities      prometheus.Gauge
	largestPolity prometheus.Gauge
	multiPolities prometheus.Gauge
	paradigms     prometheus.Gauge
	meanComfort   prometheus.Gauge
	meanTraits    prometheus.Gauge
	meanTechs     prometheus.Gauge
	meanYield     prometheus.Gauge
	attacks       prometheus.Counter
	politySizes   prometheus.Histogram
}

// NewRecorder creates the metrics and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	r := &Recorder{
		step:          gauge("step", "Completed simulation steps."),
		year:          gauge("year", "Calendar year of the current step."),
		polities:      gauge("polities", "Live polities."),
		largestPolity: gauge("largest_polity_size", "Communities in the largest polity."),
		multiPolities: gauge("multi_community_polities", "Polities with more than one community."),
		paradigms:     gauge("paradigms", "Paradigms with at least one follower."),
		meanComfort:   gauge("mean_comfort", "Mean comfort of polity-forming communities."),
		meanTraits:    gauge("mean_ultrasocietal_traits", "Mean ultrasocietal traits per community."),
		meanTechs:     gauge("mean_military_techs", "Mean military technologies per community."),
		meanYield:     gauge("mean_yield", "Mean agricultural yield per community."),
		attacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attacks_total",
			Help:      "Attacks made.",
		}),
		politySizes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "polity_max_size",
			Help:      "Maximum size reached by polities when they were recorded.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}

	for _, c := range []prometheus.Collector{
		r.step, r.year, r.polities, r.largestPolity, r.multiPolities, r.paradigms,
		r.meanComfort, r.meanTraits, r.meanTechs, r.meanYield, r.attacks, r.politySizes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe sets the gauges from a step's statistics.
func (r *Recorder) Observe(s engine.Stats) {
	r.step.Set(float64(s.Step))
	r.year.Set(float64(s.Year))
	r.polities.Set(float64(s.Polities))
	r.largestPolity.Set(float64(s.LargestPolity))
	r.multiPolities.Set(float64(s.MultiPolities))
	r.paradigms.Set(float64(s.Paradigms))
	r.meanComfort.Set(s.MeanComfort)
	r.meanTraits.Set(s.MeanTraits)
	r.meanTechs.Set(s.MeanMilitaryTechs)
	r.meanYield.Set(s.MeanYield)
}

// AttackObserved counts one attack.
func (r *Recorder) AttackObserved() {
	r.attacks.Inc()
}

// ObservePolitySizes records polity max sizes.
func (r *Recorder) ObservePolitySizes(sizes []int) {
	for _, n := range sizes {
		r.politySizes.Observe(float64(n))
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
