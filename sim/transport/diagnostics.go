package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"

	"github.com/transport-sim/transport-sim/sim/trace"
)

// Diagnostics counts what happened during a run. Each run owns its registry
// so concurrent simulations do not share counters.
type Diagnostics struct {
	Registry *prometheus.Registry

	histories     prometheus.Counter
	tracks        prometheus.Counter
	collisions    prometheus.Counter
	crossings     prometheus.Counter
	fates         *prometheus.CounterVec
	commitSeconds prometheus.Histogram
}

// NewDiagnostics registers the run's metrics, labelled with runID.
func NewDiagnostics(runID string) *Diagnostics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	labels := prometheus.Labels{"run_id": runID}
	return &Diagnostics{
		Registry: reg,
		histories: f.NewCounter(prometheus.CounterOpts{
			Name:        "transport_histories_total",
			Help:        "Histories completed and committed",
			ConstLabels: labels,
		}),
		tracks: f.NewCounter(prometheus.CounterOpts{
			Name:        "transport_tracks_total",
			Help:        "Particle tracks followed, primaries and secondaries",
			ConstLabels: labels,
		}),
		collisions: f.NewCounter(prometheus.CounterOpts{
			Name:        "transport_collisions_total",
			Help:        "Collisions sampled",
			ConstLabels: labels,
		}),
		crossings: f.NewCounter(prometheus.CounterOpts{
			Name:        "transport_surface_crossings_total",
			Help:        "Surface crossings",
			ConstLabels: labels,
		}),
		fates: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "transport_track_fates_total",
			Help:        "Terminated tracks by fate",
			ConstLabels: labels,
		}, []string{"fate"}),
		commitSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:        "transport_commit_duration_seconds",
			Help:        "Time spent committing one history to the estimators",
			ConstLabels: labels,
			Buckets:     []float64{1e-7, 1e-6, 1e-5, 1e-4, 1e-3, 1e-2},
		}),
	}
}

func (d *Diagnostics) recordFate(f trace.Fate) { d.fates.WithLabelValues(string(f)).Inc() }

// DiagnosticsSummary is a point-in-time read of the counters.
type DiagnosticsSummary struct {
	Histories  uint64
	Tracks     uint64
	Collisions uint64
	Crossings  uint64
	Fates      map[trace.Fate]uint64
	Commits    uint64
}

// Summary gathers the current counter values.
func (d *Diagnostics) Summary() DiagnosticsSummary {
	s := DiagnosticsSummary{Fates: make(map[trace.Fate]uint64)}
	families, err := d.Registry.Gather()
	if err != nil {
		logrus.Warnf("gathering diagnostics: %v", err)
		return s
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch mf.GetName() {
			case "transport_histories_total":
				s.Histories = counterValue(m)
			case "transport_tracks_total":
				s.Tracks = counterValue(m)
			case "transport_collisions_total":
				s.Collisions = counterValue(m)
			case "transport_surface_crossings_total":
				s.Crossings = counterValue(m)
			case "transport_track_fates_total":
				s.Fates[trace.Fate(labelValue(m, "fate"))] = counterValue(m)
			case "transport_commit_duration_seconds":
				s.Commits = m.GetHistogram().GetSampleCount()
			}
		}
	}
	return s
}

func counterValue(m *dto.Metric) uint64 { return uint64(m.GetCounter().GetValue()) }

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// LogSummary prints the counters at info level.
func (s DiagnosticsSummary) LogSummary() {
	logrus.Infof("histories: %d  tracks: %d  collisions: %d  surface crossings: %d",
		s.Histories, s.Tracks, s.Collisions, s.Crossings)
	for _, f := range []trace.Fate{trace.FateEscaped, trace.FateAbsorbed, trace.FateRoulette, trace.FateCutoff, trace.FateLost} {
		if n := s.Fates[f]; n > 0 {
			logrus.Infof("  %-14s %d", f, n)
		}
	}
	if lost := s.Fates[trace.FateLost]; lost > 0 {
		logrus.Warnf("%d particles were lost by the geometry", lost)
	}
}
