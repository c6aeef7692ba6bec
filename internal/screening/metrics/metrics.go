package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the screening module.
type Metrics struct {
	// Source call latencies by source
	SourceLatency *prometheus.HistogramVec

	// Source outcomes: success, empty, failure
	SourceOutcome *prometheus.CounterVec

	// Bot-verification pages seen, by source
	Challenges *prometheus.CounterVec

	// Result pages walked by the offshore extractor, by final state
	ExtractorPages *prometheus.CounterVec

	// Full multi-source search latency
	SearchAllLatency prometheus.Histogram
}

// New registers screening metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SourceLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "screener_source_duration_seconds",
			Help:    "Duration of a single source search",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"source"}),

		SourceOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_source_outcomes_total",
			Help: "Source search outcomes",
		}, []string{"source", "outcome"}),

		Challenges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_source_challenges_total",
			Help: "Bot-verification challenges detected",
		}, []string{"source"}),

		ExtractorPages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_extractor_pages_total",
			Help: "Result pages walked by the paginated extractor, by final state",
		}, []string{"state"}),

		SearchAllLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_search_all_duration_seconds",
			Help:    "Duration of a combined search across all sources",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
	}
}

func (m *Metrics) ObserveSourceLatency(source string, d time.Duration) {
	if m != nil {
		m.SourceLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementOutcome(source, outcome string) {
	if m != nil {
		m.SourceOutcome.WithLabelValues(source, outcome).Inc()
	}
}

func (m *Metrics) IncrementChallenge(source string) {
	if m != nil {
		m.Challenges.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) AddExtractorPages(state string, pages int) {
	if m != nil {
		m.ExtractorPages.WithLabelValues(state).Add(float64(pages))
	}
}

func (m *Metrics) ObserveSearchAllLatency(d time.Duration) {
	if m != nil {
		m.SearchAllLatency.Observe(d.Seconds())
	}
}
