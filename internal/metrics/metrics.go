package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sync holds the counters of one process. All methods are nil-safe so callers
// can run without metrics.
type Sync struct {
	reg *prometheus.Registry

	CardsFetched   prometheus.Counter
	CardsSkipped   *prometheus.CounterVec
	EventsCreated  prometheus.Counter
	Runs           *prometheus.CounterVec
	RunDuration    prometheus.Gauge
	LastSuccessSec prometheus.Gauge
}

func New() *Sync {
	m := &Sync{
		reg: prometheus.NewRegistry(),
		CardsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cardsync_cards_fetched_total",
			Help: "Cards read from the allow-listed board lists",
		}),
		CardsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardsync_cards_skipped_total",
			Help: "Cards that did not produce an event",
		}, []string{"reason"}), // reason: annotation, existing
		EventsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cardsync_events_created_total",
			Help: "Calendar events inserted",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardsync_runs_total",
			Help: "Sync runs by outcome",
		}, []string{"status"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cardsync_last_run_duration_seconds",
			Help: "Wall time of the last sync run",
		}),
		LastSuccessSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cardsync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful sync run",
		}),
	}
	m.reg.MustRegister(m.CardsFetched, m.CardsSkipped, m.EventsCreated, m.Runs, m.RunDuration, m.LastSuccessSec)
	return m
}

func (m *Sync) Fetched(n int) {
	if m == nil {
		return
	}
	m.CardsFetched.Add(float64(n))
}

func (m *Sync) Skipped(reason string) {
	if m == nil {
		return
	}
	m.CardsSkipped.WithLabelValues(reason).Inc()
}

func (m *Sync) Created() {
	if m == nil {
		return
	}
	m.EventsCreated.Inc()
}

// ObserveRun records the outcome of a run that ended at finished.
func (m *Sync) ObserveRun(status string, d time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
	m.RunDuration.Set(d.Seconds())
	if status == "succeeded" {
		m.LastSuccessSec.Set(float64(finished.Unix()))
	}
}

// WriteTextfile writes the registry in the text exposition format, for the
// node_exporter textfile collector.
func (m *Sync) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
