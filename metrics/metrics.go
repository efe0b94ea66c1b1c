package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "xmbuild"

// Recorder receives engine events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	EntryFinished(collection, status string, d time.Duration)
	RollbackFinished(collection, status string)
	CompletionFinished(collection, status string)
	RunFinished(collection, status string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) EntryFinished(string, string, time.Duration) {}
func (Nop) RollbackFinished(string, string)              {}
func (Nop) CompletionFinished(string, string)            {}
func (Nop) RunFinished(string, string)                   {}

// Prometheus records engine events into a dedicated registry.
type Prometheus struct {
	registry      *prometheus.Registry
	entries       *prometheus.CounterVec
	rollbacks     *prometheus.CounterVec
	completions   *prometheus.CounterVec
	runs          *prometheus.CounterVec
	entryDuration *prometheus.HistogramVec
}

// NewPrometheus creates a Prometheus recorder with its own registry.
func NewPrometheus() (*Prometheus, error) {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_total",
			Help:      "Entries executed, by collection and status.",
		}, []string{"collection", "status"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollbacks_total",
			Help:      "Rollback actions run, by collection and status.",
		}, []string{"collection", "status"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Completion actions run, by collection and status.",
		}, []string{"collection", "status"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Collection runs, by collection and final status.",
		}, []string{"collection", "status"}),
		entryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "entry_duration_seconds",
			Help:      "Wall time spent executing entries.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"collection"}),
	}
	for _, c := range []prometheus.Collector{p.entries, p.rollbacks, p.completions, p.runs, p.entryDuration} {
		if err := p.registry.Register(c); err != nil {
			return nil, errors.Wrap(err, "registering collector")
		}
	}
	return p, nil
}

func (p *Prometheus) EntryFinished(collection, status string, d time.Duration) {
	p.entries.WithLabelValues(collection, status).Inc()
	p.entryDuration.WithLabelValues(collection).Observe(d.Seconds())
}

func (p *Prometheus) RollbackFinished(collection, status string) {
	p.rollbacks.WithLabelValues(collection, status).Inc()
}

func (p *Prometheus) CompletionFinished(collection, status string) {
	p.completions.WithLabelValues(collection, status).Inc()
}

func (p *Prometheus) RunFinished(collection, status string) {
	p.runs.WithLabelValues(collection, status).Inc()
}

// Registry returns the underlying Prometheus registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node-exporter textfile collector.
func (p *Prometheus) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return errors.Wrapf(err, "writing metrics to %s", path)
	}
	return nil
}
