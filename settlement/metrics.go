package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Results = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "settlement",
		Name:      "results_total",
		Help:      "Counts settlement runs by the status they stopped in.",
	}, []string{"origin", "destination", "asset", "status"})
	StageDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bridge",
		Subsystem: "settlement",
		Name:      "stage_duration_seconds",
		Help:      "Shows how long each settlement stage took, including failed attempts.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300, 900, 1800},
	}, []string{"origin", "destination", "stage"})
	JournalErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "settlement",
		Name:      "journal_errors_total",
		Help:      "Counts failed writes of settlement journal rows.",
	})
)
