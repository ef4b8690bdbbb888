package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	ClaimsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upwatch_claims_total",
			Help: "Total number of claim tickets handed to workers",
		},
	)

	ClaimBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upwatch_claim_batch_size",
			Help:    "Number of tickets returned per claim call",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
		},
	)

	ChecksRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upwatch_checks_recorded_total",
			Help: "Total number of recorded check results",
		},
		[]string{"outcome"},
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upwatch_probe_duration_seconds",
			Help:    "Time spent probing target URLs",
			Buckets: prometheus.DefBuckets,
		},
	)

	MonitorsClaimed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "upwatch_monitors_claimed",
			Help: "Number of monitors currently holding a claim",
		},
	)

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upwatch_store_operations_total",
			Help: "Total durable store operations performed",
		},
		[]string{"operation", "status"},
	)
)

// RecordClaim tracks a single monitor claim taken outside the batch path.
func RecordClaim() {
	MonitorsClaimed.Inc()
}

func RecordClaimBatch(n int) {
	ClaimsTotal.Add(float64(n))
	ClaimBatchSize.Observe(float64(n))
	MonitorsClaimed.Add(float64(n))
}

func RecordCheck(failed bool, latency time.Duration) {
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	ChecksRecorded.WithLabelValues(outcome).Inc()
	MonitorsClaimed.Dec()
	if latency > 0 {
		ProbeDuration.Observe(latency.Seconds())
	}
}

func RecordStoreOperation(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StoreOperations.WithLabelValues(operation, status).Inc()
}
