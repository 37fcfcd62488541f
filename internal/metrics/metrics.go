// Package metrics exposes Prometheus counters for the submission pipeline
// and the transfer tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"omnipool/internal/models"
)

// Recorder collects pipeline metrics
type Recorder struct {
	submissions *prometheus.CounterVec
	transfers   *prometheus.CounterVec
}

// NewRecorder creates a Recorder and registers its collectors
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omnipool_submissions_total",
			Help: "Pipeline submissions by operation, pay source and lifecycle event",
		}, []string{"operation", "pay_source", "event"}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omnipool_transfer_status_total",
			Help: "Pending transfer status transitions",
		}, []string{"status"}),
	}
	reg.MustRegister(r.submissions, r.transfers)
	return r
}

// RecordSubmission counts one submission lifecycle event
func (r *Recorder) RecordSubmission(operation models.Operation, paySource models.PaySource, event string) {
	r.submissions.WithLabelValues(string(operation), string(paySource), event).Inc()
}

// RecordTransferStatus counts one transfer status transition
func (r *Recorder) RecordTransferStatus(status models.TransferStatus) {
	r.transfers.WithLabelValues(string(status)).Inc()
}
