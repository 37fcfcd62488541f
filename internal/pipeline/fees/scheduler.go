package fees

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"omnipool/internal/models"
)

// Scheduler throttles fee estimation. Structural changes (pay source,
// operation, pair mode) run immediately; amount edits are debounced so only
// the latest input produces an estimate. Each request carries a sequence
// number and a result is delivered only while its sequence is still the
// newest issued: last request wins, not first response.
type Scheduler struct {
	estimator *Estimator
	debounce  time.Duration
	onResult  func(models.TechnicalFees)
	logger    *zap.Logger

	mu    sync.Mutex
	seq   uint64
	last  Fingerprint
	timer *time.Timer
}

// NewScheduler creates a Scheduler delivering results to onResult. A nil
// fee value delivered there means the latest request was not ready.
func NewScheduler(estimator *Estimator, debounce time.Duration, onResult func(models.TechnicalFees), logger *zap.Logger) *Scheduler {
	return &Scheduler{
		estimator: estimator,
		debounce:  debounce,
		onResult:  onResult,
		logger:    logger.Named("fee_scheduler"),
	}
}

// Submit registers a new estimation request, superseding any in-flight one
func (s *Scheduler) Submit(ctx context.Context, req EstimateRequest) {
	fp := req.Fingerprint()

	s.mu.Lock()
	s.seq++
	seq := s.seq
	structural := fp.StructuralChange(s.last)
	s.last = fp
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	if structural {
		s.mu.Unlock()
		go s.run(ctx, seq, req)
		return
	}

	s.timer = time.AfterFunc(s.debounce, func() {
		s.run(ctx, seq, req)
	})
	s.mu.Unlock()
}

// run performs one estimation and applies the result if still current
func (s *Scheduler) run(ctx context.Context, seq uint64, req EstimateRequest) {
	result, err := s.estimator.Estimate(ctx, req)
	if err != nil {
		s.logger.Warn("Fee estimation failed",
			zap.String("pay_source", string(req.PaySource)),
			zap.String("operation", string(req.Operation)),
			zap.Error(err))
		result = nil
	}

	s.mu.Lock()
	current := seq == s.seq
	s.mu.Unlock()

	if !current {
		// A newer request superseded this one while it was in flight
		return
	}

	s.onResult(result)
}

// Sequence returns the latest issued sequence number
func (s *Scheduler) Sequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
