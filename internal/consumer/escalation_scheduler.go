package consumer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EscalationChecker sweeps assigned items whose acknowledgement window expired
type EscalationChecker interface {
	CheckEscalations(ctx context.Context) (int, error)
}

// EscalationScheduler runs the escalation sweep on a fixed interval
type EscalationScheduler struct {
	checker  EscalationChecker
	interval time.Duration
	logger   *zap.Logger
}

func NewEscalationScheduler(checker EscalationChecker, interval time.Duration, logger *zap.Logger) *EscalationScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &EscalationScheduler{
		checker:  checker,
		interval: interval,
		logger:   logger,
	}
}

// Start sweeps once immediately, then every interval until ctx is cancelled
func (s *EscalationScheduler) Start(ctx context.Context) {
	s.logger.Info("Escalation scheduler started",
		zap.Duration("interval", s.interval),
	)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Escalation scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *EscalationScheduler) sweep(ctx context.Context) {
	n, err := s.checker.CheckEscalations(ctx)
	if err != nil {
		s.logger.Error("Escalation sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Escalated overdue items", zap.Int("count", n))
	}
}
