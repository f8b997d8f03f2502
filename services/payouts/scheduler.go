package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	config "github.com/phillip/lets-hang-go/config"
)

const jobTimeout = 10 * time.Minute

type Scheduler struct {
	ledger *Ledger
	cron   *cron.Cron
}

// NewScheduler registers the hourly settlement sweep and the daily summary.
func NewScheduler(cfg *config.Config, ledger *Ledger) (*Scheduler, error) {
	s := &Scheduler{
		ledger: ledger,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}

	if _, err := s.cron.AddFunc(cfg.Payout.SweepSpec, s.runSweep); err != nil {
		return nil, fmt.Errorf("payout sweep spec %q: %w", cfg.Payout.SweepSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.Payout.SummarySpec, s.runSummary); err != nil {
		return nil, fmt.Errorf("payout summary spec %q: %w", cfg.Payout.SummarySpec, err)
	}
	return s, nil
}

func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.cron.Start()
			zap.L().Info("[Scheduler] payout jobs started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			done := s.cron.Stop().Done()
			select {
			case <-done:
			case <-ctx.Done():
				zap.L().Warn("[Scheduler] stopped before running jobs finished")
			}
			return nil
		},
	})
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	zap.L().Info("[Scheduler] running payout sweep")
	if _, err := s.ledger.Sweep(ctx, time.Now()); err != nil {
		zap.L().Error("[Scheduler] payout sweep failed", zap.Error(err))
	}
}

func (s *Scheduler) runSummary() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.ledger.DailySummary(ctx); err != nil {
		zap.L().Error("[Scheduler] payout summary failed", zap.Error(err))
	}
}
