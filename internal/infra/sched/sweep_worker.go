package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-contest-bot/internal/infra/metrics"
)

// SweepFunc removes expired entries as of now and returns how many it dropped.
type SweepFunc func(ctx context.Context, now time.Time) int

// Sweeper is one in-memory store to clean up.
type Sweeper struct {
	Store string
	Sweep SweepFunc
}

// SweepWorker periodically drops expired verification codes and idle cursors
// from the in-memory stores. Expiry is still enforced on access; this only
// bounds memory.
type SweepWorker struct {
	interval time.Duration
	sweepers []Sweeper
	now      func() time.Time
	log      *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, logger *zerolog.Logger, sweepers ...Sweeper) *SweepWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{interval: interval, sweepers: sweepers, now: time.Now, log: &l}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	if len(w.sweepers) == 0 {
		w.log.Debug().Msg("nothing to sweep")
		<-ctx.Done()
		return ctx.Err()
	}
	w.log.Info().Dur("interval", w.interval).Msg("Starting sweep worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping sweep worker")
			return ctx.Err()
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs every sweeper once and returns the total removed.
func (w *SweepWorker) SweepOnce(ctx context.Context) int {
	now := w.now()
	total := 0
	for _, s := range w.sweepers {
		n := s.Sweep(ctx, now)
		if n > 0 {
			metrics.AddSwept(s.Store, n)
			w.log.Debug().Str("store", s.Store).Int("count", n).Msg("swept expired entries")
		}
		total += n
	}
	metrics.IncJob("sweep", "ok")
	return total
}
