package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Job func(ctx context.Context)

type Scheduler struct {
	interval time.Duration
	job      Job
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewScheduler(interval time.Duration, job Job, log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		interval: interval,
		job:      job,
		log:      log.With().Str("component", "scheduler").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		s.log.Info().Dur("interval", s.interval).Msg("Scheduler started")
		for {
			select {
			case <-ticker.C:
				s.log.Debug().Msg("Scheduler triggered job")
				s.job(s.ctx)
			case <-s.ctx.Done():
				ticker.Stop()
				s.log.Info().Msg("Scheduler stopped")
				return
			}
		}
	}()
}

// Stop cancels the running job's context and waits for the loop to exit.
// It must only be called after Start.
func (s *Scheduler) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}
