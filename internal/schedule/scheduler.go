package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/siembench/siembench/internal/logger"
)

// RunFunc executes one full benchmark run. Each invocation must be
// independent: the scheduler never reuses run state between triggers.
type RunFunc func(ctx context.Context) error

// Scheduler triggers recurring benchmark runs on a cron schedule.
type Scheduler struct {
	schedule string
	run      RunFunc
	timeout  time.Duration

	cron    *cron.Cron
	running bool

	logger zerolog.Logger
	mu     sync.Mutex
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NewScheduler validates the cron expression up front so a typo fails at
// startup rather than silently never firing.
func NewScheduler(schedule string, timeout time.Duration, run RunFunc) (*Scheduler, error) {
	if _, err := cronParser.Parse(schedule); err != nil {
		return nil, err
	}
	return &Scheduler{
		schedule: schedule,
		run:      run,
		timeout:  timeout,
		logger:   logger.Get("scheduler"),
	}, nil
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn().Msg("Benchmark scheduler already running")
		return nil
	}

	s.cron = cron.New(cron.WithParser(cronParser))
	if _, err := s.cron.AddFunc(s.schedule, s.trigger); err != nil {
		return err
	}
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.schedule).
		Time("next_run", s.nextRun()).
		Msg("Benchmark scheduler started")
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Benchmark scheduler stopped")
}

func (s *Scheduler) trigger() {
	start := time.Now()
	s.logger.Info().Msg("Triggering scheduled benchmark run")

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled benchmark run failed")
		return
	}
	s.logger.Info().
		Dur("duration", time.Since(start)).
		Time("next_run", s.nextRun()).
		Msg("Scheduled benchmark run completed")
}

func (s *Scheduler) nextRun() time.Time {
	sched, err := cronParser.Parse(s.schedule)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(time.Now())
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
