package integrations

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/audit-intake/internal/store"
)

// Retainer prunes old records.
type Retainer interface {
	RunRetention(ctx context.Context, leadMaxAge time.Duration) (store.RetentionResult, error)
}

// SchedulerConfig holds the periodic job intervals.
type SchedulerConfig struct {
	RetentionInterval  time.Duration
	LeadRetention      time.Duration
	DeadLetterInterval time.Duration
}

// Scheduler runs retention and dead-letter replay on fixed intervals.
type Scheduler struct {
	cron       gocron.Scheduler
	cfg        SchedulerConfig
	dispatcher *Dispatcher
	retainer   Retainer
	logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Either dispatcher or retainer may be nil
// to skip its job.
func NewScheduler(cfg SchedulerConfig, dispatcher *Dispatcher, retainer Retainer, logger zerolog.Logger) (*Scheduler, error) {
	cron, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:       cron,
		cfg:        cfg,
		dispatcher: dispatcher,
		retainer:   retainer,
		logger:     logger.With().Str("component", "scheduler").Logger(),
		ctx:        ctx,
		cancel:     cancel,
	}

	if retainer != nil && cfg.RetentionInterval > 0 {
		if err := s.add("retention", cfg.RetentionInterval, s.RunRetention); err != nil {
			cancel()
			return nil, err
		}
	}
	if dispatcher != nil && cfg.DeadLetterInterval > 0 {
		if err := s.add("dead_letter_replay", cfg.DeadLetterInterval, s.ReplayDeadLetters); err != nil {
			cancel()
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(name string, every time.Duration, fn func(context.Context)) error {
	_, err := s.cron.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() { fn(s.ctx) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("registering %s job: %w", name, err)
	}
	s.logger.Info().Str("job", name).Dur("every", every).Msg("job registered")
	return nil
}

// Jobs returns the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	jobs := s.cron.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("scheduler started")
}

// Stop cancels running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.cancel()
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("stopping scheduler: %w", err)
	}
	s.logger.Info().Msg("scheduler stopped")
	return nil
}

// RunRetention runs one retention pass.
func (s *Scheduler) RunRetention(ctx context.Context) {
	res, err := s.retainer.RunRetention(ctx, s.cfg.LeadRetention)
	if err != nil {
		s.logger.Error().Err(err).Msg("retention failed")
		return
	}
	if res.Leads > 0 || res.DeadLetters > 0 {
		s.logger.Info().Int64("leads", res.Leads).Int64("dead_letters", res.DeadLetters).Msg("retention pruned records")
	}
}

// ReplayDeadLetters runs one replay pass.
func (s *Scheduler) ReplayDeadLetters(ctx context.Context) {
	stats, err := s.dispatcher.ReplayDeadLetters(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("dead letter replay failed")
		return
	}
	if stats.Resolved+stats.Failed+stats.GaveUp > 0 {
		s.logger.Info().
			Int("resolved", stats.Resolved).
			Int("failed", stats.Failed).
			Int("gave_up", stats.GaveUp).
			Msg("dead letters replayed")
	}
}
