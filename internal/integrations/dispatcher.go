package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/audit-intake/internal/retry"
	"github.com/p-blackswan/audit-intake/internal/store"
)

// ErrQueueFull is returned by Enqueue when a job could not be queued. The
// job is parked as a dead letter instead.
var ErrQueueFull = errors.New("integration queue is full")

// Job is one delivery of a lead to one integration.
type Job struct {
	ID        string
	Type      JobType
	Lead      Lead
	CreatedAt time.Time
}

// DeadLetterStore persists jobs that exhausted their retries.
type DeadLetterStore interface {
	SaveDeadLetter(dl *store.DeadLetter) error
	ListRetryable(limit int) ([]*store.DeadLetter, error)
	IncrementRetry(id string, nextRetryAt int64, lastErr string) error
	ResolveDeadLetter(id string) error
}

// Recorder receives one outcome per delivery attempt cycle.
type Recorder interface {
	RecordIntegration(jobType, status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordIntegration(string, string) {}

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	Workers       int
	QueueSize     int
	JobTimeout    time.Duration
	Retry         retry.Config
	MaxReplays    int
	ReplayBackoff time.Duration
	ReplayBatch   int
}

// Dispatcher fans leads out to the configured integrations on a worker pool.
// Each integration gets its own job so one failing never holds up the others.
type Dispatcher struct {
	cfg      DispatcherConfig
	handlers map[JobType]Handler
	order    []JobType
	queue    chan *Job
	dead     DeadLetterStore
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewDispatcher creates a dispatcher for handlers. dead may be nil, in which
// case final failures are only logged.
func NewDispatcher(cfg DispatcherConfig, dead DeadLetterStore, logger zerolog.Logger, handlers ...Handler) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	if cfg.MaxReplays <= 0 {
		cfg.MaxReplays = 5
	}
	if cfg.ReplayBackoff <= 0 {
		cfg.ReplayBackoff = 5 * time.Minute
	}
	if cfg.ReplayBatch <= 0 {
		cfg.ReplayBatch = 50
	}

	d := &Dispatcher{
		cfg:      cfg,
		handlers: make(map[JobType]Handler, len(handlers)),
		queue:    make(chan *Job, cfg.QueueSize),
		dead:     dead,
		recorder: nopRecorder{},
		logger:   logger.With().Str("component", "dispatcher").Logger(),
		now:      time.Now,
	}
	for _, h := range handlers {
		if h == nil {
			continue
		}
		if _, dup := d.handlers[h.Type()]; !dup {
			d.order = append(d.order, h.Type())
		}
		d.handlers[h.Type()] = h
	}
	return d
}

// SetRecorder sets the outcome recorder (for metrics).
func (d *Dispatcher) SetRecorder(r Recorder) {
	if r != nil {
		d.recorder = r
	}
}

// Enabled returns the job types that have a handler.
func (d *Dispatcher) Enabled() []JobType {
	out := make([]JobType, len(d.order))
	copy(out, d.order)
	return out
}

// Start launches worker goroutines.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.running.Swap(true) {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.logger.Info().Int("workers", d.cfg.Workers).Int("integrations", len(d.order)).Msg("dispatcher started")
}

// Stop cancels in-flight jobs and waits for the workers to exit.
func (d *Dispatcher) Stop() {
	if !d.running.Swap(false) {
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.logger.Info().Msg("dispatcher stopped")
}

// Enqueue queues one job per enabled integration and returns without
// waiting for delivery. Jobs that do not fit in the queue are parked as
// dead letters and picked up by the next replay.
func (d *Dispatcher) Enqueue(lead Lead) ([]*Job, error) {
	var (
		jobs []*Job
		errs []error
	)
	for _, t := range d.order {
		job := &Job{
			ID:        uuid.New().String(),
			Type:      t,
			Lead:      lead,
			CreatedAt: d.now().UTC(),
		}
		select {
		case d.queue <- job:
			jobs = append(jobs, job)
			d.logger.Debug().Str("job_id", job.ID).Str("type", string(t)).Str("report_id", lead.Report.ID).Msg("job enqueued")
		default:
			d.park(job, ErrQueueFull, d.now())
			errs = append(errs, fmt.Errorf("%s: %w", t, ErrQueueFull))
		}
	}
	return jobs, errors.Join(errs...)
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	log := d.logger.With().Int("worker", id).Logger()
	log.Debug().Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("worker stopping")
			return
		case job := <-d.queue:
			d.execute(ctx, job, log)
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, job *Job, log zerolog.Logger) {
	h, ok := d.handlers[job.Type]
	if !ok {
		log.Error().Str("job_id", job.ID).Str("type", string(job.Type)).Msg("no handler for job type")
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, d.cfg.JobTimeout)
	defer cancel()

	var res Result
	err := retry.Do(jobCtx, d.cfg.Retry, func(ctx context.Context) error {
		var err error
		res, err = h.Handle(ctx, job.Lead)
		return err
	})
	if err != nil {
		log.Error().Err(err).
			Str("job_id", job.ID).
			Str("type", string(job.Type)).
			Str("report_id", job.Lead.Report.ID).
			Msg("integration failed")
		d.recorder.RecordIntegration(string(job.Type), "failed")
		d.park(job, err, d.now().Add(d.cfg.ReplayBackoff))
		return
	}

	log.Info().
		Str("job_id", job.ID).
		Str("type", string(job.Type)).
		Interface("ids", res.IDs).
		Msg("integration delivered")
	d.recorder.RecordIntegration(string(job.Type), "success")
}

// park stores job as a dead letter due for replay at next.
func (d *Dispatcher) park(job *Job, cause error, next time.Time) {
	if d.dead == nil {
		return
	}
	payload, err := json.Marshal(job.Lead)
	if err != nil {
		d.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to encode dead letter")
		return
	}
	dl := &store.DeadLetter{
		ID:          job.ID,
		JobType:     string(job.Type),
		Payload:     string(payload),
		Error:       cause.Error(),
		CreatedAt:   job.CreatedAt.UnixMilli(),
		NextRetryAt: next.UnixMilli(),
	}
	if err := d.dead.SaveDeadLetter(dl); err != nil {
		d.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to save dead letter")
		return
	}
	d.recorder.RecordIntegration(string(job.Type), "dead_letter")
}

// ReplayStats summarises one replay pass.
type ReplayStats struct {
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
	GaveUp   int `json:"gaveUp"`
}

// ReplayDeadLetters makes one more attempt at every due dead letter. Waits
// grow linearly with the replay count; after MaxReplays the letter is left
// for manual handling.
func (d *Dispatcher) ReplayDeadLetters(ctx context.Context) (ReplayStats, error) {
	var stats ReplayStats
	if d.dead == nil {
		return stats, nil
	}

	due, err := d.dead.ListRetryable(d.cfg.ReplayBatch)
	if err != nil {
		return stats, fmt.Errorf("listing dead letters: %w", err)
	}

	for _, dl := range due {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		replayErr := d.replayOne(ctx, dl)
		if replayErr == nil {
			if err := d.dead.ResolveDeadLetter(dl.ID); err != nil {
				return stats, fmt.Errorf("resolving dead letter %s: %w", dl.ID, err)
			}
			stats.Resolved++
			d.recorder.RecordIntegration(dl.JobType, "replayed")
			continue
		}

		attempts := dl.RetryCount + 1
		var next int64
		if attempts < d.cfg.MaxReplays {
			next = d.now().Add(d.cfg.ReplayBackoff * time.Duration(attempts+1)).UnixMilli()
			stats.Failed++
		} else {
			stats.GaveUp++
		}
		if err := d.dead.IncrementRetry(dl.ID, next, replayErr.Error()); err != nil {
			return stats, fmt.Errorf("rescheduling dead letter %s: %w", dl.ID, err)
		}
		d.logger.Warn().Err(replayErr).
			Str("job_id", dl.ID).
			Str("type", dl.JobType).
			Int("attempts", attempts).
			Bool("gave_up", next == 0).
			Msg("dead letter replay failed")
	}

	return stats, nil
}

func (d *Dispatcher) replayOne(ctx context.Context, dl *store.DeadLetter) error {
	h, ok := d.handlers[JobType(dl.JobType)]
	if !ok {
		return fmt.Errorf("integration %q is not configured", dl.JobType)
	}
	var lead Lead
	if err := json.Unmarshal([]byte(dl.Payload), &lead); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}

	jobCtx, cancel := context.WithTimeout(ctx, d.cfg.JobTimeout)
	defer cancel()
	_, err := h.Handle(jobCtx, lead)
	return err
}
