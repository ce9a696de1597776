// Package sweeper drives ProcessDueSubscriptions on a cron schedule.
//
// Each sweep visits every registered owner and calls the ledger repeatedly
// until it reports no more due subscriptions or the round limit is hit, so a
// backlog several periods deep drains within one sweep.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/xraph/subsplit"
	"github.com/xraph/subsplit/types"
)

// Defaults applied by New.
const (
	DefaultSchedule  = "@every 1m"
	DefaultBatchSize = 100
	DefaultMaxRounds = 50
)

// Processor is the ledger surface the sweeper drives.
type Processor interface {
	ProcessDueSubscriptions(ctx context.Context, caller subsplit.Caller, owner types.Address, maxCount int, now types.Timestamp) (int, error)
}

// Purger removes deleted records older than a cutoff. The SQL stores implement it.
type Purger interface {
	PurgeTombstones(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job is one owner swept with the given caller identity, which must be the
// owner or its batch delegate.
type Job struct {
	Owner  types.Address
	Caller types.Address
}

// Report summarizes one sweep.
type Report struct {
	Processed map[types.Address]int
	Purged    int64
	Elapsed   time.Duration
}

// Total returns the number of transitions across all owners.
func (r Report) Total() int {
	var n int
	for _, v := range r.Processed {
		n += v
	}
	return n
}

// Sweeper schedules due-subscription processing.
type Sweeper struct {
	ledger Processor
	logger *slog.Logger
	clock  func() time.Time

	schedule  string
	batchSize int
	maxRounds int

	purger    Purger
	retention time.Duration

	mu   sync.Mutex
	jobs []Job
	cron *cron.Cron
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithSchedule sets the cron spec. Descriptors such as "@every 30s" are accepted.
func WithSchedule(spec string) Option {
	return func(s *Sweeper) { s.schedule = spec }
}

// WithBatchSize sets max_count for each ProcessDueSubscriptions call.
func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithMaxRounds bounds the calls made per owner in one sweep.
func WithMaxRounds(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.maxRounds = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = logger }
}

// WithClock overrides the time source used for "now".
func WithClock(clock func() time.Time) Option {
	return func(s *Sweeper) { s.clock = clock }
}

// WithTombstonePurge purges deleted records older than retention after each sweep.
func WithTombstonePurge(p Purger, retention time.Duration) Option {
	return func(s *Sweeper) {
		s.purger = p
		s.retention = retention
	}
}

// New creates a Sweeper for ledger.
func New(ledger Processor, opts ...Option) *Sweeper {
	s := &Sweeper{
		ledger:    ledger,
		logger:    slog.Default(),
		clock:     time.Now,
		schedule:  DefaultSchedule,
		batchSize: DefaultBatchSize,
		maxRounds: DefaultMaxRounds,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers an owner. An empty caller sweeps as the owner itself.
func (s *Sweeper) Add(owner, caller types.Address) {
	if caller.IsZero() {
		caller = owner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, Job{Owner: owner, Caller: caller})
}

// Jobs returns the registered jobs.
func (s *Sweeper) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Job(nil), s.jobs...)
}

// SweepOnce runs one sweep over every job. Errors from individual owners
// are joined; the remaining owners are still swept.
func (s *Sweeper) SweepOnce(ctx context.Context) (Report, error) {
	start := time.Now()
	now := types.FromTime(s.clock())
	report := Report{Processed: make(map[types.Address]int)}

	var errs []error
	for _, job := range s.Jobs() {
		n, err := s.drain(ctx, job, now)
		report.Processed[job.Owner] += n
		if err != nil {
			errs = append(errs, fmt.Errorf("sweeper: owner %s: %w", job.Owner, err))
		}
	}

	if s.purger != nil {
		purged, err := s.purger.PurgeTombstones(ctx, s.clock().Add(-s.retention))
		if err != nil {
			errs = append(errs, fmt.Errorf("sweeper: purge tombstones: %w", err))
		}
		report.Purged = purged
	}

	report.Elapsed = time.Since(start)
	s.logger.Info("sweep finished",
		"owners", len(report.Processed),
		"processed", report.Total(),
		"purged", report.Purged,
		"elapsed_ms", report.Elapsed.Milliseconds(),
	)
	return report, errors.Join(errs...)
}

// drain calls the ledger until nothing is due or maxRounds is reached.
func (s *Sweeper) drain(ctx context.Context, job Job, now types.Timestamp) (int, error) {
	var total int
	for round := 0; round < s.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := s.ledger.ProcessDueSubscriptions(ctx, subsplit.CallerOf(job.Caller), job.Owner, s.batchSize, now)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
	s.logger.Warn("sweep round limit reached",
		"owner", job.Owner,
		"processed", total,
		"max_rounds", s.maxRounds,
	)
	return total, nil
}

// Start schedules sweeps. It returns an error for an invalid schedule.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("sweeper: already started")
	}

	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() {
		if _, err := s.SweepOnce(ctx); err != nil {
			s.logger.Error("sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("sweeper: schedule %q: %w", s.schedule, err)
	}

	c.Start()
	s.cron = c
	s.logger.Info("sweeper started", "schedule", s.schedule, "owners", len(s.jobs))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
}
