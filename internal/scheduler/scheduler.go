// Package scheduler runs the ingestion job on a fixed interval. At most one
// run is in flight; fires that arrive while a run is active are dropped, and
// fires that arrive later than the grace window are skipped.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/telemetry"
)

// Job is the unit of scheduled work.
type Job func(ctx context.Context) error

// Options configures a Scheduler.
type Options struct {
	Name       string
	Interval   time.Duration
	Grace      time.Duration
	JobTimeout time.Duration
	// StateFile persists the last run so a fire missed while the process was
	// down can be caught up on start. Empty disables it.
	StateFile string

	Logger *zap.Logger
	Now    func() time.Time
}

// Scheduler periodically runs one job.
type Scheduler struct {
	cron  *gocron.Scheduler
	entry *gocron.Job
	job   Job
	opts  Options
	state *stateFile

	running atomic.Bool

	mu        sync.Mutex
	started   bool
	nextDue   time.Time
	lastRun   time.Time
	lastError string
	runs      int
	failures  int
	coalesced int
	misfires  int

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a Scheduler. Nothing runs until Start.
func New(job Job, opts Options) *Scheduler {
	if opts.Name == "" {
		opts.Name = "fetch-weather"
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.Grace <= 0 {
		opts.Grace = time.Minute
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = opts.Interval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   gocron.NewScheduler(time.UTC),
		job:    job,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
	if opts.StateFile != "" {
		s.state = &stateFile{path: opts.StateFile}
	}
	return s
}

// Start schedules the job and starts the underlying scheduler. A fire
// missed while the process was down runs once immediately if it is within
// the grace window.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}

	entry, err := s.cron.Every(s.opts.Interval).WaitForSchedule().Tag(s.opts.Name).Do(s.tick)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("schedule %s: %w", s.opts.Name, err)
	}
	s.entry = entry
	s.started = true
	s.nextDue = s.opts.Now().Add(s.opts.Interval)
	s.mu.Unlock()

	s.catchUp()

	s.cron.StartAsync()
	s.opts.Logger.Info("scheduler started",
		zap.String("job", s.opts.Name),
		zap.Duration("interval", s.opts.Interval),
		zap.Duration("grace", s.opts.Grace))
	return nil
}

func (s *Scheduler) catchUp() {
	if s.state == nil {
		return
	}
	last, err := s.state.load()
	if err != nil {
		s.opts.Logger.Warn("scheduler state unreadable", zap.String("path", s.state.path), zap.Error(err))
		return
	}
	if last.IsZero() {
		return
	}

	s.mu.Lock()
	s.lastRun = last
	s.mu.Unlock()

	missed := last.Add(s.opts.Interval)
	late := s.opts.Now().Sub(missed)
	switch {
	case late <= 0:
		return
	case late > s.opts.Grace:
		s.countMisfire(missed, late)
	default:
		s.opts.Logger.Info("running missed job",
			zap.String("job", s.opts.Name),
			zap.Time("due", missed),
			zap.Duration("late", late))
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.execute("catch-up")
		}()
	}
}

// tick is the gocron callback.
func (s *Scheduler) tick() {
	s.wg.Add(1)
	defer s.wg.Done()
	if s.ctx.Err() != nil {
		return
	}

	now := s.opts.Now()
	s.mu.Lock()
	due := s.nextDue
	s.nextDue = now.Add(s.opts.Interval)
	s.mu.Unlock()

	if late := now.Sub(due); late > s.opts.Grace {
		s.countMisfire(due, late)
		return
	}
	s.execute("schedule")
}

func (s *Scheduler) countMisfire(due time.Time, late time.Duration) {
	s.mu.Lock()
	s.misfires++
	s.mu.Unlock()
	telemetry.SchedulerRuns.WithLabelValues("misfire").Inc()
	s.opts.Logger.Warn("skipping fire beyond grace window",
		zap.String("job", s.opts.Name),
		zap.Time("due", due),
		zap.Duration("late", late),
		zap.Duration("grace", s.opts.Grace))
}

// Trigger runs the job now unless a run is already active. It reports
// whether the job ran.
func (s *Scheduler) Trigger() bool {
	s.wg.Add(1)
	defer s.wg.Done()
	return s.execute("manual")
}

func (s *Scheduler) execute(reason string) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.mu.Lock()
		s.coalesced++
		s.mu.Unlock()
		telemetry.SchedulerRuns.WithLabelValues("coalesced").Inc()
		s.opts.Logger.Info("job already running, fire coalesced",
			zap.String("job", s.opts.Name),
			zap.String("reason", reason))
		return false
	}
	defer s.running.Store(false)

	runID := uuid.NewString()
	logger := s.opts.Logger.With(
		zap.String("job", s.opts.Name),
		zap.String("run_id", runID),
		zap.String("reason", reason))

	start := s.opts.Now()
	logger.Info("job started")

	err := s.runJob()

	s.mu.Lock()
	s.runs++
	s.lastRun = start
	if err != nil {
		s.failures++
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		telemetry.SchedulerRuns.WithLabelValues("error").Inc()
		logger.Error("job failed", zap.Error(err), zap.Duration("took", s.opts.Now().Sub(start)))
	} else {
		telemetry.SchedulerRuns.WithLabelValues("ok").Inc()
		logger.Info("job completed", zap.Duration("took", s.opts.Now().Sub(start)))
	}

	if s.state != nil {
		if err := s.state.save(start); err != nil {
			logger.Warn("failed to persist scheduler state", zap.Error(err))
		}
	}
	return true
}

// runJob shields the scheduler from job panics.
func (s *Scheduler) runJob() (err error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return s.job(ctx)
}

// Stop stops scheduling, cancels an in-flight run and waits for it.
// Calling Stop more than once, or before Start, is a no-op.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()

		// gocron's Stop waits for running jobs, so cancel them first.
		s.cancel()
		if started {
			s.cron.Stop()
		}
		s.wg.Wait()
		s.opts.Logger.Info("scheduler stopped", zap.String("job", s.opts.Name))
	})
}

// Status is a snapshot of the scheduler.
type Status struct {
	Job       string     `json:"job"`
	Started   bool       `json:"started"`
	Running   bool       `json:"running"`
	Interval  string     `json:"interval"`
	Grace     string     `json:"grace"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Runs      int        `json:"runs"`
	Failures  int        `json:"failures"`
	Coalesced int        `json:"coalesced"`
	Misfires  int        `json:"misfires"`
}

// Status returns the current state, including the next scheduled fire once
// started.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Job:       s.opts.Name,
		Started:   s.started,
		Running:   s.running.Load(),
		Interval:  s.opts.Interval.String(),
		Grace:     s.opts.Grace.String(),
		LastError: s.lastError,
		Runs:      s.runs,
		Failures:  s.failures,
		Coalesced: s.coalesced,
		Misfires:  s.misfires,
	}
	if !s.lastRun.IsZero() {
		last := s.lastRun
		st.LastRun = &last
	}
	if s.started && s.cron.IsRunning() && s.entry != nil {
		next := s.entry.NextRun()
		st.NextRun = &next
	}
	return st
}
