// Package scheduler hosts the periodic workers. Each registered job runs in
// its own goroutine on a sleep-after-completion interval, with individual
// cancellation and a status snapshot for the API layer.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/paperprofit/internal/modules/syslog"
)

// ErrAlreadyRegistered is returned when registering over a running job.
var ErrAlreadyRegistered = errors.New("job is already registered and running")

// Task is one worker iteration. Errors are logged and the next tick
// proceeds.
type Task func(ctx context.Context) error

// stopTimeout bounds how long Stop waits for a worker to join.
const stopTimeout = 5 * time.Second

type job struct {
	name     string
	task     Task
	interval time.Duration

	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	lastRun  time.Time
	lastErr  string
	runCount int64
}

// JobStatus is a read-only snapshot of one job.
type JobStatus struct {
	Name     string    `json:"name"`
	Running  bool      `json:"running"`
	Interval string    `json:"interval"`
	LastRun  time.Time `json:"last_run,omitempty"`
	LastErr  string    `json:"last_error,omitempty"`
	RunCount int64     `json:"run_count"`
}

// Controller owns the job registry.
type Controller struct {
	mu     sync.RWMutex
	jobs   map[string]*job
	syslog *syslog.Repository
	log    zerolog.Logger
}

// NewController creates an empty controller. syslogRepo may be nil.
func NewController(syslogRepo *syslog.Repository, log zerolog.Logger) *Controller {
	return &Controller{
		jobs:   make(map[string]*job),
		syslog: syslogRepo,
		log:    log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds a job. A duplicate name is replaced only while stopped;
// registering over a running job fails with ErrAlreadyRegistered.
func (c *Controller) Register(name string, task Task, interval time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.jobs[name]; ok && existing.running {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	c.jobs[name] = &job{name: name, task: task, interval: interval}
	c.log.Info().Str("job", name).Dur("interval", interval).Msg("Job registered")
	return nil
}

// Start launches the named job, or every registered job when name is
// empty. Starting a running job is a no-op with a warning.
func (c *Controller) Start(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if name != "" {
		j, ok := c.jobs[name]
		if !ok {
			return fmt.Errorf("unknown job %q", name)
		}
		c.startLocked(j)
		return nil
	}

	for _, j := range c.jobs {
		c.startLocked(j)
	}
	return nil
}

func (c *Controller) startLocked(j *job) {
	if j.running {
		c.log.Warn().Str("job", j.name).Msg("Job already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.running = true
	j.cancel = cancel
	j.done = make(chan struct{})

	go c.run(ctx, j)
	c.log.Info().Str("job", j.name).Msg("Job started")
}

// run is the worker loop: execute, record, wait. A task error never
// terminates the loop, and cancellation interrupts the wait immediately.
func (c *Controller) run(ctx context.Context, j *job) {
	defer close(j.done)

	for {
		if ctx.Err() != nil {
			return
		}

		err := c.safeRun(ctx, j)

		c.mu.Lock()
		j.lastRun = time.Now().UTC()
		j.runCount++
		if err != nil {
			j.lastErr = err.Error()
		} else {
			j.lastErr = ""
		}
		c.mu.Unlock()

		if err != nil {
			c.log.Error().Err(err).Str("job", j.name).Msg("Job iteration failed")
			if c.syslog != nil {
				c.syslog.Error("scheduler", fmt.Sprintf("Job %s failed", j.name), err.Error())
			}
		}

		timer := time.NewTimer(j.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// safeRun converts a task panic into an error so a bad iteration cannot
// take down the worker.
func (c *Controller) safeRun(ctx context.Context, j *job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return j.task(ctx)
}

// Stop cancels the named job, or every job when name is empty, waiting up
// to stopTimeout per job. Stopping a stopped job is a no-op.
func (c *Controller) Stop(name string) error {
	c.mu.Lock()
	var targets []*job
	if name != "" {
		j, ok := c.jobs[name]
		if !ok {
			c.mu.Unlock()
			return fmt.Errorf("unknown job %q", name)
		}
		targets = append(targets, j)
	} else {
		for _, j := range c.jobs {
			targets = append(targets, j)
		}
	}

	var waits []*job
	for _, j := range targets {
		if !j.running {
			continue
		}
		j.cancel()
		waits = append(waits, j)
	}
	c.mu.Unlock()

	for _, j := range waits {
		select {
		case <-j.done:
		case <-time.After(stopTimeout):
			c.log.Warn().Str("job", j.name).Msg("Job did not stop within timeout")
		}

		c.mu.Lock()
		j.running = false
		j.cancel = nil
		c.mu.Unlock()
		c.log.Info().Str("job", j.name).Msg("Job stopped")
	}
	return nil
}

// Remove stops and deregisters a job. Removing a missing job is a no-op.
func (c *Controller) Remove(name string) {
	c.mu.RLock()
	_, ok := c.jobs[name]
	c.mu.RUnlock()
	if !ok {
		return
	}

	_ = c.Stop(name)

	c.mu.Lock()
	delete(c.jobs, name)
	c.mu.Unlock()
	c.log.Info().Str("job", name).Msg("Job removed")
}

// Status returns a snapshot of every job, safe under concurrent mutation.
func (c *Controller) Status() map[string]JobStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]JobStatus, len(c.jobs))
	for name, j := range c.jobs {
		out[name] = JobStatus{
			Name:     name,
			Running:  j.running,
			Interval: j.interval.String(),
			LastRun:  j.lastRun,
			LastErr:  j.lastErr,
			RunCount: j.runCount,
		}
	}
	return out
}
