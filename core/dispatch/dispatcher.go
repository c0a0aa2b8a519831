// Package dispatch runs fire-and-forget jobs on a bounded worker pool with retries.
// Telegram replies and journal writes both go through it so that a slow remote
// never holds a user's session.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/minerva/core/logger"
	"github.com/m3rciful/minerva/core/netutil"
)

var (
	// ErrClosed is returned when Enqueue is called after Close.
	ErrClosed = errors.New("dispatch: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("dispatch: queue full")
)

// Options controls the behaviour of a Dispatcher.
type Options struct {
	// Component names the dispatcher in logs, e.g. "tg.sender".
	Component    string
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on a single job including retries.
	MaxDuration time.Duration
	// ShouldRetry decides whether a failed attempt is repeated. Defaults to netutil.ShouldRetry.
	ShouldRetry func(error) bool
	// Classify maps a final error to err_code. Defaults to netutil.ClassifyError.
	Classify func(error) string
}

// Func is one unit of work. It must be idempotent when retries are enabled.
type Func func(ctx context.Context) error

type job struct {
	ctx    context.Context
	action string
	run    Func
}

// Dispatcher executes jobs asynchronously.
type Dispatcher struct {
	opts Options

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup

	done atomic.Uint64
	errs atomic.Uint64
}

// New starts a dispatcher, filling zero options with defaults.
func New(opts Options) *Dispatcher {
	if opts.Component == "" {
		opts.Component = "dispatch"
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}
	if opts.ShouldRetry == nil {
		opts.ShouldRetry = netutil.ShouldRetry
	}
	if opts.Classify == nil {
		opts.Classify = netutil.ClassifyError
	}

	d := &Dispatcher{
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Enqueue schedules run without blocking. The job keeps ctx values but not its
// cancellation, so a reply still goes out after the inbound request finished.
func (d *Dispatcher) Enqueue(ctx context.Context, action string, run Func) error {
	if run == nil {
		return errors.New("dispatch: nil job")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.jobs <- job{ctx: context.WithoutCancel(ctx), action: action, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Completed returns the number of jobs that finished successfully.
func (d *Dispatcher) Completed() uint64 {
	return d.done.Load()
}

// ErrorCount returns the number of jobs that failed after all attempts.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits until queued jobs are processed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.wg.Wait()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.handle(j)
	}
}

func (d *Dispatcher) handle(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var err error
attemptLoop:
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = d.run(ctx, j); err == nil {
			d.done.Add(1)
			if attempt > 1 {
				logger.Info(j.ctx, d.opts.Component, "job.retry.success",
					slog.String("payload", j.action),
					slog.Int("attempts", attempt),
					slog.Duration("duration", time.Since(start)),
				)
			}
			return
		}
		if !d.opts.ShouldRetry(err) || attempt == attempts {
			break
		}

		delay := d.opts.RetryBackoff * time.Duration(attempt)
		logger.Debug(j.ctx, d.opts.Component, "job.retry",
			slog.String("status", "retry"),
			slog.String("payload", j.action),
			slog.Int("attempts", attempt),
			slog.Duration("backoff", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
			break attemptLoop
		case <-timer.C:
		}
	}

	d.errs.Add(1)
	logger.Error(j.ctx, d.opts.Component, "job.fail",
		slog.String("status", "fail"),
		slog.String("payload", j.action),
		slog.String("err", netutil.Redact(err.Error())),
		slog.String("err_code", d.opts.Classify(err)),
		slog.Int("attempts", attempts),
		slog.Duration("duration", time.Since(start)),
	)
}

// run executes one attempt, turning a panic into an error so a worker never dies.
func (d *Dispatcher) run(ctx context.Context, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return j.run(ctx)
}

// PanicError carries a value recovered from a job.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return "dispatch: job panicked: " + slog.AnyValue(e.Value).String()
}
