// Package scheduler runs periodic maintenance jobs, like session sweeps and
// conversation retention pruning, independently of request handling.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/movedesk/chatbot/core/logger"
)

// ErrInvalidJob indicates a job with missing or unusable configuration.
var ErrInvalidJob = errors.New("scheduler: invalid job")

// DefaultTimeout bounds a single job run when the job does not set its own.
const DefaultTimeout = time.Minute

// Job is one periodic maintenance task. Run returns how many rows it
// affected, for logging.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) (int64, error)
}

// Scheduler drives registered jobs on their intervals. Each job runs on its
// own ticker so a slow sweep cannot delay the others.
type Scheduler struct {
	jobs []Job
	log  *slog.Logger
}

// New validates the jobs and creates a scheduler.
func New(log *slog.Logger, jobs ...Job) (*Scheduler, error) {
	if log == nil {
		log = logger.NewDiscard()
	}
	for i := range jobs {
		if jobs[i].Name == "" || jobs[i].Run == nil || jobs[i].Interval <= 0 {
			return nil, fmt.Errorf("%w: name, interval and run are required", ErrInvalidJob)
		}
		if jobs[i].Timeout <= 0 {
			jobs[i].Timeout = DefaultTimeout
		}
	}
	return &Scheduler{jobs: jobs, log: log}, nil
}

// Run provides errgroup compatibility for coordinated lifecycle management.
// Every job runs once at startup and then on its interval until the context
// is cancelled.
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		g, ctx := errgroup.WithContext(ctx)
		for _, job := range s.jobs {
			g.Go(func() error {
				s.drive(ctx, job)
				return nil
			})
		}
		return g.Wait()
	}
}

func (s *Scheduler) drive(ctx context.Context, job Job) {
	s.runOnce(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

// runOnce executes the job with its timeout. Failures are logged, never
// fatal: a broken sweep must not take the scheduler down with it.
func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	runCtx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()

	affected, err := job.Run(runCtx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.log.ErrorContext(ctx, "maintenance job failed",
			logger.Component("scheduler"),
			slog.String("job", job.Name),
			logger.Error(err))
		return
	}
	if affected > 0 {
		s.log.InfoContext(ctx, "maintenance job completed",
			logger.Component("scheduler"),
			slog.String("job", job.Name),
			slog.Int64("affected", affected))
	}
}
