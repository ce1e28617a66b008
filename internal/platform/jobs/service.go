package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Func is the body of a job. Its result is kept with the run record.
type Func func(ctx context.Context) (any, error)

// Run records one execution of a job.
type Run struct {
	Name       string     `json:"name"`
	Trigger    string     `json:"trigger"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Result     any        `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type job struct {
	name    string
	trigger string
	run     Func
}

// Service runs jobs on cron schedules and on demand, one at a time, and
// keeps the most recent runs in memory.
type Service struct {
	logger  *zap.Logger
	cron    *cron.Cron
	queue   chan job
	mu      sync.Mutex
	exec    sync.Mutex
	runs    []Run
	keep    int
	baseCtx context.Context
	now     func() time.Time
}

func New(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger:  logger,
		cron:    cron.New(),
		queue:   make(chan job, 16),
		keep:    50,
		baseCtx: context.Background(),
		now:     time.Now,
	}
}

// Schedule runs fn on a standard five field cron spec.
func (s *Service) Schedule(spec, name string, fn Func) error {
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.execute(s.baseCtx, job{name: name, trigger: "schedule", run: fn}); err != nil {
			s.logger.Warn("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.logger.Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Start runs the scheduler and the queue worker until ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.baseCtx = ctx
	go s.worker(ctx)
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running scheduled job.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Service) Enqueue(name string, fn Func) {
	select {
	case s.queue <- job{name: name, trigger: "queue", run: fn}:
	default:
		s.logger.Warn("job queue full", zap.String("job", name))
	}
}

func (s *Service) RunNow(ctx context.Context, name string, fn Func) (any, error) {
	return s.execute(ctx, job{name: name, trigger: "manual", run: fn})
}

// Runs returns the recorded runs, newest first.
func (s *Service) Runs() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Run, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		out = append(out, s.runs[i])
	}
	return out
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.execute(ctx, j); err != nil {
				s.logger.Warn("queued job failed", zap.String("job", j.name), zap.Error(err))
			}
		}
	}
}

func (s *Service) execute(ctx context.Context, j job) (result any, err error) {
	s.exec.Lock()
	defer s.exec.Unlock()

	i := s.record(Run{Name: j.name, Trigger: j.trigger, Status: StatusRunning, StartedAt: s.now().UTC()})
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
		}
		s.finish(i, result, err)
	}()
	return j.run(ctx)
}

func (s *Service) record(run Run) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.runs) >= s.keep {
		s.runs = append(s.runs[:0], s.runs[1:]...)
	}
	s.runs = append(s.runs, run)
	return len(s.runs) - 1
}

func (s *Service) finish(i int, result any, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.runs) {
		return
	}
	done := s.now().UTC()
	run := &s.runs[i]
	run.FinishedAt = &done
	run.Result = result
	run.Status = StatusCompleted
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
	}
	s.logger.Info("job finished",
		zap.String("job", run.Name),
		zap.String("trigger", run.Trigger),
		zap.String("status", run.Status),
		zap.Duration("duration", done.Sub(run.StartedAt)),
	)
}
