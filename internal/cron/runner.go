package cronrunner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner schedules jobs on six-field (seconds-first) cron specs. A job
// whose previous run is still going is skipped for that tick.
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context

	mu      sync.Mutex
	running map[string]bool
}

func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
		baseCtx: baseCtx,
		running: map[string]bool{},
	}
}

// Add registers job under name. An empty spec leaves the job unscheduled.
func (r *Runner) Add(name, spec string, job func(context.Context)) (cron.EntryID, error) {
	if spec == "" {
		r.logger.Info("cron job disabled", zap.String("job", name))
		return 0, nil
	}
	id, err := r.cron.AddFunc(spec, func() { r.run(name, job) })
	if err != nil {
		return 0, fmt.Errorf("cron: job %s: %w", name, err)
	}
	r.logger.Info("cron job scheduled", zap.String("job", name), zap.String("spec", spec))
	return id, nil
}

func (r *Runner) run(name string, job func(context.Context)) {
	r.mu.Lock()
	if r.running[name] {
		r.mu.Unlock()
		r.logger.Warn("cron job still running, tick skipped", zap.String("job", name))
		return
	}
	r.running[name] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.running, name)
		r.mu.Unlock()
		if p := recover(); p != nil {
			r.logger.Error("cron job panicked", zap.String("job", name), zap.Any("panic", p))
		}
	}()

	started := time.Now()
	job(r.baseCtx)
	r.logger.Info("cron job finished", zap.String("job", name), zap.Duration("took", time.Since(started)))
}

func (r *Runner) Start() {
	r.logger.Info("cron started")
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}

func (r *Runner) Entries() []cron.Entry {
	return r.cron.Entries()
}
