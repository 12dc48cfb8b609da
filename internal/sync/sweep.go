package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"edflex-sync/internal/config"
	"edflex-sync/internal/metrics"
	"edflex-sync/internal/models"
	"edflex-sync/internal/providers"
)

// ErrScopeBusy is returned for a scope that already has a run in progress.
var ErrScopeBusy = errors.New("sync: scope already running")

// Sweeper runs a sync mode over every configured credential scope, one
// scope at a time, and records the outcome per scope.
type Sweeper struct {
	Engine  *Engine
	Sources providers.SourceFactory
	Metrics *metrics.Metrics
	Logger  *zap.Logger

	mu      gosync.Mutex
	running map[string]bool
}

// ScopeResult is the outcome of one scope within a sweep.
type ScopeResult struct {
	Scope  string
	Result Result
	Err    error
}

// Run executes mode for each scope of cfg.SyncScopes. Incomplete tenant
// configurations are logged and skipped. The returned error joins the
// per-scope failures; a cancelled context stops the sweep.
func (s *Sweeper) Run(ctx context.Context, cfg config.Config, mode Mode) ([]ScopeResult, error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}

	scopes, cfgErrs := cfg.SyncScopes()
	for _, err := range cfgErrs {
		log.Warn("sync: scope skipped", zap.Error(err))
	}
	if len(scopes) == 0 {
		log.Warn("sync: no configured scope", zap.String("mode", string(mode)))
	}

	var (
		out  []ScopeResult
		errs []error
	)
	for _, tc := range scopes {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := s.runScope(ctx, tc, mode)
		out = append(out, ScopeResult{Scope: tc.Scope, Result: res, Err: err})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tc.Scope, err))
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return out, errors.Join(errs...)
			}
		}
	}
	return out, errors.Join(errs...)
}

func (s *Sweeper) runScope(ctx context.Context, tc config.TenantConfig, mode Mode) (Result, error) {
	if !s.acquire(tc.Scope) {
		return Result{}, ErrScopeBusy
	}
	defer s.release(tc.Scope)

	started := time.Now().UTC()
	src := s.Sources.Source(tc)

	var (
		res Result
		err error
	)
	switch mode {
	case ModeFull:
		res, err = s.Engine.SyncCatalogs(ctx, src)
	case ModeNew:
		res, err = s.Engine.SyncNewResources(ctx, src)
	default:
		err = fmt.Errorf("sync: unknown mode %q", mode)
	}

	s.Metrics.ObserveRun(mode.Job(), tc.Scope, time.Since(started), err)
	s.Metrics.AddResources(mode.Job(), "upserted", res.ResourcesUpserted)
	s.Metrics.AddResources(mode.Job(), "failed", res.ResourcesFailed)
	s.Metrics.AddResources(mode.Job(), "deleted", res.ResourcesDeleted)
	s.Metrics.AddCategories(mode.Job(), "upserted", res.CategoriesUpserted)
	s.Metrics.AddCategories(mode.Job(), "deleted", res.CategoriesDeleted)

	if stateErr := s.saveState(ctx, tc.Scope, mode, started, res, err); stateErr != nil && s.Logger != nil {
		s.Logger.Warn("sync: state not saved", zap.String("tenant", tc.Scope), zap.Error(stateErr))
	}
	return res, err
}

func (s *Sweeper) saveState(ctx context.Context, scope string, mode Mode, started time.Time, res Result, runErr error) error {
	ctx = context.WithoutCancel(ctx)
	store := s.Engine.Store
	prev, err := store.GetSyncState(ctx, scope, string(mode))
	if err != nil {
		return err
	}
	state := models.SyncState{Scope: scope, Mode: string(mode), LastAttemptAt: &started}
	if prev != nil {
		state.LastSuccessAt = prev.LastSuccessAt
	}
	if runErr != nil {
		msg := runErr.Error()
		state.LastError = &msg
	} else {
		now := time.Now().UTC()
		state.LastSuccessAt = &now
	}
	stats, err := json.Marshal(res)
	if err != nil {
		return err
	}
	state.StatsJSON = datatypes.JSON(stats)
	return store.SaveSyncState(ctx, &state)
}

func (s *Sweeper) acquire(scope string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		s.running = map[string]bool{}
	}
	if s.running[scope] {
		return false
	}
	s.running[scope] = true
	return true
}

func (s *Sweeper) release(scope string) {
	s.mu.Lock()
	delete(s.running, scope)
	s.mu.Unlock()
}
