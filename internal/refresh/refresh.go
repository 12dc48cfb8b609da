// Package refresh keeps resource snapshots embedded in course content in
// line with the partner API.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"

	"edflex-sync/internal/concurrency"
	"edflex-sync/internal/config"
	"edflex-sync/internal/domain"
	"edflex-sync/internal/metrics"
	"edflex-sync/internal/providers"
)

// ErrNoPrivilegedUser aborts a run that has nobody to attribute edits to.
var ErrNoPrivilegedUser = errors.New("refresh: no active staff or superuser")

type Course struct {
	ID  string
	Org string
}

type User struct {
	ID       uint
	Username string
}

type CourseStore interface {
	ListCourses(ctx context.Context) ([]Course, error)
	LoadCourse(ctx context.Context, courseID string, depth int) (Node, error)
}

type IdentityStore interface {
	// FirstPrivilegedUser returns nil, nil when there is none.
	FirstPrivilegedUser(ctx context.Context) (*User, error)
}

// Versioning persists a changed block: the draft save, the update of the
// stored item and the publish are separate steps of the content store.
type Versioning interface {
	SaveDraft(ctx context.Context, node ResourceNode) (Location, error)
	UpdateItem(ctx context.Context, node ResourceNode, userID uint) error
	Publish(ctx context.Context, loc Location, userID uint) error
}

type ClientResolver interface {
	ForOrg(org string) (providers.CatalogSource, error)
}

// ConfigClients resolves an organization to its credentials and builds the
// matching source. Organizations without usable credentials get the
// *config.ConfigError of the resolution.
type ConfigClients struct {
	Config  config.Config
	Sources providers.SourceFactory
}

func (c ConfigClients) ForOrg(org string) (providers.CatalogSource, error) {
	tc, err := c.Config.Resolve(org)
	if err != nil {
		return nil, err
	}
	return c.Sources.Source(tc), nil
}

type Refresher struct {
	Courses    CourseStore
	Identities IdentityStore
	Versioning Versioning
	Clients    ClientResolver
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	// Workers is the number of courses processed at once.
	Workers int
	Depth   int
}

type Result struct {
	CoursesVisited int
	CoursesSkipped int
	NodesChecked   int
	NodesUpdated   int
	NodesFailed    int
}

func (r *Result) add(o Result) {
	r.CoursesVisited += o.CoursesVisited
	r.CoursesSkipped += o.CoursesSkipped
	r.NodesChecked += o.NodesChecked
	r.NodesUpdated += o.NodesUpdated
	r.NodesFailed += o.NodesFailed
}

var snapshotEquality = cmpopts.EquateEmpty()

// Run checks every course. A course whose tree or credentials cannot be
// resolved is skipped; the sweep carries on with the next one.
func (r *Refresher) Run(ctx context.Context) (res Result, err error) {
	started := time.Now()
	defer func() {
		r.Metrics.ObserveRun("refresh", "all", time.Since(started), err)
		r.Metrics.AddRefreshNodes("checked", res.NodesChecked)
		r.Metrics.AddRefreshNodes("updated", res.NodesUpdated)
		r.Metrics.AddRefreshNodes("failed", res.NodesFailed)
	}()

	log := r.logger()
	user, err := r.Identities.FirstPrivilegedUser(ctx)
	if err != nil {
		return res, fmt.Errorf("refresh: look up privileged user: %w", err)
	}
	if user == nil {
		log.Error("refresh: no privileged user, nothing done")
		return res, ErrNoPrivilegedUser
	}

	courses, err := r.Courses.ListCourses(ctx)
	if err != nil {
		return res, fmt.Errorf("refresh: list courses: %w", err)
	}

	var mu sync.Mutex
	errs := concurrency.ForEach(ctx, courses, concurrency.ParallelOptions{MaxWorkers: r.Workers},
		func(ctx context.Context, _ int, c Course) error {
			cr := r.refreshCourse(ctx, c, user)
			mu.Lock()
			res.add(cr)
			mu.Unlock()
			return nil
		})
	if len(errs) > 0 {
		return res, errors.Join(errs...)
	}

	log.Info("refresh: done",
		zap.Int("courses", res.CoursesVisited),
		zap.Int("skipped", res.CoursesSkipped),
		zap.Int("checked", res.NodesChecked),
		zap.Int("updated", res.NodesUpdated),
	)
	return res, nil
}

func (r *Refresher) refreshCourse(ctx context.Context, c Course, user *User) Result {
	var res Result
	log := r.logger().With(zap.String("course_id", c.ID))

	root, err := r.Courses.LoadCourse(ctx, c.ID, r.depth())
	if err != nil {
		log.Warn("refresh: course skipped, tree not loaded", zap.Error(err))
		res.CoursesSkipped++
		return res
	}
	src, err := r.Clients.ForOrg(c.Org)
	if err != nil {
		log.Warn("refresh: course skipped, no credentials", zap.String("org", c.Org), zap.Error(err))
		res.CoursesSkipped++
		return res
	}
	res.CoursesVisited++

	var nodes []ResourceNode
	Walk(root, r.depth(), func(n Node) {
		if rn, ok := n.(ResourceNode); ok && rn.Snapshot().ID() != "" {
			nodes = append(nodes, rn)
		}
	})

	for _, n := range nodes {
		if ctx.Err() != nil {
			return res
		}
		res.NodesChecked++
		updated, err := r.refreshNode(ctx, src, n, user)
		if err != nil {
			res.NodesFailed++
			log.Error("refresh: block not updated", zap.String("block_id", n.Location().BlockID), zap.Error(err))
			continue
		}
		if updated {
			res.NodesUpdated++
		}
	}
	return res
}

// refreshNode rewrites the node when the partner payload differs from the
// stored snapshot. A failed fetch leaves the node alone.
func (r *Refresher) refreshNode(ctx context.Context, src providers.CatalogSource, n ResourceNode, user *User) (bool, error) {
	stored := n.Snapshot()
	fresh := src.GetResource(ctx, stored.ID())
	if fresh == nil || fresh.Raw == nil {
		return false, nil
	}
	next := domain.Snapshot(fresh.Raw)
	if cmp.Equal(map[string]any(stored), map[string]any(next), snapshotEquality) {
		return false, nil
	}

	n.SetSnapshot(next)
	loc, err := r.Versioning.SaveDraft(ctx, n)
	if err != nil {
		return false, fmt.Errorf("save draft: %w", err)
	}
	if err := r.Versioning.UpdateItem(ctx, n, user.ID); err != nil {
		return false, fmt.Errorf("update item: %w", err)
	}
	if err := r.Versioning.Publish(ctx, loc, user.ID); err != nil {
		return false, fmt.Errorf("publish: %w", err)
	}
	return true, nil
}

func (r *Refresher) depth() int {
	if r.Depth <= 0 {
		return DefaultDepth
	}
	return r.Depth
}

func (r *Refresher) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
