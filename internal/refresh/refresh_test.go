package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edflex-sync/internal/config"
	"edflex-sync/internal/domain"
	"edflex-sync/internal/providers"
)

type block struct {
	loc      Location
	children []Node
}

func (b *block) Location() Location { return b.loc }
func (b *block) Children() []Node   { return b.children }

type resourceBlock struct {
	block
	snap domain.Snapshot
}

func (b *resourceBlock) Snapshot() domain.Snapshot     { return b.snap }
func (b *resourceBlock) SetSnapshot(s domain.Snapshot) { b.snap = s }

// course builds course -> section -> subsection -> unit -> leaves.
func course(id string, leaves ...Node) *block {
	unit := &block{loc: Location{CourseID: id, BlockID: "unit"}, children: leaves}
	sub := &block{loc: Location{CourseID: id, BlockID: "subsection"}, children: []Node{unit}}
	sec := &block{loc: Location{CourseID: id, BlockID: "section"}, children: []Node{sub}}
	return &block{loc: Location{CourseID: id, BlockID: "course"}, children: []Node{sec}}
}

func leaf(courseID, blockID string, snap domain.Snapshot) *resourceBlock {
	return &resourceBlock{block: block{loc: Location{CourseID: courseID, BlockID: blockID}}, snap: snap}
}

type fakeCourses struct {
	courses []Course
	trees   map[string]Node
}

func (f *fakeCourses) ListCourses(ctx context.Context) ([]Course, error) { return f.courses, nil }

func (f *fakeCourses) LoadCourse(ctx context.Context, id string, depth int) (Node, error) {
	n, ok := f.trees[id]
	if !ok {
		return nil, errors.New("course not found")
	}
	return n, nil
}

type fakeIdentities struct{ user *User }

func (f fakeIdentities) FirstPrivilegedUser(ctx context.Context) (*User, error) { return f.user, nil }

type call struct {
	op   string
	loc  Location
	user uint
}

type fakeVersioning struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeVersioning) record(c call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *fakeVersioning) SaveDraft(ctx context.Context, n ResourceNode) (Location, error) {
	loc := n.Location().ForBranch("draft")
	f.record(call{op: "save", loc: loc})
	return loc, nil
}

func (f *fakeVersioning) UpdateItem(ctx context.Context, n ResourceNode, userID uint) error {
	f.record(call{op: "update", loc: n.Location(), user: userID})
	return nil
}

func (f *fakeVersioning) Publish(ctx context.Context, loc Location, userID uint) error {
	f.record(call{op: "publish", loc: loc, user: userID})
	return nil
}

type fakeSource struct {
	details map[string]*domain.ResourceDetail
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) ListCatalogs(ctx context.Context) []domain.Catalog { return nil }

func (f *fakeSource) GetCatalog(ctx context.Context, id string) domain.CatalogDetail {
	return domain.CatalogDetail{ID: id}
}

func (f *fakeSource) GetResource(ctx context.Context, id string) *domain.ResourceDetail {
	return f.details[id]
}

type fakeClients struct {
	src  providers.CatalogSource
	orgs map[string]bool
}

func (f fakeClients) ForOrg(org string) (providers.CatalogSource, error) {
	if !f.orgs[org] {
		return nil, &config.ConfigError{Scope: org, Missing: []string{"client_id"}}
	}
	return f.src, nil
}

func payload(id, title string) *domain.ResourceDetail {
	return &domain.ResourceDetail{ID: id, Title: title, Raw: map[string]any{
		"id": id, "title": title, "categories": []any{map[string]any{"id": "cat1", "name": "Science"}},
	}}
}

func newRefresher(courses *fakeCourses, v *fakeVersioning, src *fakeSource) *Refresher {
	return &Refresher{
		Courses:    courses,
		Identities: fakeIdentities{user: &User{ID: 7, Username: "staff"}},
		Versioning: v,
		Clients:    fakeClients{src: src, orgs: map[string]bool{"OrgA": true}},
	}
}

func TestRefreshUnchangedSnapshotIsNoop(t *testing.T) {
	src := &fakeSource{details: map[string]*domain.ResourceDetail{"r1": payload("r1", "Intro")}}
	node := leaf("course-1", "b1", domain.Snapshot(payload("r1", "Intro").Raw))
	courses := &fakeCourses{
		courses: []Course{{ID: "course-1", Org: "OrgA"}},
		trees:   map[string]Node{"course-1": course("course-1", node)},
	}
	v := &fakeVersioning{}

	res, err := newRefresher(courses, v, src).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{CoursesVisited: 1, NodesChecked: 1}, res)
	assert.Empty(t, v.calls)
}

func TestRefreshChangedSnapshotIsPublishedOnce(t *testing.T) {
	src := &fakeSource{details: map[string]*domain.ResourceDetail{"r1": payload("r1", "Intro v2")}}
	node := leaf("course-1", "b1", domain.Snapshot(payload("r1", "Intro").Raw))
	courses := &fakeCourses{
		courses: []Course{{ID: "course-1", Org: "OrgA"}},
		trees:   map[string]Node{"course-1": course("course-1", node)},
	}
	v := &fakeVersioning{}

	res, err := newRefresher(courses, v, src).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{CoursesVisited: 1, NodesChecked: 1, NodesUpdated: 1}, res)

	draft := Location{CourseID: "course-1", BlockID: "b1", Branch: "draft"}
	assert.Equal(t, []call{
		{op: "save", loc: draft},
		{op: "update", loc: Location{CourseID: "course-1", BlockID: "b1"}, user: 7},
		{op: "publish", loc: draft, user: 7},
	}, v.calls)
	assert.Equal(t, "Intro v2", node.Snapshot()["title"])
}

func TestRefreshSkipsFailedFetchAndEmptyID(t *testing.T) {
	src := &fakeSource{details: map[string]*domain.ResourceDetail{}}
	missing := leaf("course-1", "b1", domain.Snapshot{"id": "gone", "title": "x"})
	noID := leaf("course-1", "b2", domain.Snapshot{"title": "draft"})
	courses := &fakeCourses{
		courses: []Course{{ID: "course-1", Org: "OrgA"}},
		trees:   map[string]Node{"course-1": course("course-1", missing, noID)},
	}
	v := &fakeVersioning{}

	res, err := newRefresher(courses, v, src).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.NodesChecked)
	assert.Zero(t, res.NodesUpdated)
	assert.Empty(t, v.calls)
}

func TestRefreshIsolatesBrokenCourses(t *testing.T) {
	src := &fakeSource{details: map[string]*domain.ResourceDetail{"r1": payload("r1", "new")}}
	good := leaf("good", "b1", domain.Snapshot{"id": "r1", "title": "old"})
	courses := &fakeCourses{
		courses: []Course{
			{ID: "broken", Org: "OrgA"},
			{ID: "unconfigured", Org: "OrgZ"},
			{ID: "good", Org: "OrgA"},
		},
		trees: map[string]Node{
			"unconfigured": course("unconfigured", leaf("unconfigured", "b1", domain.Snapshot{"id": "r1"})),
			"good":         course("good", good),
		},
	}
	v := &fakeVersioning{}

	r := newRefresher(courses, v, src)
	r.Workers = 2
	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.CoursesVisited)
	assert.Equal(t, 2, res.CoursesSkipped)
	assert.Equal(t, 1, res.NodesUpdated)
	assert.Len(t, v.calls, 3)
}

func TestRefreshWithoutPrivilegedUser(t *testing.T) {
	courses := &fakeCourses{courses: []Course{{ID: "c", Org: "OrgA"}}}
	v := &fakeVersioning{}
	r := newRefresher(courses, v, &fakeSource{})
	r.Identities = fakeIdentities{}

	res, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoPrivilegedUser)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, v.calls)
}

func TestWalkDepth(t *testing.T) {
	deep := leaf("c", "too-deep", domain.Snapshot{"id": "r9"})
	item := leaf("c", "item", domain.Snapshot{"id": "r1"})
	item.children = []Node{deep}
	root := course("c", item)

	var visited []string
	Walk(root, DefaultDepth, func(n Node) { visited = append(visited, n.Location().BlockID) })
	assert.Equal(t, []string{"section", "subsection", "unit", "item"}, visited)

	visited = nil
	Walk(root, 2, func(n Node) { visited = append(visited, n.Location().BlockID) })
	assert.Equal(t, []string{"section", "subsection"}, visited)
}

func TestConfigClients(t *testing.T) {
	cfg := config.Config{
		Tenants: []config.TenantSettings{
			{Org: "OrgA", Enabled: true, ClientID: "a", ClientSecret: "a", Locale: "fr", BaseAPIURL: "https://a.test"},
		},
	}
	var got config.TenantConfig
	c := ConfigClients{Config: cfg, Sources: providers.SourceFactoryFunc(func(tc config.TenantConfig) providers.CatalogSource {
		got = tc
		return &fakeSource{}
	})}

	_, err := c.ForOrg("orga")
	require.NoError(t, err)
	assert.Equal(t, "OrgA", got.Scope)

	_, err = c.ForOrg("OrgB")
	var cfgErr *config.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLocationString(t *testing.T) {
	assert.Equal(t, "c/b@draft", Location{CourseID: "c", BlockID: "b", Branch: "draft"}.String())
	assert.Equal(t, "c/b", Location{CourseID: "c", BlockID: "b"}.String())
}
