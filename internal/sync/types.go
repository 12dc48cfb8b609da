package sync

import "fmt"

// Mode selects how a sweep reconciles a scope.
type Mode string

const (
	// ModeFull re-fetches every listed resource and prunes resources of
	// unlisted catalogs and untouched categories.
	ModeFull Mode = "full"
	// ModeNew fetches only resources not cached yet and prunes per catalog.
	ModeNew Mode = "new"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeNew:
		return Mode(s), nil
	}
	return "", fmt.Errorf("sync: unknown mode %q", s)
}

// Job is the metrics/log label of the mode.
func (m Mode) Job() string { return "sync_" + string(m) }

// Result counts what one run did to the local store.
type Result struct {
	Catalogs           int `json:"catalogs"`
	ResourcesUpserted  int `json:"resources_upserted"`
	ResourcesKnown     int `json:"resources_known"`
	ResourcesFailed    int `json:"resources_failed"`
	ResourcesDeleted   int `json:"resources_deleted"`
	CategoriesUpserted int `json:"categories_upserted"`
	CategoriesDeleted  int `json:"categories_deleted"`
}

func (r *Result) Add(o Result) {
	r.Catalogs += o.Catalogs
	r.ResourcesUpserted += o.ResourcesUpserted
	r.ResourcesKnown += o.ResourcesKnown
	r.ResourcesFailed += o.ResourcesFailed
	r.ResourcesDeleted += o.ResourcesDeleted
	r.CategoriesUpserted += o.CategoriesUpserted
	r.CategoriesDeleted += o.CategoriesDeleted
}
