// Package server exposes health, metrics and the read-only browse API over
// the cached catalog.
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"edflex-sync/internal/models"
	"edflex-sync/internal/repository"
)

const maxLimit = 500

type Handler struct {
	Store    repository.CatalogRepository
	Gatherer prometheus.Gatherer
	// Ready reports whether backing services are reachable.
	Ready  func(ctx context.Context) error
	Logger *zap.Logger
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.health)
	r.Get("/readyz", h.ready)
	if h.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/resources", h.listResources)
		r.Get("/categories", h.listCategories)
		r.Get("/languages", h.listLanguages)
		r.Get("/sync-state", h.listSyncStates)
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type categoryView struct {
	ID           string `json:"id"`
	CatalogID    string `json:"catalog_id"`
	Name         string `json:"name"`
	CatalogTitle string `json:"catalog_title"`
}

type resourceView struct {
	CatalogID  string         `json:"catalog_id"`
	ResourceID string         `json:"resource_id"`
	Title      string         `json:"title"`
	Type       string         `json:"type"`
	Language   string         `json:"language"`
	Categories []categoryView `json:"categories"`
}

func toCategoryView(c models.Category) categoryView {
	return categoryView{ID: c.CategoryID, CatalogID: c.CatalogID, Name: c.Name, CatalogTitle: c.CatalogTitle}
}

func (h *Handler) listResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), 100)
	if err != nil || limit < 1 || limit > maxLimit {
		fail(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid offset")
		return
	}
	params := repository.ListResourcesParams{
		CatalogIDs: catalogIDs(r),
		CategoryID: q.Get("category_id"),
		Language:   q.Get("language"),
		Type:       q.Get("type"),
		Limit:      limit,
		Offset:     offset,
	}
	items, err := h.Store.ListResources(r.Context(), params)
	if err != nil {
		h.internal(w, "list resources", err)
		return
	}
	out := make([]resourceView, 0, len(items))
	for _, it := range items {
		v := resourceView{
			CatalogID:  it.CatalogID,
			ResourceID: it.ResourceID,
			Title:      it.Title,
			Type:       it.Type,
			Language:   it.Language,
			Categories: make([]categoryView, 0, len(it.Categories)),
		}
		for _, c := range it.Categories {
			v.Categories = append(v.Categories, toCategoryView(c))
		}
		out = append(out, v)
	}
	ok(w, out, map[string]any{"limit": limit, "offset": offset, "count": len(out)})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.ListCategories(r.Context(), catalogIDs(r))
	if err != nil {
		h.internal(w, "list categories", err)
		return
	}
	out := make([]categoryView, 0, len(items))
	for _, c := range items {
		out = append(out, toCategoryView(c))
	}
	ok(w, out, nil)
}

func (h *Handler) listLanguages(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.ListLanguages(r.Context(), catalogIDs(r))
	if err != nil {
		h.internal(w, "list languages", err)
		return
	}
	if items == nil {
		items = []string{}
	}
	ok(w, items, nil)
}

type syncStateView struct {
	Scope         string     `json:"scope"`
	Mode          string     `json:"mode"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastError     *string    `json:"last_error,omitempty"`
	Stats         any        `json:"stats,omitempty"`
}

func (h *Handler) listSyncStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.Store.ListSyncStates(r.Context())
	if err != nil {
		h.internal(w, "list sync states", err)
		return
	}
	out := make([]syncStateView, 0, len(states))
	for _, s := range states {
		v := syncStateView{
			Scope:         s.Scope,
			Mode:          s.Mode,
			LastAttemptAt: s.LastAttemptAt,
			LastSuccessAt: s.LastSuccessAt,
			LastError:     s.LastError,
		}
		if len(s.StatsJSON) > 0 {
			v.Stats = s.StatsJSON
		}
		out = append(out, v)
	}
	ok(w, out, nil)
}

func (h *Handler) internal(w http.ResponseWriter, what string, err error) {
	if h.Logger != nil {
		h.Logger.Error("server: "+what, zap.Error(err))
	}
	fail(w, http.StatusInternalServerError, "internal error")
}

// catalogIDs accepts repeated catalog_id parameters and comma separated
// lists.
func catalogIDs(r *http.Request) []string {
	var out []string
	for _, v := range r.URL.Query()["catalog_id"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
