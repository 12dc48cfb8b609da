package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edflex-sync/internal/models"
	"edflex-sync/internal/repository"
)

func TestUpsertResourceKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := &models.Resource{CatalogID: "c1", ResourceID: "r1", Title: "old"}
	require.NoError(t, s.UpsertResource(ctx, a))
	b := &models.Resource{CatalogID: "c1", ResourceID: "r1", Title: "new", Language: "fr"}
	require.NoError(t, s.UpsertResource(ctx, b))
	other := &models.Resource{CatalogID: "c2", ResourceID: "r1"}
	require.NoError(t, s.UpsertResource(ctx, other))

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, other.ID)

	got, err := s.FindResource(ctx, "c1", "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "fr", got.Language)

	missing, err := s.FindResource(ctx, "c3", "r1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpsertCategoryScopedByCatalog(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := &models.Category{CategoryID: "cat1", CatalogID: "c1", Name: "Science"}
	b := &models.Category{CategoryID: "cat1", CatalogID: "c2", Name: "Science"}
	require.NoError(t, s.UpsertCategory(ctx, a))
	require.NoError(t, s.UpsertCategory(ctx, b))
	assert.NotEqual(t, a.ID, b.ID)

	again := &models.Category{CategoryID: "cat1", CatalogID: "c1", Name: "Sciences", CatalogTitle: "T1"}
	require.NoError(t, s.UpsertCategory(ctx, again))
	assert.Equal(t, a.ID, again.ID)

	cats, err := s.ListCategories(ctx, []string{"c1"})
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Sciences", cats[0].Name)
	assert.Equal(t, "T1", cats[0].CatalogTitle)
}

func TestDeletes(t *testing.T) {
	ctx := context.Background()
	s := New()

	r1 := &models.Resource{CatalogID: "c1", ResourceID: "r1"}
	r2 := &models.Resource{CatalogID: "c1", ResourceID: "r2"}
	r3 := &models.Resource{CatalogID: "c2", ResourceID: "r3"}
	for _, r := range []*models.Resource{r1, r2, r3} {
		require.NoError(t, s.UpsertResource(ctx, r))
	}

	n, err := s.DeleteCatalogResourcesExcept(ctx, "c1", []uint{r1.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.DeleteResourcesOutsideCatalogs(ctx, "", []string{"c1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	all, err := s.ListResources(ctx, repository.ListResourcesParams{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "r1", all[0].ResourceID)
}

func TestDeleteCategoriesUnlinks(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := &models.Resource{CatalogID: "c1", ResourceID: "r1"}
	require.NoError(t, s.UpsertResource(ctx, r))
	keep := &models.Category{CategoryID: "a", CatalogID: "c1", Name: "A"}
	drop := &models.Category{CategoryID: "b", CatalogID: "c1", Name: "B"}
	require.NoError(t, s.UpsertCategory(ctx, keep))
	require.NoError(t, s.UpsertCategory(ctx, drop))
	require.NoError(t, s.ReplaceResourceCategories(ctx, r.ID, []uint{drop.ID, keep.ID}))

	n, err := s.DeleteCategoriesExcept(ctx, []uint{keep.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := s.ListResources(ctx, repository.ListResourcesParams{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Categories, 1)
	assert.Equal(t, "a", got[0].Categories[0].CategoryID)
}

func TestListResourcesFilters(t *testing.T) {
	ctx := context.Background()
	s := New()

	rows := []*models.Resource{
		{CatalogID: "c1", ResourceID: "r2", Type: "video", Language: "en"},
		{CatalogID: "c1", ResourceID: "r1", Type: "mooc", Language: "fr"},
		{CatalogID: "c2", ResourceID: "r3", Type: "video", Language: "en"},
	}
	for _, r := range rows {
		require.NoError(t, s.UpsertResource(ctx, r))
	}
	cat := &models.Category{CategoryID: "sci", CatalogID: "c1", Name: "Science"}
	require.NoError(t, s.UpsertCategory(ctx, cat))
	require.NoError(t, s.ReplaceResourceCategories(ctx, rows[0].ID, []uint{cat.ID}))

	testCases := []struct {
		name   string
		params repository.ListResourcesParams
		want   []string
	}{
		{"all ordered", repository.ListResourcesParams{}, []string{"r1", "r2", "r3"}},
		{"catalog", repository.ListResourcesParams{CatalogIDs: []string{"c2"}}, []string{"r3"}},
		{"language", repository.ListResourcesParams{Language: "en"}, []string{"r2", "r3"}},
		{"type", repository.ListResourcesParams{Type: "mooc"}, []string{"r1"}},
		{"category", repository.ListResourcesParams{CategoryID: "sci"}, []string{"r2"}},
		{"page", repository.ListResourcesParams{Limit: 1, Offset: 1}, []string{"r2"}},
		{"past end", repository.ListResourcesParams{Offset: 5}, []string{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.ListResources(ctx, tc.params)
			require.NoError(t, err)
			ids := []string{}
			for _, r := range got {
				ids = append(ids, r.ResourceID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}

	langs, err := s.ListLanguages(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "fr"}, langs)
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.UpsertResource(ctx, &models.Resource{CatalogID: "c1", ResourceID: "r1"}))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx repository.CatalogRepository) error {
		if _, err := tx.DeleteResourcesOutsideCatalogs(ctx, "", nil); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.FindResource(ctx, "c1", "r1")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestSyncState(t *testing.T) {
	ctx := context.Background()
	s := New()

	msg := "failed"
	require.NoError(t, s.SaveSyncState(ctx, &models.SyncState{Scope: "global", Mode: "full", LastError: &msg}))
	require.NoError(t, s.SaveSyncState(ctx, &models.SyncState{Scope: "global", Mode: "new"}))

	st, err := s.GetSyncState(ctx, "global", "full")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "failed", *st.LastError)

	all, err := s.ListSyncStates(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "full", all[0].Mode)

	none, err := s.GetSyncState(ctx, "OrgA", "full")
	require.NoError(t, err)
	assert.Nil(t, none)
}
