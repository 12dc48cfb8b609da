package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsUseProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveRun("sync_full", "global", time.Second, nil)
	m.ObserveRun("sync_full", "OrgA", time.Second, errors.New("boom"))
	m.AddResources("sync_full", "upserted", 3)
	m.AddCategories("sync_full", "deleted", 1)
	m.AddRefreshNodes("updated", 2)

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "edflex_job_runs_total")
	assert.Contains(t, names, "edflex_job_duration_seconds")
	assert.Contains(t, names, "edflex_resources_total")
	assert.Contains(t, names, "edflex_categories_total")
	assert.Contains(t, names, "edflex_refresh_nodes_total")
	assert.Contains(t, names, "edflex_job_last_success_timestamp_seconds")


	for _, f := range families {
		if f.GetName() != "edflex_resources_total" {
			continue
		}
		require.Len(t, f.GetMetric(), 1)
		assert.Equal(t, float64(3), f.GetMetric()[0].GetCounter().GetValue())
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun("refresh", "all", time.Second, nil)
		m.AddResources("sync_full", "upserted", 1)
		m.AddCategories("sync_full", "upserted", 1)
		m.AddRefreshNodes("checked", 1)
	})
}
