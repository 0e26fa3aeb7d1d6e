package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolworks/fee-engine/store/memory"
)

func TestSummary_ComputedOnDemand(t *testing.T) {
	// GIVEN: The small-school scenario and a refresher that never ticked
	// WHEN: Fetching the summary
	// THEN: It computes on demand and aggregates the due report

	h := NewHandler(memory.New())
	h.Now = func() time.Time { return time.Date(2025, time.June, 6, 0, 0, 0, 0, time.UTC) }
	refresher := NewSummaryRefresher(h)
	srv := httptest.NewServer(NewRouter(h, refresher))
	t.Cleanup(srv.Close)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load", map[string]any{
		"scenario_id": "small-school",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/reports/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decodeBody[SummaryDTO](t, resp)

	assert.Equal(t, 3, summary.Students)
	assert.Equal(t, 7500.0, summary.TotalPayable)
	assert.Equal(t, 4000.0, summary.TotalPaid)
	assert.Equal(t, 3500.0, summary.TotalDue)
	assert.Equal(t, 2, summary.Defaulters)
	assert.NotEmpty(t, summary.RefreshedAt)
}

func TestSummary_RefreshEndpointRecomputes(t *testing.T) {
	h := NewHandler(memory.New())
	h.Now = func() time.Time { return time.Date(2025, time.June, 6, 0, 0, 0, 0, time.UTC) }
	refresher := NewSummaryRefresher(h)
	srv := httptest.NewServer(NewRouter(h, refresher))
	t.Cleanup(srv.Close)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/reports/summary/refresh", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decodeBody[SummaryDTO](t, resp)
	assert.Equal(t, 0, summary.Students)
}
