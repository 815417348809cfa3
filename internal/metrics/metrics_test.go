package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/rawgdex/internal/pager"
)

func TestMetrics_Requests(t *testing.T) {
	m := New()
	m.ObserveRequest("games", "ok", 120*time.Millisecond)
	m.ObserveRequest("games", "ok", 80*time.Millisecond)
	m.ObserveRequest("games", "transport", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("games", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("games", "transport")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))
}

func TestMetrics_PagerInflight(t *testing.T) {
	m := New()
	m.Issued("popular", pager.KindInitial)
	m.Issued("popular", pager.KindInitial)
	m.Finished("popular", pager.KindInitial, pager.OutcomeStale)
	m.Finished("popular", pager.KindMore, pager.OutcomeIgnored)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.inflight.WithLabelValues("popular")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pager.WithLabelValues("popular", "initial", "issued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pager.WithLabelValues("popular", "initial", "stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pager.WithLabelValues("popular", "more", "ignored")))

	m.Finished("popular", pager.KindInitial, pager.OutcomeApplied)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight.WithLabelValues("popular")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SetSessions(3)
	m.CacheResult("hit")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rawgdex_browse_sessions 3")
	assert.Contains(t, string(body), `rawgdex_detail_cache_total{result="hit"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_HTTP(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/api/v1/sessions/:id", 200, 5*time.Millisecond)
	m.ObserveHTTP("GET", "/api/v1/sessions/:id", 404, time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(m.http))
}
