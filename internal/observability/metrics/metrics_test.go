package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docsearch/pkg/types"
)

func TestObserveSearch(t *testing.T) {
	m := New("test")

	m.ObserveSearch(types.MethodHybrid, false, 5, 20*time.Millisecond)
	m.ObserveSearch(types.MethodHybrid, false, 3, 10*time.Millisecond)
	m.ObserveSearch(types.MethodCached, true, 5, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.searchesTotal.WithLabelValues("hybrid", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchesTotal.WithLabelValues("cached", "true")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.searchDuration))
}

func TestRecordMutation(t *testing.T) {
	m := New("test")

	m.RecordMutation("index_batch", 3, 3, nil)
	m.RecordMutation("index", 1, 4, nil)
	m.RecordMutation("index_batch", 2, 99, errors.New("dimension mismatch"))

	assert.Equal(t, 4.0, testutil.ToFloat64(m.indexedTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.documents))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutationsTotal.WithLabelValues("index_batch", "error")))

	m.RecordMutation("clear", 0, 0, nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.documents))
}

func TestRecordSnapshotAndIndexing(t *testing.T) {
	m := New("test")

	m.RecordSnapshot("save", nil)
	m.RecordSnapshot("restore", errors.New("corrupt"))
	m.RecordIndexingRun(time.Second, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.snapshotsTotal.WithLabelValues("save", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.snapshotsTotal.WithLabelValues("restore", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.indexingFailTotal))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSearch(types.MethodHybrid, false, 1, time.Millisecond)
		m.RecordMutation("index", 1, 1, nil)
		m.RecordSnapshot("save", nil)
		m.RecordIndexingRun(time.Second, 0)
	})
}

func TestHandler(t *testing.T) {
	m := New("test")
	m.ObserveSearch(types.MethodSemanticOnly, false, 0, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `docsearch_search_requests_total{cache_hit="false",method="semantic_only",service="test"} 1`)
}
