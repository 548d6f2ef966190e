package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	registry := InitRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, GetRegistry())
}

func TestRecordBetSettled(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(BetsSettledTotal.WithLabelValues("Won"))

	RecordBetSettled("Won")

	assert.Equal(t, before+1, testutil.ToFloat64(BetsSettledTotal.WithLabelValues("Won")))
}

func TestRecordSkippedRecordsIgnoresZero(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(ResultRecordsSkippedTotal)

	RecordSkippedRecords(0)
	RecordSkippedRecords(3)

	assert.Equal(t, before+3, testutil.ToFloat64(ResultRecordsSkippedTotal))
}

func TestRecordPass(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(SettlementPassesTotal)

	RecordPass(2*time.Second, 7, 0.5)

	assert.Equal(t, before+1, testutil.ToFloat64(SettlementPassesTotal))
	assert.Equal(t, 7.0, testutil.ToFloat64(LastPassUpdated))
	assert.Equal(t, 0.5, testutil.ToFloat64(ResultCacheHitRatio))
	assert.Greater(t, testutil.ToFloat64(LastPassTimestamp), 0.0)
}

func TestHandlerServesMetrics(t *testing.T) {
	InitRegistry()
	RecordResultsFetch(FetchOutcomeSuccess, 100*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "turf_ledger_results_fetch_total")
}
