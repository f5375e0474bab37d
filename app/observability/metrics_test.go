package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordXP_IgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(XPAwarded.WithLabelValues("test"))
	RecordXP("test", 25)
	RecordXP("test", 0)
	RecordXP("test", -5)
	assert.Equal(t, before+25, testutil.ToFloat64(XPAwarded.WithLabelValues("test")))
}

func TestInstrument_RecordsStatus(t *testing.T) {
	h := Instrument("GET /teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := testutil.CollectAndCount(HTTPRequestDuration)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordStageEvolution("Spry Snapper")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "toughturtle_stage_evolutions_total"))
}
