package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectors(t *testing.T) {
	before := testutil.ToFloat64(correlationRequests.WithLabelValues("timeout"))
	ObserveCorrelation("timeout", 5)
	assert.Equal(t, before+1, testutil.ToFloat64(correlationRequests.WithLabelValues("timeout")))

	SetPending(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(correlationPending))

	SetConnected(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(busConnected))
	SetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(busConnected))

	RecordInbound("wallet_response", "stale")
	assert.Equal(t, 1.0, testutil.ToFloat64(inboundMessages.WithLabelValues("wallet_response", "stale")))
}

func TestHandler(t *testing.T) {
	SetPending(1)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "walletdash_correlation_pending 1"))
}
