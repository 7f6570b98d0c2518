package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCall(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	m.ObserveCall("token", "ok", 20*time.Millisecond)
	m.ObserveCall("token", "ok", 30*time.Millisecond)
	m.ObserveCall("logout", "rejected", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.calls.WithLabelValues("token", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("logout", "rejected")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.callDuration))
}

func TestObserveRequest_UnmatchedRoute(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	m.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
}

func TestNew_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.NoError(t, err)
}

func TestHandler(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	m.ObserveCall("handle", "transport", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `oneid_provider_calls_total{operation="handle",outcome="transport"} 1`)
}
