package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lanta-sber-sender/internal/config"
)

func TestObserve_Success(t *testing.T) {
	m := New(config.MetricsConfig{Job: "test"}, zap.NewNop())
	end := time.Date(2020, 4, 1, 8, 0, 0, 0, time.UTC)

	m.Observe(3, 5, 1500*time.Millisecond, end, nil)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.patients))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.rows))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.duration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.success))
	assert.Equal(t, float64(end.Unix()), testutil.ToFloat64(m.lastSuccess))
}

func TestObserve_FailureKeepsLastSuccess(t *testing.T) {
	m := New(config.MetricsConfig{Job: "test"}, zap.NewNop())
	end := time.Date(2020, 4, 1, 8, 0, 0, 0, time.UTC)

	m.Observe(3, 5, time.Second, end, nil)
	m.Observe(0, 0, time.Second, end.Add(24*time.Hour), errors.New("db down"))

	assert.Equal(t, 0.0, testutil.ToFloat64(m.success))
	assert.Equal(t, float64(end.Unix()), testutil.ToFloat64(m.lastSuccess))
}

func TestPush_Disabled(t *testing.T) {
	m := New(config.MetricsConfig{Job: "test"}, zap.NewNop())
	assert.False(t, m.Enabled())
	assert.NoError(t, m.Push(context.Background()))
}

func TestPush_SendsToPushgateway(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method = r.Method
		path = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New(config.MetricsConfig{PushgatewayURL: srv.URL, Job: "lanta-sber-sender"}, zap.NewNop())
	m.Observe(1, 2, time.Second, time.Now(), nil)

	require.NoError(t, m.Push(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/lanta-sber-sender", path)
	assert.Contains(t, string(body), "lanta_report_rows")
}

func TestPush_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := New(config.MetricsConfig{PushgatewayURL: srv.URL, Job: "test"}, zap.NewNop())
	err := m.Push(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to push metrics")
}
