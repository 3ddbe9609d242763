package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/datatrails/go-datatrails-typedredis/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisObservers(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	m := New(logger.Sugar, "QueueWorker")
	o := NewRedisObservers(m)

	o.ObserveCommand("get", time.Millisecond, nil)
	o.ObserveCommand("get", time.Millisecond, nil)
	o.ObserveCommand("llen", time.Millisecond, errors.New("WRONGTYPE"))
	o.ObservePipeline(3, 2*time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(o.commandsCounter.WithLabelValues("queueworker", "get", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.commandsCounter.WithLabelValues("queueworker", "llen", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.pipelinesCounter.WithLabelValues("queueworker", OutcomeOK)))
}

func TestPromHandler(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	m := New(logger.Sugar, "worker", WithPort("9090"))
	assert.Equal(t, "9090", m.Port())

	jobs := NewJobObservers(m, "jobs")
	jobs.ObserveJob(time.Millisecond, nil)

	server := httptest.NewServer(m.NewPromHandler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `typedredis_jobs_total{outcome="ok",queue="jobs",service="worker"} 1`)
	assert.NotContains(t, string(body), "go_goroutines")
}

func TestNilMetrics(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	var m *Metrics
	assert.Equal(t, "", m.Port())

	o := NewRedisObservers(m)
	o.ObserveCommand("get", time.Millisecond, nil)
	NewJobObservers(m, "jobs").ObserveJob(time.Millisecond, errors.New("failed"))
}

func TestNewFromEnvironment(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	t.Setenv("USE_METRICS", "false")
	assert.Nil(t, NewFromEnvironment(logger.Sugar, "worker"))

	t.Setenv("USE_METRICS", "true")
	t.Setenv("METRICS_PORT", "9091")
	m := NewFromEnvironment(logger.Sugar, "worker")
	require.NotNil(t, m)
	assert.Equal(t, "9091", m.Port())
}
