package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datatrails/go-datatrails-typedredis/environment"
)

const (
	MetricsPrefix = "typedredis"

	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// RedisCommandsCounterMetric counts commands sent outside pipelines by
// service, command and outcome.
func RedisCommandsCounterMetric() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "_redis_commands_total",
			Help: "Total number of redis commands by service, command and outcome.",
		},
		[]string{"service", "command", "outcome"},
	)
}

// RedisCommandsLatencyMetric measures round trip time of single commands.
// Blocking commands wait up to their timeout so the top bucket is wide.
// bucket limits are in seconds...
func RedisCommandsLatencyMetric() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricsPrefix + "_redis_commands_latency",
			Help:    "Histogram of time to reply to a redis command.",
			Buckets: []float64{.0005, .001, .002, .005, .01, .02, .04, .08, .16, .32, 1, 5},
		},
		[]string{"service", "command"},
	)
}

func RedisPipelinesCounterMetric() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "_redis_pipelines_total",
			Help: "Total number of redis pipelines and transactions by service and outcome.",
		},
		[]string{"service", "outcome"},
	)
}

// RedisPipelinesSizeMetric records how many commands each pipeline carried.
func RedisPipelinesSizeMetric() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricsPrefix + "_redis_pipelines_size",
			Help:    "Histogram of commands sent per redis pipeline.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"service"},
	)
}

func RedisPipelinesLatencyMetric() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricsPrefix + "_redis_pipelines_latency",
			Help:    "Histogram of time to execute a redis pipeline.",
			Buckets: []float64{.001, .002, .005, .01, .02, .04, .08, .16, .32, 1},
		},
		[]string{"service"},
	)
}

// JobsCounterMetric counts jobs taken from a queue by outcome.
func JobsCounterMetric() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "_jobs_total",
			Help: "Total number of jobs processed by service, queue and outcome.",
		},
		[]string{"service", "queue", "outcome"},
	)
}

func JobsDurationMetric() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricsPrefix + "_jobs_duration",
			Help:    "Histogram of time to process a job.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"service", "queue"},
	)
}

// Metrics. Only those metrics specified
// are returned. The GoCollector and ProcessCollector metrics are omitted by
// using our own registry.
type Metrics struct {
	serviceName string
	port        string
	registry    *prometheus.Registry
	log         Logger
}

type MetricsOption func(*Metrics)

// WithPort sets the port the metrics endpoint is served on.
func WithPort(port string) MetricsOption {
	return func(m *Metrics) {
		m.port = port
	}
}

func New(log Logger, serviceName string, opts ...MetricsOption) *Metrics {
	m := Metrics{
		log:         log,
		serviceName: strings.ToLower(serviceName),
		registry:    prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return &m
}

// NewFromEnvironment returns nil unless USE_METRICS is set. All methods are
// safe to call on a nil *Metrics.
func NewFromEnvironment(log Logger, serviceName string, opts ...MetricsOption) *Metrics {
	useMetrics := environment.GetTruthyOrFatal("USE_METRICS")
	if !useMetrics {
		return nil
	}
	port := environment.GetOrFatal("METRICS_PORT")
	return New(log, serviceName, append(opts, WithPort(port))...)
}

func (m *Metrics) String() string {
	if m == nil {
		return ""
	}
	return m.serviceName
}

func (m *Metrics) Register(cs ...prometheus.Collector) {
	if m == nil {
		return
	}
	m.registry.MustRegister(cs...)
}

func (m *Metrics) Port() string {
	if m != nil {
		return m.port
	}
	return ""
}

// NewPromHandler - this handler is used on the endpoint that serves metrics endpoint
// which is provided on a different port to the service.
// The default InstrumentMetricHandler is suppressed.
func (m *Metrics) NewPromHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
