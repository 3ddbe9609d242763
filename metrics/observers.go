package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// RedisObservers records the commands sent by a redis Client. Pass it to the
// client with redis.WithMetrics.
type RedisObservers struct {
	commandsCounter  *prometheus.CounterVec
	commandsLatency  *prometheus.HistogramVec
	pipelinesCounter *prometheus.CounterVec
	pipelinesSize    *prometheus.HistogramVec
	pipelinesLatency *prometheus.HistogramVec
	serviceName      string
}

func NewRedisObservers(m *Metrics) *RedisObservers {
	o := RedisObservers{
		commandsCounter:  RedisCommandsCounterMetric(),
		commandsLatency:  RedisCommandsLatencyMetric(),
		pipelinesCounter: RedisPipelinesCounterMetric(),
		pipelinesSize:    RedisPipelinesSizeMetric(),
		pipelinesLatency: RedisPipelinesLatencyMetric(),
		serviceName:      m.String(),
	}
	m.Register(
		o.commandsCounter, o.commandsLatency,
		o.pipelinesCounter, o.pipelinesSize, o.pipelinesLatency,
	)
	return &o
}

func (o *RedisObservers) ObserveCommand(name string, elapsed time.Duration, err error) {
	o.commandsCounter.WithLabelValues(o.serviceName, name, outcome(err)).Inc()
	o.commandsLatency.WithLabelValues(o.serviceName, name).Observe(elapsed.Seconds())
}

func (o *RedisObservers) ObservePipeline(size int, elapsed time.Duration, err error) {
	o.pipelinesCounter.WithLabelValues(o.serviceName, outcome(err)).Inc()
	o.pipelinesSize.WithLabelValues(o.serviceName).Observe(float64(size))
	o.pipelinesLatency.WithLabelValues(o.serviceName).Observe(elapsed.Seconds())
}

// JobObservers records jobs handled by a queue worker.
type JobObservers struct {
	jobsCounter  *prometheus.CounterVec
	jobsDuration *prometheus.HistogramVec
	serviceName  string
	queue        string
	log          Logger
}

func NewJobObservers(m *Metrics, queue string) *JobObservers {
	o := JobObservers{
		jobsCounter:  JobsCounterMetric(),
		jobsDuration: JobsDurationMetric(),
		serviceName:  m.String(),
		queue:        queue,
	}
	if m != nil {
		o.log = m.log
	}
	m.Register(o.jobsCounter, o.jobsDuration)
	return &o
}

func (o *JobObservers) ObserveJob(elapsed time.Duration, err error) {
	if err != nil && o.log != nil {
		o.log.Debugf("job on %s failed after %v: %v", o.queue, elapsed, err)
	}
	o.jobsCounter.WithLabelValues(o.serviceName, o.queue, outcome(err)).Inc()
	o.jobsDuration.WithLabelValues(o.serviceName, o.queue).Observe(elapsed.Seconds())
}
