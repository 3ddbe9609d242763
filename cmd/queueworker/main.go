// Command queueworker takes jobs off a redis list and records each one with
// a redis transaction.
package main

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/datatrails/go-datatrails-typedredis/environment"
	"github.com/datatrails/go-datatrails-typedredis/errhandling"
	"github.com/datatrails/go-datatrails-typedredis/httpserver"
	"github.com/datatrails/go-datatrails-typedredis/logger"
	"github.com/datatrails/go-datatrails-typedredis/metrics"
	"github.com/datatrails/go-datatrails-typedredis/readiness"
	"github.com/datatrails/go-datatrails-typedredis/redis"
	"github.com/datatrails/go-datatrails-typedredis/startup"
)

const (
	serviceName     = "queueworker"
	connectAttempts = 10
	connectInterval = 2 * time.Second
)

func main() {
	portName := ""
	if !environment.GetTruthy("DISABLE_ZIPKIN") {
		portName = "METRICS_PORT"
	}
	startup.Run(serviceName, portName, run)
}

// connect waits for redis to accept connections. Configuration errors are
// not retried.
func connect(log logger.Logger, cfg redis.Config, opts ...redis.ClientOption) (*redis.Client, error) {
	var client *redis.Client
	err := readiness.Repeat(context.Background(), log, connectAttempts, connectInterval, func() error {
		var err error
		client, err = redis.NewClient(cfg, opts...)
		if err != nil && !errhandling.IsTransient(err) {
			return readiness.NewUnrecoverableError(err)
		}
		return err
	})
	return client, err
}

func run(log startup.Logger) (err error) {
	cfg := redis.FromEnvOrFatal(log)
	queueName := environment.GetOrFatal("QUEUE_NAME")
	dequeueTimeout := environment.GetDurationWithDefault("DEQUEUE_TIMEOUT", defaultDequeueTimeout)

	m := metrics.NewFromEnvironment(log, serviceName)
	var clientOpts []redis.ClientOption
	if m != nil {
		clientOpts = append(clientOpts, redis.WithMetrics(metrics.NewRedisObservers(m)))
	}

	client, err := connect(log, cfg, clientOpts...)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, client.Close())
	}()

	worker := NewWorker(
		log, client, queueName,
		WithDequeueTimeout(dequeueTimeout),
		WithObservers(metrics.NewJobObservers(m, queueName)),
	)

	listeners := []startup.Listener{worker}
	if m != nil {
		listeners = append(listeners, httpserver.New(log, "metrics", m.Port(), m.NewPromHandler(), httpserver.WithTracing()))
	}

	l := startup.NewListeners(log, serviceName, startup.WithListeners(listeners))
	return l.Listen()
}
