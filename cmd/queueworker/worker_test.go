package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datatrails/go-datatrails-typedredis/errhandling"
	"github.com/datatrails/go-datatrails-typedredis/logger"
	"github.com/datatrails/go-datatrails-typedredis/metrics"
	"github.com/datatrails/go-datatrails-typedredis/redis"
)

const (
	testQueue = "jobs"
)

func newTestWorker(t *testing.T, opts ...WorkerOption) (*Worker, func() error) {
	t.Helper()
	client, _ := redis.NewTestClient(t, logger.Sugar, redis.WithServerVersion("7.2.0"))
	opts = append([]WorkerOption{
		WithDequeueTimeout(100 * time.Millisecond),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	}, opts...)
	w := NewWorker(logger.Sugar, client, testQueue, opts...)

	errs := make(chan error, 1)
	stop := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, w.Shutdown(ctx))
		return <-errs
	}
	go func() { errs <- w.Listen() }()
	return w, stop
}

func eventuallyProcessed(t *testing.T, w *Worker, expected int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		n, err := w.Processed(context.Background())
		return err == nil && n == expected
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWorkerProcessesJobs(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	m := metrics.New(logger.Sugar, serviceName)
	w, stop := newTestWorker(t, WithObservers(metrics.NewJobObservers(m, testQueue)))
	ctx := context.Background()

	var submitted []Job
	for _, payload := range []string{"a", "b", "c"} {
		job := NewJob(ctx, logger.Sugar, payload)
		submitted = append(submitted, job)
		require.NoError(t, w.Submit(ctx, job))
	}

	eventuallyProcessed(t, w, 3)
	require.NoError(t, stop())

	done, err := w.done.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, done, 3)

	for i, job := range submitted {
		stored, found, err := w.jobs.GetByID(ctx, job.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, job.Payload, stored.Payload)
		assert.NotNil(t, stored.ProcessedAt)

		// first in, first out
		assert.Equal(t, job.ID, done[i].ID)
	}

	queued, err := w.queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, queued)
}

func TestWorkerDropsUndecodableJobs(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	w, stop := newTestWorker(t)
	ctx := context.Background()

	native, err := w.jobs.Client().Native()
	require.NoError(t, err)
	require.NoError(t, native.LPush(ctx, w.queue.Key(), "not json").Err())
	require.NoError(t, w.Submit(ctx, NewJob(ctx, logger.Sugar, "ok")))

	eventuallyProcessed(t, w, 1)
	require.NoError(t, stop())
}

func TestWorkerFailedJob(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	w, stop := newTestWorker(t)
	ctx := context.Background()

	// the counter is the wrong type so the transaction reports an error
	native, err := w.jobs.Client().Native()
	require.NoError(t, err)
	require.NoError(t, native.RPush(ctx, w.jobs.Key(w.processedKey), "x").Err())

	job := NewJob(ctx, logger.Sugar, "bad")
	require.NoError(t, w.Submit(ctx, job))

	require.Eventually(t, func() bool {
		n, err := w.failed.Count(ctx)
		return err == nil && n == 1
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, stop())

	failed, found, err := w.failed.Get(ctx, 0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, job.ID, failed.ID)
}

func TestWorkerRetry(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	client, _ := redis.NewTestClient(t, logger.Sugar)
	w := NewWorker(logger.Sugar, client, testQueue,
		WithMaxRetries(3),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	ctx := context.Background()
	errFlaky := errors.New("flaky")

	table := []struct {
		name          string
		failures      int
		err           error
		expectedCalls int
		expectedErr   error
	}{
		{name: "succeeds", failures: 0, expectedCalls: 1},
		{name: "transient then succeeds", failures: 2, err: errhandling.NewTransientError(errFlaky), expectedCalls: 3},
		{name: "transient exhausted", failures: 10, err: errhandling.NewTransientError(errFlaky), expectedCalls: 4, expectedErr: errFlaky},
		{name: "permanent", failures: 10, err: errFlaky, expectedCalls: 1, expectedErr: errFlaky},
	}
	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			calls := 0
			err := w.retry(ctx, test.name, func() error {
				calls++
				if calls <= test.failures {
					return test.err
				}
				return nil
			})
			assert.Equal(t, test.expectedCalls, calls)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// TestWorkerRetryAfterCommit re-runs process for a job whose commit already
// reached the server, as after a timeout reading the EXEC reply.
func TestWorkerRetryAfterCommit(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	w, stop := newTestWorker(t)
	ctx := context.Background()
	job := NewJob(ctx, logger.Sugar, "once")

	require.NoError(t, w.process(ctx, job, false))
	require.NoError(t, w.process(ctx, job, true))
	require.NoError(t, stop())

	n, err := w.Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	done, err := w.done.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, job.ID, done[0].ID)

	// a retry of a job that never committed still processes it
	other := NewJob(ctx, logger.Sugar, "retried")
	require.NoError(t, w.process(ctx, other, true))
	n, err = w.Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestWorkerShutdownIdle(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	w, stop := newTestWorker(t)
	assert.Equal(t, "queueworker:jobs", w.String())
	assert.NoError(t, stop())
}
