package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/multierr"

	"github.com/datatrails/go-datatrails-typedredis/errhandling"
	"github.com/datatrails/go-datatrails-typedredis/logger"
	"github.com/datatrails/go-datatrails-typedredis/metrics"
	"github.com/datatrails/go-datatrails-typedredis/redis"
	"github.com/datatrails/go-datatrails-typedredis/tracing"
)

const (
	defaultDequeueTimeout = time.Second
	defaultMaxRetries     = 5

	doneSuffix      = ":done"
	failedSuffix    = ":failed"
	processedPrefix = "processed:"
)

// Worker takes jobs off a redis list and records each one in a single
// transaction: the job entity, the processed counter and the done list are
// all updated or none are.
type Worker struct {
	log            logger.Logger
	name           string
	jobs           *redis.TypedClient[Job]
	queue          *redis.List[Job]
	done           *redis.List[Job]
	failed         *redis.List[Job]
	processedKey   string
	dequeueTimeout time.Duration
	maxRetries     uint64
	newBackOff     func() backoff.BackOff
	observers      *metrics.JobObservers

	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
}

type WorkerOption func(*Worker)

func WithDequeueTimeout(timeout time.Duration) WorkerOption {
	return func(w *Worker) {
		if timeout > 0 {
			w.dequeueTimeout = timeout
		}
	}
}

func WithMaxRetries(n uint64) WorkerOption {
	return func(w *Worker) {
		w.maxRetries = n
	}
}

// WithBackOff replaces the exponential back off used between retries of
// transient failures.
func WithBackOff(newBackOff func() backoff.BackOff) WorkerOption {
	return func(w *Worker) {
		w.newBackOff = newBackOff
	}
}

func WithObservers(o *metrics.JobObservers) WorkerOption {
	return func(w *Worker) {
		w.observers = o
	}
}

func NewWorker(log logger.Logger, client *redis.Client, queueName string, opts ...WorkerOption) *Worker {
	jobs := redis.NewTypedClient[Job](client, jobKind)
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		log:            log.WithIndex("queue", queueName),
		name:           queueName,
		jobs:           jobs,
		queue:          jobs.Lists(queueName),
		done:           jobs.Lists(queueName + doneSuffix),
		failed:         jobs.Lists(queueName + failedSuffix),
		processedKey:   processedPrefix + queueName,
		dequeueTimeout: defaultDequeueTimeout,
		maxRetries:     defaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) String() string {
	return "queueworker:" + w.name
}

// Submit enqueues job for processing.
func (w *Worker) Submit(ctx context.Context, job Job) error {
	return w.jobs.EnqueueItemOnList(ctx, w.queue, job)
}

// Processed returns the number of jobs committed so far.
func (w *Worker) Processed(ctx context.Context) (int64, error) {
	n, found, err := redis.NewTypedClient[int64](w.jobs.Client(), jobKind).GetValue(ctx, w.processedKey)
	if err != nil || !found {
		return 0, err
	}
	return n, nil
}

// retry runs op until it succeeds, fails with an error that is not
// transient, retries are exhausted or ctx is done.
func (w *Worker) retry(ctx context.Context, name string, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(w.newBackOff(), w.maxRetries), ctx)
	return backoff.RetryNotify(
		func() error {
			err := op()
			if err != nil && !errhandling.IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		b,
		func(err error, wait time.Duration) {
			w.log.Infof("%s: transient failure, retrying in %v: %v", name, wait, err)
		},
	)
}

// Listen processes jobs until Shutdown. A failure to read the queue that is
// not transient stops the worker and is returned.
func (w *Worker) Listen() error {
	defer close(w.stopped)
	w.log.Infof("Listen")

	for w.ctx.Err() == nil {
		var job Job
		var found bool
		err := w.retry(w.ctx, "dequeue", func() error {
			var err error
			job, found, err = w.jobs.BlockingDequeueItemFromList(w.ctx, w.queue, w.dequeueTimeout)
			return err
		})
		switch {
		case w.ctx.Err() != nil:
			return nil
		case errors.Is(err, redis.ErrDecode):
			w.log.Infof("dropping undecodable job: %v", err)
			continue
		case err != nil:
			return fmt.Errorf("%s: %w", w, err)
		case !found:
			continue
		}

		start := time.Now()
		attempts := 0
		err = w.retry(w.ctx, "process", func() error {
			attempts++
			return w.process(w.ctx, job, attempts > 1)
		})
		if w.observers != nil {
			w.observers.ObserveJob(time.Since(start), err)
		}
		if err != nil {
			w.log.Infof("job %s failed: %v", job.ID, err)
			if err := w.failed.Add(w.ctx, job); err != nil {
				w.log.Infof("job %s not added to %s: %v", job.ID, w.failed.Key(), err)
			}
		}
	}
	return nil
}

// process commits the job, the processed counter and the done list entry in
// one transaction. A transient error on EXEC does not say whether the server
// applied the block, so a retry first looks for the stored job and skips the
// commit if it is there.
func (w *Worker) process(ctx context.Context, job Job, retried bool) (err error) {
	span, ctx := tracing.NewSpanWithAttributes(ctx, "queueworker.process", w.log, job.Attributes)
	defer span.Close()
	span.SetTag("job.id", job.ID)

	log := tracing.LogFromContext(ctx, w.log)

	if retried {
		stored, found, err := w.jobs.GetByID(ctx, job.ID)
		if err != nil {
			return err
		}
		if found && stored.ProcessedAt != nil {
			log.Infof("job %s already committed", job.ID)
			return nil
		}
	}

	tx, err := w.jobs.CreateTransaction(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, tx.Close())
		if err != nil {
			span.LogField("error", err)
		}
	}()

	now := time.Now().UTC()
	job.ProcessedAt = &now

	if err = tx.QueueStore(job); err != nil {
		return err
	}
	var processed int64
	if err = tx.QueueIncrementValue(w.processedKey, func(n int64) { processed = n }); err != nil {
		return err
	}
	if err = tx.QueueAddItemToList(w.done, job); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return err
	}
	log.Debugf("job %s processed, %d total", job.ID, processed)
	return nil
}

// Shutdown stops the worker after the job in hand and waits for Listen to
// return.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.log.Infof("Shutdown")
	w.cancel()
	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
