package redis

import (
	"context"

	otrace "github.com/opentracing/opentracing-go"
)

// Pipeline sends its queued commands in a single round trip on Flush.
// Nothing reaches the server before Flush; closing an unflushed pipeline
// drops the queue. A Pipeline is not safe for concurrent use.
//
//	p, err := users.CreatePipeline(ctx)
//	if err != nil { ... }
//	defer p.Close()
//	p.QueueIncrementValue("visits", func(n int64) { visits = n })
//	err = p.Flush(ctx)
type Pipeline[T any] struct {
	*CommandQueue[T]
	flushed bool
}

// CreatePipeline returns an empty pipeline. Server capabilities needed by
// queued commands are resolved here.
func (c *TypedClient[T]) CreatePipeline(ctx context.Context) (*Pipeline[T], error) {
	q, err := newCommandQueue(ctx, c)
	if err != nil {
		return nil, err
	}
	return &Pipeline[T]{CommandQueue: q}, nil
}

// Flush sends every queued command, in order, then invokes the callbacks in
// the same order. A pipeline flushes once, a failed Flush included; run it
// again with Replay.
func (p *Pipeline[T]) Flush(ctx context.Context) error {
	span, ctx := otrace.StartSpanFromContext(ctx, "redis.Pipeline.Flush")
	defer span.Finish()

	if p.closed {
		return ErrQueueClosed
	}
	if p.flushed {
		return ErrAlreadyFlushed
	}
	p.flushed = true
	return p.run(ctx, "Pipeline.Flush")
}

// Replay executes the recorded queue again as a new pipeline, against the
// current server state. Only a flushed pipeline can be replayed.
func (p *Pipeline[T]) Replay(ctx context.Context) error {
	span, ctx := otrace.StartSpanFromContext(ctx, "redis.Pipeline.Replay")
	defer span.Finish()

	if p.closed {
		return ErrQueueClosed
	}
	if !p.flushed {
		return ErrNotFlushed
	}
	return p.run(ctx, "Pipeline.Replay")
}

func (p *Pipeline[T]) run(ctx context.Context, name string) error {
	native, err := p.typed.client.Native()
	if err != nil {
		return err
	}
	log := p.typed.Log().FromContext(ctx)
	defer log.Close()

	log.Debugf("%s: %d commands", name, len(p.commands))
	_, err = p.execute(ctx, native.Pipeline(), name)
	return err
}

// Close releases the pipeline. Commands that were never flushed are
// dropped without being sent.
func (p *Pipeline[T]) Close() error {
	if p.closed {
		return nil
	}
	if !p.flushed && len(p.commands) > 0 {
		p.typed.Log().Debugf("Pipeline.Close: discarding %d unflushed commands", len(p.commands))
	}
	p.discard()
	return nil
}
