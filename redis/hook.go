package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	otrace "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// CommandObserver receives the outcome of every command sent by a Client.
// The metrics package provides a prometheus implementation.
type CommandObserver interface {
	ObserveCommand(name string, elapsed time.Duration, err error)
	ObservePipeline(size int, elapsed time.Duration, err error)
}

type hookStateKey struct{}

type hookState struct {
	span  otrace.Span
	start time.Time
}

// commandHook traces each command, or each batch for pipelines, and reports
// it to the observer if there is one.
type commandHook struct {
	observer CommandObserver
}

func (h *commandHook) before(ctx context.Context, name string) context.Context {
	span, ctx := otrace.StartSpanFromContext(ctx, name)
	ext.DBType.Set(span, "redis")
	return context.WithValue(ctx, hookStateKey{}, &hookState{span: span, start: time.Now()})
}

func (h *commandHook) after(ctx context.Context, err error) (time.Duration, error) {
	state, ok := ctx.Value(hookStateKey{}).(*hookState)
	if !ok {
		return 0, nil
	}
	if errors.Is(err, redis.Nil) {
		err = nil
	}
	if err != nil {
		ext.Error.Set(state.span, true)
		state.span.LogKV("error", err.Error())
	}
	state.span.Finish()
	return time.Since(state.start), err
}

func (h *commandHook) BeforeProcess(ctx context.Context, cmd redis.Cmder) (context.Context, error) {
	ctx = h.before(ctx, "redis."+cmd.Name())
	return ctx, nil
}

func (h *commandHook) AfterProcess(ctx context.Context, cmd redis.Cmder) error {
	elapsed, err := h.after(ctx, cmd.Err())
	if h.observer != nil {
		h.observer.ObserveCommand(cmd.Name(), elapsed, err)
	}
	return nil
}

func (h *commandHook) BeforeProcessPipeline(ctx context.Context, cmds []redis.Cmder) (context.Context, error) {
	ctx = h.before(ctx, "redis.pipeline")
	if state, ok := ctx.Value(hookStateKey{}).(*hookState); ok {
		state.span.SetTag("redis.commands", len(cmds))
	}
	return ctx, nil
}

func (h *commandHook) AfterProcessPipeline(ctx context.Context, cmds []redis.Cmder) error {
	var first error
	for _, cmd := range cmds {
		if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
			first = err
			break
		}
	}
	elapsed, err := h.after(ctx, first)
	if h.observer != nil {
		h.observer.ObservePipeline(len(cmds), elapsed, err)
	}
	return nil
}
