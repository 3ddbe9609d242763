package redis

import (
	"context"
	"errors"

	"github.com/datatrails/go-datatrails-typedredis/errhandling"
	"github.com/go-redis/redis/v8"
)

// QueuedCommand is one deferred operation. enqueue adds the command to a
// native pipeline, dispatch runs once the pipeline has executed and hands the
// reply to the callback, if any.
type QueuedCommand interface {
	enqueue(ctx context.Context, p redis.Pipeliner)
	dispatch() error
}

type queuedCommand[C redis.Cmder] struct {
	op      func(context.Context, redis.Pipeliner) C
	onReply func(cmd C, isNil bool) error
	pending C
}

func (q *queuedCommand[C]) enqueue(ctx context.Context, p redis.Pipeliner) {
	q.pending = q.op(ctx, p)
}

func (q *queuedCommand[C]) dispatch() error {
	err := q.pending.Err()
	isNil := errors.Is(err, redis.Nil)
	if err != nil && !isNil {
		return DoError(err, q.pending.Name())
	}
	if q.onReply == nil {
		return nil
	}
	return q.onReply(q.pending, isNil)
}

// CommandQueue records operations against a native pipeline without sending
// them. Commands are sent in queue order by the owning Pipeline or
// Transaction, and the queue is kept so it can be replayed.
type CommandQueue[T any] struct {
	typed    *TypedClient[T]
	caps     capabilities
	commands []QueuedCommand
	closed   bool
}

func newCommandQueue[T any](ctx context.Context, typed *TypedClient[T]) (*CommandQueue[T], error) {
	if _, err := typed.client.Native(); err != nil {
		return nil, err
	}
	caps, err := typed.client.capabilities(ctx)
	if err != nil {
		return nil, err
	}
	return &CommandQueue[T]{typed: typed, caps: caps}, nil
}

// Len returns the number of queued commands.
func (q *CommandQueue[T]) Len() int {
	return len(q.commands)
}

func (q *CommandQueue[T]) add(cmd QueuedCommand) error {
	if q.closed {
		return ErrQueueClosed
	}
	q.commands = append(q.commands, cmd)
	return nil
}

func (q *CommandQueue[T]) discard() int {
	n := len(q.commands)
	q.commands = nil
	q.closed = true
	return n
}

// execute sends the queue on p and dispatches the replies in order. executed
// is false when nothing took effect on the server: an aborted EXEC or a
// failure to reach the server. Callbacks for successful replies still run
// when another command in the batch failed; the first failure is returned.
func (q *CommandQueue[T]) execute(ctx context.Context, p redis.Pipeliner, name string) (executed bool, err error) {
	if q.closed {
		return false, ErrQueueClosed
	}
	for _, cmd := range q.commands {
		cmd.enqueue(ctx, p)
	}
	_, err = p.Exec(ctx)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return false, AbortedError(err, name)
	case errors.Is(err, redis.ErrClosed):
		return false, DoError(err, name)
	case errhandling.IsNetworkError(err):
		return false, DoError(err, name)
	}

	var first error
	for _, cmd := range q.commands {
		if err := cmd.dispatch(); err != nil && first == nil {
			first = err
		}
	}
	return true, first
}

// QueueCommand queues op and ignores its reply.
func (q *CommandQueue[T]) QueueCommand(op func(context.Context, redis.Pipeliner) redis.Cmder) error {
	return q.add(&queuedCommand[redis.Cmder]{op: op})
}

func (q *CommandQueue[T]) QueueStatus(
	op func(context.Context, redis.Pipeliner) *redis.StatusCmd, onSuccess func(string),
) error {
	cmd := &queuedCommand[*redis.StatusCmd]{op: op}
	if onSuccess != nil {
		cmd.onReply = func(c *redis.StatusCmd, _ bool) error {
			onSuccess(c.Val())
			return nil
		}
	}
	return q.add(cmd)
}

func (q *CommandQueue[T]) QueueInt(
	op func(context.Context, redis.Pipeliner) *redis.IntCmd, onSuccess func(int64),
) error {
	cmd := &queuedCommand[*redis.IntCmd]{op: op}
	if onSuccess != nil {
		cmd.onReply = func(c *redis.IntCmd, _ bool) error {
			onSuccess(c.Val())
			return nil
		}
	}
	return q.add(cmd)
}

func (q *CommandQueue[T]) QueueBool(
	op func(context.Context, redis.Pipeliner) *redis.BoolCmd, onSuccess func(bool),
) error {
	cmd := &queuedCommand[*redis.BoolCmd]{op: op}
	if onSuccess != nil {
		cmd.onReply = func(c *redis.BoolCmd, _ bool) error {
			onSuccess(c.Val())
			return nil
		}
	}
	return q.add(cmd)
}

func (q *CommandQueue[T]) QueueFloat(
	op func(context.Context, redis.Pipeliner) *redis.FloatCmd, onSuccess func(float64),
) error {
	cmd := &queuedCommand[*redis.FloatCmd]{op: op}
	if onSuccess != nil {
		cmd.onReply = func(c *redis.FloatCmd, _ bool) error {
			onSuccess(c.Val())
			return nil
		}
	}
	return q.add(cmd)
}

func (q *CommandQueue[T]) QueueString(
	op func(context.Context, redis.Pipeliner) *redis.StringCmd, onSuccess func(string),
) error {
	cmd := &queuedCommand[*redis.StringCmd]{op: op}
	if onSuccess != nil {
		cmd.onReply = func(c *redis.StringCmd, _ bool) error {
			onSuccess(c.Val())
			return nil
		}
	}
	return q.add(cmd)
}

func (q *CommandQueue[T]) QueueStrings(
	op func(context.Context, redis.Pipeliner) *redis.StringSliceCmd, onSuccess func([]string),
) error {
	cmd := &queuedCommand[*redis.StringSliceCmd]{op: op}
	if onSuccess != nil {
		cmd.onReply = func(c *redis.StringSliceCmd, _ bool) error {
			onSuccess(c.Val())
			return nil
		}
	}
	return q.add(cmd)
}

// QueueValue decodes the string reply of op as a T. A nil reply passes the
// zero value.
func (q *CommandQueue[T]) QueueValue(
	op func(context.Context, redis.Pipeliner) *redis.StringCmd, onSuccess func(T),
) error {
	cmd := &queuedCommand[*redis.StringCmd]{op: op}
	if onSuccess != nil {
		cmd.onReply = func(c *redis.StringCmd, isNil bool) error {
			var value T
			if !isNil {
				var err error
				if value, err = q.typed.decode(c.Name(), c.Val()); err != nil {
					return err
				}
			}
			onSuccess(value)
			return nil
		}
	}
	return q.add(cmd)
}

func (q *CommandQueue[T]) QueueValues(
	op func(context.Context, redis.Pipeliner) *redis.StringSliceCmd, onSuccess func([]T),
) error {
	cmd := &queuedCommand[*redis.StringSliceCmd]{op: op}
	if onSuccess != nil {
		cmd.onReply = func(c *redis.StringSliceCmd, _ bool) error {
			values, err := q.typed.decodeAll(c.Name(), c.Val())
			if err != nil {
				return err
			}
			onSuccess(values)
			return nil
		}
	}
	return q.add(cmd)
}

// QueueStore queues the writes made by TypedClient.Store.
func (q *CommandQueue[T]) QueueStore(value T) error {
	id, err := entityID(value)
	if err != nil {
		return err
	}
	data, err := q.typed.encode(value)
	if err != nil {
		return err
	}
	keys := q.typed.keys
	err = q.QueueStatus(func(ctx context.Context, p redis.Pipeliner) *redis.StatusCmd {
		return p.Set(ctx, keys.URN(id), data, 0)
	}, nil)
	if err != nil {
		return err
	}
	return q.QueueInt(func(ctx context.Context, p redis.Pipeliner) *redis.IntCmd {
		return p.SAdd(ctx, keys.IDsKey(), id)
	}, nil)
}

func (q *CommandQueue[T]) QueueSetValue(key string, value T) error {
	data, err := q.typed.encode(value)
	if err != nil {
		return err
	}
	key = q.typed.Key(key)
	return q.QueueStatus(func(ctx context.Context, p redis.Pipeliner) *redis.StatusCmd {
		return p.Set(ctx, key, data, 0)
	}, nil)
}

func (q *CommandQueue[T]) QueueGetValue(key string, onSuccess func(T)) error {
	key = q.typed.Key(key)
	return q.QueueValue(func(ctx context.Context, p redis.Pipeliner) *redis.StringCmd {
		return p.Get(ctx, key)
	}, onSuccess)
}

func (q *CommandQueue[T]) QueueIncrementValue(key string, onSuccess func(int64)) error {
	key = q.typed.Key(key)
	return q.QueueInt(func(ctx context.Context, p redis.Pipeliner) *redis.IntCmd {
		return p.Incr(ctx, key)
	}, onSuccess)
}

func (q *CommandQueue[T]) QueueAddItemToList(list *List[T], value T) error {
	data, err := q.typed.encode(value)
	if err != nil {
		return err
	}
	return q.QueueInt(func(ctx context.Context, p redis.Pipeliner) *redis.IntCmd {
		return p.RPush(ctx, list.key, data)
	}, nil)
}

func (q *CommandQueue[T]) QueueAddItemToSet(set *Set[T], value T) error {
	data, err := q.typed.encode(value)
	if err != nil {
		return err
	}
	return q.QueueInt(func(ctx context.Context, p redis.Pipeliner) *redis.IntCmd {
		return p.SAdd(ctx, set.key, data)
	}, nil)
}

// QueuePopAndPushItemBetweenLists moves the tail of src to the head of dst.
// The command form was chosen from the server version when the queue was
// created, so nothing is probed while commands are being queued.
func (q *CommandQueue[T]) QueuePopAndPushItemBetweenLists(src, dst *List[T], onSuccess func(T)) error {
	lmove := q.caps.lmove
	return q.QueueValue(func(ctx context.Context, p redis.Pipeliner) *redis.StringCmd {
		if lmove {
			return p.LMove(ctx, src.key, dst.key, "RIGHT", "LEFT")
		}
		return p.RPopLPush(ctx, src.key, dst.key)
	}, onSuccess)
}
