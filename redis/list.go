package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	removedMarkerPrefix = "__removed__:"
)

var errStopIteration = errors.New("stop iteration")

// List is a typed view of a redis list. Elements are compared by their
// encoded form.
type List[T any] struct {
	typed *TypedClient[T]
	key   string
}

// Lists returns the list stored under name in the client namespace.
func (c *TypedClient[T]) Lists(name string) *List[T] {
	return &List[T]{typed: c, key: c.Key(name)}
}

func (l *List[T]) Key() string {
	return l.key
}

func (l *List[T]) native() (redis.UniversalClient, error) {
	return l.typed.client.Native()
}

// blockingTimeout rounds timeout up to whole seconds, the resolution of the
// server, with a minimum of one second. A zero timeout would block forever.
func blockingTimeout(timeout time.Duration) time.Duration {
	if timeout < time.Second {
		return time.Second
	}
	return ((timeout + time.Second - 1) / time.Second) * time.Second
}

// Add appends value (RPUSH).
func (l *List[T]) Add(ctx context.Context, value T) error {
	return l.AddRange(ctx, value)
}

func (l *List[T]) AddRange(ctx context.Context, values ...T) error {
	if len(values) == 0 {
		return nil
	}
	native, err := l.native()
	if err != nil {
		return err
	}
	args, err := l.typed.encodeAll(values)
	if err != nil {
		return err
	}
	return DoError(native.RPush(ctx, l.key, args...).Err(), l.key)
}

// Prepend inserts value at the head (LPUSH).
func (l *List[T]) Prepend(ctx context.Context, value T) error {
	native, err := l.native()
	if err != nil {
		return err
	}
	data, err := l.typed.encode(value)
	if err != nil {
		return err
	}
	return DoError(native.LPush(ctx, l.key, data).Err(), l.key)
}

// Remove deletes the first element equal to value.
func (l *List[T]) Remove(ctx context.Context, value T) (bool, error) {
	n, err := l.lrem(ctx, 1, value)
	return n > 0, err
}

// RemoveAll deletes every element equal to value.
func (l *List[T]) RemoveAll(ctx context.Context, value T) (int64, error) {
	return l.lrem(ctx, 0, value)
}

func (l *List[T]) lrem(ctx context.Context, count int64, value T) (int64, error) {
	native, err := l.native()
	if err != nil {
		return 0, err
	}
	data, err := l.typed.encode(value)
	if err != nil {
		return 0, err
	}
	n, err := native.LRem(ctx, l.key, count, data).Result()
	return n, DoError(err, l.key)
}

// RemoveAt deletes the element at index by overwriting it with a unique
// marker and removing the marker, in one transaction.
func (l *List[T]) RemoveAt(ctx context.Context, index int64) error {
	native, err := l.native()
	if err != nil {
		return err
	}
	marker := removedMarkerPrefix + uuid.NewString()
	_, err = native.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LSet(ctx, l.key, index, marker)
		pipe.LRem(ctx, l.key, 1, marker)
		return nil
	})
	return DoError(err, l.key)
}

func (l *List[T]) Clear(ctx context.Context) error {
	native, err := l.native()
	if err != nil {
		return err
	}
	return DoError(native.Del(ctx, l.key).Err(), l.key)
}

func (l *List[T]) Count(ctx context.Context) (int64, error) {
	native, err := l.native()
	if err != nil {
		return 0, err
	}
	n, err := native.LLen(ctx, l.key).Result()
	return n, DoError(err, l.key)
}

func (l *List[T]) Contains(ctx context.Context, value T) (bool, error) {
	index, err := l.IndexOf(ctx, value)
	return index >= 0, err
}

// IndexOf returns the position of the first element equal to value, or -1.
func (l *List[T]) IndexOf(ctx context.Context, value T) (int64, error) {
	native, err := l.native()
	if err != nil {
		return -1, err
	}
	want, err := l.typed.encode(value)
	if err != nil {
		return -1, err
	}
	var index int64 = -1
	var position int64
	err = l.eachEncoded(ctx, native, func(data string) error {
		if data == want {
			index = position
			return errStopIteration
		}
		position++
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return -1, err
	}
	return index, nil
}

// Get returns the element at index. Negative indexes count from the tail.
func (l *List[T]) Get(ctx context.Context, index int64) (T, bool, error) {
	native, err := l.native()
	if err != nil {
		var zero T
		return zero, false, err
	}
	data, err := native.LIndex(ctx, l.key, index).Result()
	return l.typed.decodeReply(l.key, data, err)
}

func (l *List[T]) Set(ctx context.Context, index int64, value T) error {
	native, err := l.native()
	if err != nil {
		return err
	}
	data, err := l.typed.encode(value)
	if err != nil {
		return err
	}
	return DoError(native.LSet(ctx, l.key, index, data).Err(), l.key)
}

// GetRange returns up to count elements starting at start. A negative start
// counts from the tail and the range stops at the last element.
func (l *List[T]) GetRange(ctx context.Context, start, count int64) ([]T, error) {
	if count <= 0 {
		return []T{}, nil
	}
	stop := start + count - 1
	if start < 0 && stop >= 0 {
		stop = -1
	}
	return l.lrange(ctx, start, stop)
}

func (l *List[T]) GetAll(ctx context.Context) ([]T, error) {
	return l.lrange(ctx, 0, -1)
}

func (l *List[T]) lrange(ctx context.Context, start, stop int64) ([]T, error) {
	native, err := l.native()
	if err != nil {
		return nil, err
	}
	data, err := native.LRange(ctx, l.key, start, stop).Result()
	if err != nil {
		return nil, DoError(err, l.key)
	}
	return l.typed.decodeAll(l.key, data)
}

// Trim keeps only the elements from start to stop inclusive.
func (l *List[T]) Trim(ctx context.Context, start, stop int64) error {
	native, err := l.native()
	if err != nil {
		return err
	}
	return DoError(native.LTrim(ctx, l.key, start, stop).Err(), l.key)
}

// InsertBefore inserts value before the first element equal to pivot and
// returns the new length, or -1 if pivot is absent.
func (l *List[T]) InsertBefore(ctx context.Context, pivot, value T) (int64, error) {
	return l.insert(ctx, "BEFORE", pivot, value)
}

func (l *List[T]) InsertAfter(ctx context.Context, pivot, value T) (int64, error) {
	return l.insert(ctx, "AFTER", pivot, value)
}

func (l *List[T]) insert(ctx context.Context, where string, pivot, value T) (int64, error) {
	native, err := l.native()
	if err != nil {
		return 0, err
	}
	p, err := l.typed.encode(pivot)
	if err != nil {
		return 0, err
	}
	v, err := l.typed.encode(value)
	if err != nil {
		return 0, err
	}
	n, err := native.LInsert(ctx, l.key, where, p, v).Result()
	return n, DoError(err, l.key)
}

// Each calls fn for every element from head to tail, fetching
// ListPageSize elements per round trip. An error from fn stops the
// iteration and is returned.
func (l *List[T]) Each(ctx context.Context, fn func(T) error) error {
	native, err := l.native()
	if err != nil {
		return err
	}
	return l.eachEncoded(ctx, native, func(data string) error {
		value, err := l.typed.decode(l.key, data)
		if err != nil {
			return err
		}
		return fn(value)
	})
}

func (l *List[T]) eachEncoded(ctx context.Context, native redis.UniversalClient, fn func(string) error) error {
	pageSize := int64(l.typed.client.ListPageSize())
	for start := int64(0); ; start += pageSize {
		page, err := native.LRange(ctx, l.key, start, start+pageSize-1).Result()
		if err != nil {
			return DoError(err, l.key)
		}
		for _, data := range page {
			if err := fn(data); err != nil {
				return err
			}
		}
		if int64(len(page)) < pageSize {
			return nil
		}
	}
}

// Enqueue adds value to the head of the list. Dequeue takes from the tail,
// so the list behaves as a FIFO queue.
func (l *List[T]) Enqueue(ctx context.Context, value T) error {
	return l.Prepend(ctx, value)
}

// Dequeue removes the oldest enqueued element (RPOP).
func (l *List[T]) Dequeue(ctx context.Context) (T, bool, error) {
	return l.Pop(ctx)
}

// BlockingDequeue waits up to timeout for an element. When the timeout
// expires it returns the zero value and false, not an error.
func (l *List[T]) BlockingDequeue(ctx context.Context, timeout time.Duration) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	native, err := l.native()
	if err != nil {
		return zero, false, err
	}
	reply, err := native.BRPop(ctx, blockingTimeout(timeout), l.key).Result()
	return l.decodePopReply(reply, err)
}

// Push appends value (RPUSH). With Pop the list behaves as a stack.
func (l *List[T]) Push(ctx context.Context, value T) error {
	return l.Add(ctx, value)
}

// Pop removes the tail element (RPOP).
func (l *List[T]) Pop(ctx context.Context) (T, bool, error) {
	native, err := l.native()
	if err != nil {
		var zero T
		return zero, false, err
	}
	data, err := native.RPop(ctx, l.key).Result()
	return l.typed.decodeReply(l.key, data, err)
}

// RemoveStart removes the head element (LPOP).
func (l *List[T]) RemoveStart(ctx context.Context) (T, bool, error) {
	native, err := l.native()
	if err != nil {
		var zero T
		return zero, false, err
	}
	data, err := native.LPop(ctx, l.key).Result()
	return l.typed.decodeReply(l.key, data, err)
}

func (l *List[T]) BlockingRemoveStart(ctx context.Context, timeout time.Duration) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	native, err := l.native()
	if err != nil {
		return zero, false, err
	}
	reply, err := native.BLPop(ctx, blockingTimeout(timeout), l.key).Result()
	return l.decodePopReply(reply, err)
}

// decodePopReply decodes the [key, element] reply of the blocking pops.
func (l *List[T]) decodePopReply(reply []string, err error) (T, bool, error) {
	var zero T
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, DoError(err, l.key)
	}
	if len(reply) != 2 {
		return zero, false, DecodeError(errors.New("unexpected blocking pop reply"), l.key)
	}
	return l.typed.decodeReply(l.key, reply[1], nil)
}

// PopAndPush atomically moves the tail element of l to the head of dst and
// returns it. LMOVE is used on servers that have it, RPOPLPUSH otherwise.
func (l *List[T]) PopAndPush(ctx context.Context, dst *List[T]) (T, bool, error) {
	var zero T
	native, err := l.native()
	if err != nil {
		return zero, false, err
	}
	caps, err := l.typed.client.capabilities(ctx)
	if err != nil {
		return zero, false, err
	}
	var data string
	if caps.lmove {
		data, err = native.LMove(ctx, l.key, dst.key, "RIGHT", "LEFT").Result()
	} else {
		data, err = native.RPopLPush(ctx, l.key, dst.key).Result()
	}
	return l.typed.decodeReply(l.key, data, err)
}

// BlockingPopAndPush is PopAndPush waiting up to timeout for an element.
func (l *List[T]) BlockingPopAndPush(ctx context.Context, dst *List[T], timeout time.Duration) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	native, err := l.native()
	if err != nil {
		return zero, false, err
	}
	data, err := native.BRPopLPush(ctx, l.key, dst.key, blockingTimeout(timeout)).Result()
	return l.typed.decodeReply(l.key, data, err)
}

// The queue operations below mirror the List methods on the typed client.

func (c *TypedClient[T]) EnqueueItemOnList(ctx context.Context, list *List[T], value T) error {
	return list.Enqueue(ctx, value)
}

func (c *TypedClient[T]) DequeueItemFromList(ctx context.Context, list *List[T]) (T, bool, error) {
	return list.Dequeue(ctx)
}

func (c *TypedClient[T]) BlockingDequeueItemFromList(ctx context.Context, list *List[T], timeout time.Duration) (T, bool, error) {
	return list.BlockingDequeue(ctx, timeout)
}

func (c *TypedClient[T]) PushItemToList(ctx context.Context, list *List[T], value T) error {
	return list.Push(ctx, value)
}

func (c *TypedClient[T]) PopItemFromList(ctx context.Context, list *List[T]) (T, bool, error) {
	return list.Pop(ctx)
}

func (c *TypedClient[T]) RemoveStartFromList(ctx context.Context, list *List[T]) (T, bool, error) {
	return list.RemoveStart(ctx)
}

func (c *TypedClient[T]) BlockingRemoveStartFromList(ctx context.Context, list *List[T], timeout time.Duration) (T, bool, error) {
	return list.BlockingRemoveStart(ctx, timeout)
}

func (c *TypedClient[T]) PopAndPushItemBetweenLists(ctx context.Context, src, dst *List[T]) (T, bool, error) {
	return src.PopAndPush(ctx, dst)
}

func (c *TypedClient[T]) BlockingPopAndPushItemBetweenLists(
	ctx context.Context, src, dst *List[T], timeout time.Duration,
) (T, bool, error) {
	return src.BlockingPopAndPush(ctx, dst, timeout)
}
