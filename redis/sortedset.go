package redis

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// SortedSet is a typed view of a redis sorted set, ordered by score.
type SortedSet[T any] struct {
	typed *TypedClient[T]
	key   string
}

func (c *TypedClient[T]) SortedSets(name string) *SortedSet[T] {
	return &SortedSet[T]{typed: c, key: c.Key(name)}
}

func (z *SortedSet[T]) Key() string {
	return z.key
}

// Add sets the score of value, reporting whether it is a new member.
func (z *SortedSet[T]) Add(ctx context.Context, value T, score float64) (bool, error) {
	native, err := z.typed.client.Native()
	if err != nil {
		return false, err
	}
	data, err := z.typed.encode(value)
	if err != nil {
		return false, err
	}
	n, err := native.ZAdd(ctx, z.key, &redis.Z{Score: score, Member: data}).Result()
	return n == 1, DoError(err, z.key)
}

// Increment adds by to the score of value and returns the new score.
func (z *SortedSet[T]) Increment(ctx context.Context, value T, by float64) (float64, error) {
	native, err := z.typed.client.Native()
	if err != nil {
		return 0, err
	}
	data, err := z.typed.encode(value)
	if err != nil {
		return 0, err
	}
	score, err := native.ZIncrBy(ctx, z.key, by, data).Result()
	return score, DoError(err, z.key)
}

func (z *SortedSet[T]) Remove(ctx context.Context, value T) (bool, error) {
	native, err := z.typed.client.Native()
	if err != nil {
		return false, err
	}
	data, err := z.typed.encode(value)
	if err != nil {
		return false, err
	}
	n, err := native.ZRem(ctx, z.key, data).Result()
	return n == 1, DoError(err, z.key)
}

// Score returns the score of value, false if it is not a member.
func (z *SortedSet[T]) Score(ctx context.Context, value T) (float64, bool, error) {
	native, err := z.typed.client.Native()
	if err != nil {
		return 0, false, err
	}
	data, err := z.typed.encode(value)
	if err != nil {
		return 0, false, err
	}
	score, err := native.ZScore(ctx, z.key, data).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, DoError(err, z.key)
	}
	return score, true, nil
}

func (z *SortedSet[T]) Contains(ctx context.Context, value T) (bool, error) {
	_, ok, err := z.Score(ctx, value)
	return ok, err
}

// Rank returns the zero based position of value in ascending score order.
func (z *SortedSet[T]) Rank(ctx context.Context, value T) (int64, bool, error) {
	native, err := z.typed.client.Native()
	if err != nil {
		return 0, false, err
	}
	data, err := z.typed.encode(value)
	if err != nil {
		return 0, false, err
	}
	rank, err := native.ZRank(ctx, z.key, data).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, DoError(err, z.key)
	}
	return rank, true, nil
}

func (z *SortedSet[T]) Count(ctx context.Context) (int64, error) {
	native, err := z.typed.client.Native()
	if err != nil {
		return 0, err
	}
	n, err := native.ZCard(ctx, z.key).Result()
	return n, DoError(err, z.key)
}

// GetAll returns every member, lowest score first.
func (z *SortedSet[T]) GetAll(ctx context.Context) ([]T, error) {
	return z.GetRange(ctx, 0, -1)
}

// GetRange returns the members ranked start to stop inclusive, lowest score
// first.
func (z *SortedSet[T]) GetRange(ctx context.Context, start, stop int64) ([]T, error) {
	native, err := z.typed.client.Native()
	if err != nil {
		return nil, err
	}
	data, err := native.ZRange(ctx, z.key, start, stop).Result()
	if err != nil {
		return nil, DoError(err, z.key)
	}
	return z.typed.decodeAll(z.key, data)
}

// GetAllDescending returns every member, highest score first.
func (z *SortedSet[T]) GetAllDescending(ctx context.Context) ([]T, error) {
	native, err := z.typed.client.Native()
	if err != nil {
		return nil, err
	}
	data, err := native.ZRevRange(ctx, z.key, 0, -1).Result()
	if err != nil {
		return nil, DoError(err, z.key)
	}
	return z.typed.decodeAll(z.key, data)
}

func (z *SortedSet[T]) PopLowest(ctx context.Context) (T, bool, error) {
	return z.pop(ctx, func(n redis.UniversalClient) *redis.ZSliceCmd {
		return n.ZPopMin(ctx, z.key, 1)
	})
}

func (z *SortedSet[T]) PopHighest(ctx context.Context) (T, bool, error) {
	return z.pop(ctx, func(n redis.UniversalClient) *redis.ZSliceCmd {
		return n.ZPopMax(ctx, z.key, 1)
	})
}

func (z *SortedSet[T]) pop(ctx context.Context, op func(redis.UniversalClient) *redis.ZSliceCmd) (T, bool, error) {
	var zero T
	native, err := z.typed.client.Native()
	if err != nil {
		return zero, false, err
	}
	members, err := op(native).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return zero, false, DoError(err, z.key)
	}
	if len(members) == 0 {
		return zero, false, nil
	}
	data, ok := members[0].Member.(string)
	if !ok {
		return zero, false, DecodeError(errors.New("unexpected member type"), z.key)
	}
	return z.typed.decodeReply(z.key, data, nil)
}

func (z *SortedSet[T]) Clear(ctx context.Context) error {
	native, err := z.typed.client.Native()
	if err != nil {
		return err
	}
	return DoError(native.Del(ctx, z.key).Err(), z.key)
}
