package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	otrace "github.com/opentracing/opentracing-go"
)

func entityID[T any](value T) (string, error) {
	e, ok := any(value).(HasID)
	if !ok {
		e, ok = any(&value).(HasID)
	}
	if !ok {
		return "", NoIDError(fmt.Sprintf("%T does not implement GetID", value))
	}
	id := e.GetID()
	if id == "" {
		return "", NoIDError(fmt.Sprintf("%T", value))
	}
	return id, nil
}

// Store writes value under its urn key and adds its id to the index set, in
// one transaction.
func (c *TypedClient[T]) Store(ctx context.Context, value T) error {
	return c.StoreWithExpiry(ctx, value, 0)
}

func (c *TypedClient[T]) StoreWithExpiry(ctx context.Context, value T, ttl time.Duration) error {
	span, ctx := otrace.StartSpanFromContext(ctx, "redis.typed.Store")
	defer span.Finish()

	native, err := c.client.Native()
	if err != nil {
		return err
	}
	id, err := entityID(value)
	if err != nil {
		return err
	}
	data, err := c.encode(value)
	if err != nil {
		return err
	}
	_, err = native.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.keys.URN(id), data, ttl)
		pipe.SAdd(ctx, c.keys.IDsKey(), id)
		return nil
	})
	return DoError(err, c.keys.URN(id))
}

// StoreAll writes every value and registers the ids in a single transaction.
// The MSET and SADD commands carry at most KeysBatchSize entities each.
func (c *TypedClient[T]) StoreAll(ctx context.Context, values ...T) error {
	span, ctx := otrace.StartSpanFromContext(ctx, "redis.typed.StoreAll")
	defer span.Finish()

	if len(values) == 0 {
		return nil
	}
	native, err := c.client.Native()
	if err != nil {
		return err
	}

	pairs := make([]any, 0, 2*len(values))
	ids := make([]string, 0, len(values))
	for _, value := range values {
		id, err := entityID(value)
		if err != nil {
			return err
		}
		data, err := c.encode(value)
		if err != nil {
			return err
		}
		pairs = append(pairs, c.keys.URN(id), data)
		ids = append(ids, id)
	}

	batch := c.client.KeysBatchSize()
	_, err = native.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, chunk := range chunks(pairs, 2*batch) {
			pipe.MSet(ctx, chunk...)
		}
		for _, chunk := range chunks(ids, batch) {
			pipe.SAdd(ctx, c.keys.IDsKey(), toArgs(chunk)...)
		}
		return nil
	})
	return DoError(err, "StoreAll")
}

func (c *TypedClient[T]) GetByID(ctx context.Context, id string) (T, bool, error) {
	native, err := c.client.Native()
	if err != nil {
		var zero T
		return zero, false, err
	}
	key := c.keys.URN(id)
	data, err := native.Get(ctx, key).Result()
	return c.decodeReply(key, data, err)
}

// GetByIDs returns the stored entities for ids, skipping ids with no entity.
func (c *TypedClient[T]) GetByIDs(ctx context.Context, ids ...string) ([]T, error) {
	return c.mget(ctx, c.keys.URNs(ids))
}

// GetAll returns every entity in the id index set.
func (c *TypedClient[T]) GetAll(ctx context.Context) ([]T, error) {
	span, ctx := otrace.StartSpanFromContext(ctx, "redis.typed.GetAll")
	defer span.Finish()

	ids, err := c.GetAllIDs(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetByIDs(ctx, ids...)
}

func (c *TypedClient[T]) GetAllIDs(ctx context.Context) ([]string, error) {
	native, err := c.client.Native()
	if err != nil {
		return nil, err
	}
	ids, err := native.SMembers(ctx, c.keys.IDsKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, DoError(err, c.keys.IDsKey())
	}
	return ids, nil
}

func (c *TypedClient[T]) Delete(ctx context.Context, value T) error {
	id, err := entityID(value)
	if err != nil {
		return err
	}
	return c.DeleteByID(ctx, id)
}

func (c *TypedClient[T]) DeleteByID(ctx context.Context, id string) error {
	native, err := c.client.Native()
	if err != nil {
		return err
	}
	_, err = native.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.keys.URN(id))
		pipe.SRem(ctx, c.keys.IDsKey(), id)
		return nil
	})
	return DoError(err, c.keys.URN(id))
}

func toArgs(items []string) []any {
	args := make([]any, 0, len(items))
	for _, item := range items {
		args = append(args, item)
	}
	return args
}
