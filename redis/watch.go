package redis

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
	otrace "github.com/opentracing/opentracing-go"
)

const (
	maxUpdateRetries = 3
)

// UpdateFunc receives the stored entity, or the zero value and false, and
// returns the entity to store.
type UpdateFunc[T any] func(current T, found bool) (T, error)

// Update applies fn to the entity stored for id using redis optimistic
// locking: the key is WATCHed while it is read and the write is only
// committed if no other connection changed it in the meantime.
// https://redis.io/topics/transactions#optimistic-locking-using-check-and-set
//
// On conflict fn is called again with the new value, up to maxUpdateRetries
// attempts in total, after which ErrTransactionAborted is returned. An error
// from fn is returned unchanged and nothing is written.
func (c *TypedClient[T]) Update(ctx context.Context, id string, fn UpdateFunc[T]) (T, error) {
	span, ctx := otrace.StartSpanFromContext(ctx, "redis.typed.Update")
	defer span.Finish()

	log := c.Log().FromContext(ctx)
	defer log.Close()

	var zero T
	native, err := c.client.Native()
	if err != nil {
		return zero, err
	}

	key := c.keys.URN(id)
	var updated T
	var fnErr error
	transact := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		current, found, err := c.decodeReply(key, data, err)
		if err != nil {
			return err
		}
		if updated, fnErr = fn(current, found); fnErr != nil {
			return fnErr
		}
		encoded, err := c.encode(updated)
		if err != nil {
			return err
		}

		// Only applied if key is unchanged since the WATCH.
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, redis.KeepTTL)
			pipe.SAdd(ctx, c.keys.IDsKey(), id)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxUpdateRetries; attempt++ {
		fnErr = nil
		err = native.Watch(ctx, transact, key)
		switch {
		case err == nil:
			return updated, nil
		case fnErr != nil:
			return zero, fnErr
		case errors.Is(err, ErrDecode):
			return zero, err
		case !errors.Is(err, redis.TxFailedErr):
			return zero, DoError(err, key)
		}
		log.Debugf("Update: %s changed during update, attempt %d", key, attempt)
	}
	return zero, AbortedError(err, key)
}
