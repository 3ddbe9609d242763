package redis

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// raiseSequence sets the counter to ARGV[1] only if that is greater than the
// current value and returns the resulting value. An existing TTL is kept.
// go-redis uses EVALSHA and falls back to EVAL when the script is not cached.
var raiseSequence = redis.NewScript(`
local key = KEYS[1]
local floor = tonumber(ARGV[1])

local value = redis.call("GET", key)
if value then
  value = tonumber(value)
  if value >= floor then
    return value
  end
  redis.call("SET", key, floor, "KEEPTTL")
  return floor
end

redis.call("SET", key, floor)
return floor
`)

// GetNextSequence increments the sequence of the kind and returns the new
// value. The first call returns 1.
func (c *TypedClient[T]) GetNextSequence(ctx context.Context) (int64, error) {
	return c.GetNextSequenceBy(ctx, 1)
}

func (c *TypedClient[T]) GetNextSequenceBy(ctx context.Context, n int64) (int64, error) {
	native, err := c.client.Native()
	if err != nil {
		return 0, err
	}
	key := c.keys.SequenceKey()
	value, err := native.IncrBy(ctx, key, n).Result()
	return value, DoError(err, key)
}

// SetSequence resets the sequence so the next call to GetNextSequence
// returns value+1.
func (c *TypedClient[T]) SetSequence(ctx context.Context, value int64) error {
	native, err := c.client.Native()
	if err != nil {
		return err
	}
	key := c.keys.SequenceKey()
	return DoError(native.Set(ctx, key, value, redis.KeepTTL).Err(), key)
}

// RaiseSequence moves the sequence up to floor if it is currently lower and
// returns the value after the call. It never moves the sequence down.
func (c *TypedClient[T]) RaiseSequence(ctx context.Context, floor int64) (int64, error) {
	native, err := c.client.Native()
	if err != nil {
		return 0, err
	}
	key := c.keys.SequenceKey()
	value, err := raiseSequence.Run(ctx, native, []string{key}, floor).Int64()
	return value, DoError(err, key)
}
