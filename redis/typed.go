package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// HasID is implemented by entities stored with Store. The id selects the
// entity key and is recorded in the id index set of the kind.
type HasID interface {
	GetID() string
}

// TypedClient is a view of a Client in which every value is a T. The kind
// names the entity type in the derived keys.
type TypedClient[T any] struct {
	client *Client
	codec  Codec[T]
	keys   KeyNamer
}

type TypedOption[T any] func(*TypedClient[T])

func WithCodec[T any](codec Codec[T]) TypedOption[T] {
	return func(c *TypedClient[T]) {
		c.codec = codec
	}
}

// NewTypedClient returns a typed view of client for entities of the given
// kind. Values are JSON encoded unless WithCodec is used.
func NewTypedClient[T any](client *Client, kind string, opts ...TypedOption[T]) *TypedClient[T] {
	c := &TypedClient[T]{
		client: client,
		codec:  JSONCodec[T]{},
		keys:   NewKeyNamer(client.Namespace(), kind),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TypedClient[T]) Client() *Client {
	return c.client
}

func (c *TypedClient[T]) Keys() KeyNamer {
	return c.keys
}

func (c *TypedClient[T]) Codec() Codec[T] {
	return c.codec
}

func (c *TypedClient[T]) Log() Logger {
	return c.client.Log()
}

// Key prefixes name with the client namespace.
func (c *TypedClient[T]) Key(name string) string {
	return c.keys.Key(name)
}

func (c *TypedClient[T]) encode(value T) (string, error) {
	data, err := c.codec.Encode(value)
	if err != nil {
		return "", err
	}
	return data, nil
}

func (c *TypedClient[T]) encodeAll(values []T) ([]any, error) {
	encoded := make([]any, 0, len(values))
	for _, value := range values {
		data, err := c.encode(value)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, data)
	}
	return encoded, nil
}

func (c *TypedClient[T]) decode(key string, data string) (T, error) {
	value, err := c.codec.Decode(data)
	if err != nil {
		var zero T
		return zero, DecodeError(err, key)
	}
	return value, nil
}

func (c *TypedClient[T]) decodeAll(key string, data []string) ([]T, error) {
	values := make([]T, 0, len(data))
	for _, d := range data {
		value, err := c.decode(key, d)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// decodeReply turns a string reply into a value. A nil reply is not an error,
// it returns the zero value and false.
func (c *TypedClient[T]) decodeReply(key string, data string, err error) (T, bool, error) {
	var zero T
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, DoError(err, key)
	}
	value, err := c.decode(key, data)
	if err != nil {
		return zero, false, err
	}
	return value, true, nil
}

func (c *TypedClient[T]) GetValue(ctx context.Context, key string) (T, bool, error) {
	native, err := c.client.Native()
	if err != nil {
		var zero T
		return zero, false, err
	}
	key = c.Key(key)
	data, err := native.Get(ctx, key).Result()
	return c.decodeReply(key, data, err)
}

func (c *TypedClient[T]) SetValue(ctx context.Context, key string, value T) error {
	return c.SetValueWithExpiry(ctx, key, value, 0)
}

// SetValueWithExpiry stores value under key for ttl. A zero ttl never expires.
func (c *TypedClient[T]) SetValueWithExpiry(ctx context.Context, key string, value T, ttl time.Duration) error {
	native, err := c.client.Native()
	if err != nil {
		return err
	}
	data, err := c.encode(value)
	if err != nil {
		return err
	}
	key = c.Key(key)
	return DoError(native.Set(ctx, key, data, ttl).Err(), key)
}

func (c *TypedClient[T]) SetValueIfNotExists(ctx context.Context, key string, value T) (bool, error) {
	native, err := c.client.Native()
	if err != nil {
		return false, err
	}
	data, err := c.encode(value)
	if err != nil {
		return false, err
	}
	key = c.Key(key)
	set, err := native.SetNX(ctx, key, data, 0).Result()
	return set, DoError(err, key)
}

func (c *TypedClient[T]) SetValueIfExists(ctx context.Context, key string, value T) (bool, error) {
	native, err := c.client.Native()
	if err != nil {
		return false, err
	}
	data, err := c.encode(value)
	if err != nil {
		return false, err
	}
	key = c.Key(key)
	set, err := native.SetXX(ctx, key, data, redis.KeepTTL).Result()
	return set, DoError(err, key)
}

// GetAndSetValue stores value and returns the previous one, if any.
func (c *TypedClient[T]) GetAndSetValue(ctx context.Context, key string, value T) (T, bool, error) {
	var zero T
	native, err := c.client.Native()
	if err != nil {
		return zero, false, err
	}
	data, err := c.encode(value)
	if err != nil {
		return zero, false, err
	}
	key = c.Key(key)
	previous, err := native.GetSet(ctx, key, data).Result()
	return c.decodeReply(key, previous, err)
}

// GetValues reads keys with MGET, at most KeysBatchSize keys per command.
// Missing keys are skipped.
func (c *TypedClient[T]) GetValues(ctx context.Context, keys ...string) ([]T, error) {
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, c.Key(key))
	}
	return c.mget(ctx, full)
}

func (c *TypedClient[T]) mget(ctx context.Context, keys []string) ([]T, error) {
	native, err := c.client.Native()
	if err != nil {
		return nil, err
	}
	values := make([]T, 0, len(keys))
	for _, chunk := range chunks(keys, c.client.KeysBatchSize()) {
		replies, err := native.MGet(ctx, chunk...).Result()
		if err != nil {
			return nil, DoError(err, "MGET")
		}
		for i, reply := range replies {
			data, ok := reply.(string)
			if !ok {
				continue
			}
			value, err := c.decode(chunk[i], data)
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
	}
	return values, nil
}

func (c *TypedClient[T]) ContainsKey(ctx context.Context, key string) (bool, error) {
	native, err := c.client.Native()
	if err != nil {
		return false, err
	}
	key = c.Key(key)
	n, err := native.Exists(ctx, key).Result()
	return n == 1, DoError(err, key)
}

// RemoveEntry deletes keys and reports whether any existed.
func (c *TypedClient[T]) RemoveEntry(ctx context.Context, keys ...string) (bool, error) {
	native, err := c.client.Native()
	if err != nil {
		return false, err
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, c.Key(key))
	}
	n, err := native.Del(ctx, full...).Result()
	return n > 0, DoError(err, "DEL")
}

func (c *TypedClient[T]) IncrementValue(ctx context.Context, key string) (int64, error) {
	return c.IncrementValueBy(ctx, key, 1)
}

func (c *TypedClient[T]) IncrementValueBy(ctx context.Context, key string, by int64) (int64, error) {
	native, err := c.client.Native()
	if err != nil {
		return 0, err
	}
	key = c.Key(key)
	n, err := native.IncrBy(ctx, key, by).Result()
	return n, DoError(err, key)
}

func (c *TypedClient[T]) DecrementValue(ctx context.Context, key string) (int64, error) {
	return c.DecrementValueBy(ctx, key, 1)
}

func (c *TypedClient[T]) DecrementValueBy(ctx context.Context, key string, by int64) (int64, error) {
	native, err := c.client.Native()
	if err != nil {
		return 0, err
	}
	key = c.Key(key)
	n, err := native.DecrBy(ctx, key, by).Result()
	return n, DoError(err, key)
}

func (c *TypedClient[T]) ExpireIn(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	native, err := c.client.Native()
	if err != nil {
		return false, err
	}
	key = c.Key(key)
	ok, err := native.Expire(ctx, key, ttl).Result()
	return ok, DoError(err, key)
}

func (c *TypedClient[T]) ExpireAt(ctx context.Context, key string, at time.Time) (bool, error) {
	native, err := c.client.Native()
	if err != nil {
		return false, err
	}
	key = c.Key(key)
	ok, err := native.ExpireAt(ctx, key, at).Result()
	return ok, DoError(err, key)
}

// GetTimeToLive returns the remaining lifetime of key. Keys without an
// expiry report -1 and missing keys -2, as the server does.
func (c *TypedClient[T]) GetTimeToLive(ctx context.Context, key string) (time.Duration, error) {
	native, err := c.client.Native()
	if err != nil {
		return 0, err
	}
	key = c.Key(key)
	ttl, err := native.TTL(ctx, key).Result()
	return ttl, DoError(err, key)
}

// SearchKeys returns every key in the namespace matching pattern, using SCAN
// so the server is never blocked on a large keyspace.
func (c *TypedClient[T]) SearchKeys(ctx context.Context, pattern string) ([]string, error) {
	native, err := c.client.Native()
	if err != nil {
		return nil, err
	}
	match := c.Key(pattern)
	var keys []string
	var cursor uint64
	for {
		var page []string
		page, cursor, err = native.Scan(ctx, cursor, match, int64(c.client.KeysBatchSize())).Result()
		if err != nil {
			return nil, DoError(err, "SCAN")
		}
		keys = append(keys, page...)
		if cursor == 0 {
			return keys, nil
		}
	}
}
