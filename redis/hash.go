package redis

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// Hash is a typed view of a redis hash with fields of type K and values of
// type V.
type Hash[K comparable, V any] struct {
	client     *Client
	key        string
	keyCodec   Codec[K]
	valueCodec Codec[V]
}

type HashOption[K comparable, V any] func(*Hash[K, V])

func WithHashKeyCodec[K comparable, V any](codec Codec[K]) HashOption[K, V] {
	return func(h *Hash[K, V]) {
		h.keyCodec = codec
	}
}

func WithHashValueCodec[K comparable, V any](codec Codec[V]) HashOption[K, V] {
	return func(h *Hash[K, V]) {
		h.valueCodec = codec
	}
}

// NewHash returns the hash stored under name in the client namespace. Fields
// are strings or decimal integers when K allows it and JSON otherwise;
// values are JSON unless WithHashValueCodec is given.
func NewHash[K comparable, V any](client *Client, name string, opts ...HashOption[K, V]) *Hash[K, V] {
	h := &Hash[K, V]{
		client:     client,
		key:        client.Key(name),
		keyCodec:   canonicalCodec[K]{},
		valueCodec: JSONCodec[V]{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetHash returns a hash whose values use the codec of the typed client.
func GetHash[K comparable, T any](c *TypedClient[T], name string) *Hash[K, T] {
	return NewHash[K, T](c.client, name, WithHashValueCodec[K, T](c.codec))
}

func (h *Hash[K, V]) Key() string {
	return h.key
}

func (h *Hash[K, V]) encodeField(field K) (string, error) {
	return h.keyCodec.Encode(field)
}

func (h *Hash[K, V]) decodeField(data string) (K, error) {
	field, err := h.keyCodec.Decode(data)
	if err != nil {
		return field, DecodeError(err, h.key)
	}
	return field, nil
}

func (h *Hash[K, V]) decodeValue(data string) (V, error) {
	value, err := h.valueCodec.Decode(data)
	if err != nil {
		return value, DecodeError(err, h.key)
	}
	return value, nil
}

// SetEntry upserts field, reporting whether it is a new field.
func (h *Hash[K, V]) SetEntry(ctx context.Context, field K, value V) (bool, error) {
	native, err := h.client.Native()
	if err != nil {
		return false, err
	}
	f, err := h.encodeField(field)
	if err != nil {
		return false, err
	}
	v, err := h.valueCodec.Encode(value)
	if err != nil {
		return false, err
	}
	n, err := native.HSet(ctx, h.key, f, v).Result()
	return n == 1, DoError(err, h.key)
}

// Add is SetEntry ignoring whether the field existed.
func (h *Hash[K, V]) Add(ctx context.Context, field K, value V) error {
	_, err := h.SetEntry(ctx, field, value)
	return err
}

// SetEntryIfNotExists writes field only if it is absent.
func (h *Hash[K, V]) SetEntryIfNotExists(ctx context.Context, field K, value V) (bool, error) {
	native, err := h.client.Native()
	if err != nil {
		return false, err
	}
	f, err := h.encodeField(field)
	if err != nil {
		return false, err
	}
	v, err := h.valueCodec.Encode(value)
	if err != nil {
		return false, err
	}
	ok, err := native.HSetNX(ctx, h.key, f, v).Result()
	return ok, DoError(err, h.key)
}

// SetRange upserts every entry with a single HSET.
func (h *Hash[K, V]) SetRange(ctx context.Context, entries map[K]V) error {
	if len(entries) == 0 {
		return nil
	}
	native, err := h.client.Native()
	if err != nil {
		return err
	}
	args := make([]any, 0, 2*len(entries))
	for field, value := range entries {
		f, err := h.encodeField(field)
		if err != nil {
			return err
		}
		v, err := h.valueCodec.Encode(value)
		if err != nil {
			return err
		}
		args = append(args, f, v)
	}
	return DoError(native.HSet(ctx, h.key, args...).Err(), h.key)
}

func (h *Hash[K, V]) Remove(ctx context.Context, field K) (bool, error) {
	native, err := h.client.Native()
	if err != nil {
		return false, err
	}
	f, err := h.encodeField(field)
	if err != nil {
		return false, err
	}
	n, err := native.HDel(ctx, h.key, f).Result()
	return n == 1, DoError(err, h.key)
}

func (h *Hash[K, V]) Clear(ctx context.Context) error {
	native, err := h.client.Native()
	if err != nil {
		return err
	}
	return DoError(native.Del(ctx, h.key).Err(), h.key)
}

func (h *Hash[K, V]) Count(ctx context.Context) (int64, error) {
	native, err := h.client.Native()
	if err != nil {
		return 0, err
	}
	n, err := native.HLen(ctx, h.key).Result()
	return n, DoError(err, h.key)
}

func (h *Hash[K, V]) ContainsKey(ctx context.Context, field K) (bool, error) {
	native, err := h.client.Native()
	if err != nil {
		return false, err
	}
	f, err := h.encodeField(field)
	if err != nil {
		return false, err
	}
	ok, err := native.HExists(ctx, h.key, f).Result()
	return ok, DoError(err, h.key)
}

func (h *Hash[K, V]) Get(ctx context.Context, field K) (V, bool, error) {
	var zero V
	native, err := h.client.Native()
	if err != nil {
		return zero, false, err
	}
	f, err := h.encodeField(field)
	if err != nil {
		return zero, false, err
	}
	data, err := native.HGet(ctx, h.key, f).Result()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, DoError(err, h.key)
	}
	value, err := h.decodeValue(data)
	if err != nil {
		return zero, false, err
	}
	return value, true, nil
}

func (h *Hash[K, V]) GetAllEntries(ctx context.Context) (map[K]V, error) {
	native, err := h.client.Native()
	if err != nil {
		return nil, err
	}
	raw, err := native.HGetAll(ctx, h.key).Result()
	if err != nil {
		return nil, DoError(err, h.key)
	}
	entries := make(map[K]V, len(raw))
	for f, v := range raw {
		field, err := h.decodeField(f)
		if err != nil {
			return nil, err
		}
		value, err := h.decodeValue(v)
		if err != nil {
			return nil, err
		}
		entries[field] = value
	}
	return entries, nil
}

func (h *Hash[K, V]) GetKeys(ctx context.Context) ([]K, error) {
	native, err := h.client.Native()
	if err != nil {
		return nil, err
	}
	raw, err := native.HKeys(ctx, h.key).Result()
	if err != nil {
		return nil, DoError(err, h.key)
	}
	fields := make([]K, 0, len(raw))
	for _, f := range raw {
		field, err := h.decodeField(f)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func (h *Hash[K, V]) GetValues(ctx context.Context) ([]V, error) {
	native, err := h.client.Native()
	if err != nil {
		return nil, err
	}
	raw, err := native.HVals(ctx, h.key).Result()
	if err != nil {
		return nil, DoError(err, h.key)
	}
	values := make([]V, 0, len(raw))
	for _, v := range raw {
		value, err := h.decodeValue(v)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// Each calls fn for every entry using HSCAN, ListPageSize entries per round
// trip. An error from fn stops the iteration and is returned.
func (h *Hash[K, V]) Each(ctx context.Context, fn func(K, V) error) error {
	native, err := h.client.Native()
	if err != nil {
		return err
	}
	var cursor uint64
	for {
		var page []string
		page, cursor, err = native.HScan(ctx, h.key, cursor, "", int64(h.client.ListPageSize())).Result()
		if err != nil {
			return DoError(err, h.key)
		}
		for i := 0; i+1 < len(page); i += 2 {
			field, err := h.decodeField(page[i])
			if err != nil {
				return err
			}
			value, err := h.decodeValue(page[i+1])
			if err != nil {
				return err
			}
			if err := fn(field, value); err != nil {
				return err
			}
		}
		if cursor == 0 {
			return nil
		}
	}
}
