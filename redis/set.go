package redis

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// Set is a typed view of a redis set. Membership is decided by the encoded
// form of the element.
type Set[T any] struct {
	typed *TypedClient[T]
	key   string
}

// Sets returns the set stored under name in the client namespace.
func (c *TypedClient[T]) Sets(name string) *Set[T] {
	return &Set[T]{typed: c, key: c.Key(name)}
}

func (s *Set[T]) Key() string {
	return s.key
}

// Add reports whether value was not already a member.
func (s *Set[T]) Add(ctx context.Context, value T) (bool, error) {
	n, err := s.AddRange(ctx, value)
	return n == 1, err
}

// AddRange adds values and returns how many were new members.
func (s *Set[T]) AddRange(ctx context.Context, values ...T) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	native, err := s.typed.client.Native()
	if err != nil {
		return 0, err
	}
	args, err := s.typed.encodeAll(values)
	if err != nil {
		return 0, err
	}
	n, err := native.SAdd(ctx, s.key, args...).Result()
	return n, DoError(err, s.key)
}

func (s *Set[T]) Remove(ctx context.Context, value T) (bool, error) {
	native, err := s.typed.client.Native()
	if err != nil {
		return false, err
	}
	data, err := s.typed.encode(value)
	if err != nil {
		return false, err
	}
	n, err := native.SRem(ctx, s.key, data).Result()
	return n == 1, DoError(err, s.key)
}

// Pop removes and returns a random member.
func (s *Set[T]) Pop(ctx context.Context) (T, bool, error) {
	native, err := s.typed.client.Native()
	if err != nil {
		var zero T
		return zero, false, err
	}
	data, err := native.SPop(ctx, s.key).Result()
	return s.typed.decodeReply(s.key, data, err)
}

func (s *Set[T]) Clear(ctx context.Context) error {
	native, err := s.typed.client.Native()
	if err != nil {
		return err
	}
	return DoError(native.Del(ctx, s.key).Err(), s.key)
}

func (s *Set[T]) Count(ctx context.Context) (int64, error) {
	native, err := s.typed.client.Native()
	if err != nil {
		return 0, err
	}
	n, err := native.SCard(ctx, s.key).Result()
	return n, DoError(err, s.key)
}

func (s *Set[T]) Contains(ctx context.Context, value T) (bool, error) {
	native, err := s.typed.client.Native()
	if err != nil {
		return false, err
	}
	data, err := s.typed.encode(value)
	if err != nil {
		return false, err
	}
	ok, err := native.SIsMember(ctx, s.key, data).Result()
	return ok, DoError(err, s.key)
}

func (s *Set[T]) GetAll(ctx context.Context) ([]T, error) {
	native, err := s.typed.client.Native()
	if err != nil {
		return nil, err
	}
	data, err := native.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, DoError(err, s.key)
	}
	return s.typed.decodeAll(s.key, data)
}

// Each calls fn for every member using SSCAN. A member may be seen more than
// once if the set is modified during the iteration.
func (s *Set[T]) Each(ctx context.Context, fn func(T) error) error {
	native, err := s.typed.client.Native()
	if err != nil {
		return err
	}
	sc := newScanner(native, s.key, s.typed.client.ListPageSize())
	for !sc.done {
		page, err := sc.next(ctx)
		if err != nil {
			return err
		}
		for _, data := range page {
			value, err := s.typed.decode(s.key, data)
			if err != nil {
				return err
			}
			if err := fn(value); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetRandomItem returns a member without removing it, false if the set is
// empty.
func (s *Set[T]) GetRandomItem(ctx context.Context) (T, bool, error) {
	native, err := s.typed.client.Native()
	if err != nil {
		var zero T
		return zero, false, err
	}
	data, err := native.SRandMember(ctx, s.key).Result()
	return s.typed.decodeReply(s.key, data, err)
}

// MoveTo moves value from s to dst, reporting false if it was not a member.
func (s *Set[T]) MoveTo(ctx context.Context, dst *Set[T], value T) (bool, error) {
	native, err := s.typed.client.Native()
	if err != nil {
		return false, err
	}
	data, err := s.typed.encode(value)
	if err != nil {
		return false, err
	}
	ok, err := native.SMove(ctx, s.key, dst.key, data).Result()
	return ok, DoError(err, s.key)
}

func setKeys[T any](sets []*Set[T]) []string {
	keys := make([]string, 0, len(sets))
	for _, s := range sets {
		keys = append(keys, s.key)
	}
	return keys
}

func (c *TypedClient[T]) setAlgebra(
	ctx context.Context, name string, keys []string,
	op func(context.Context, redis.UniversalClient, []string) *redis.StringSliceCmd,
) ([]T, error) {
	if len(keys) == 0 {
		return []T{}, nil
	}
	native, err := c.client.Native()
	if err != nil {
		return nil, err
	}
	data, err := op(ctx, native, keys).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, DoError(err, name)
	}
	return c.decodeAll(name, data)
}

func (c *TypedClient[T]) storeAlgebra(
	ctx context.Context, name string, into *Set[T], keys []string,
	op func(context.Context, redis.UniversalClient, string, []string) *redis.IntCmd,
) (int64, error) {
	native, err := c.client.Native()
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, DoError(native.Del(ctx, into.key).Err(), name)
	}
	n, err := op(ctx, native, into.key, keys).Result()
	return n, DoError(err, name)
}

// GetIntersectFromSets returns the members present in every set.
func (c *TypedClient[T]) GetIntersectFromSets(ctx context.Context, sets ...*Set[T]) ([]T, error) {
	return c.setAlgebra(ctx, "SINTER", setKeys(sets),
		func(ctx context.Context, n redis.UniversalClient, keys []string) *redis.StringSliceCmd {
			return n.SInter(ctx, keys...)
		})
}

// StoreIntersectFromSets replaces into with the intersection of sets and
// returns its size.
func (c *TypedClient[T]) StoreIntersectFromSets(ctx context.Context, into *Set[T], sets ...*Set[T]) (int64, error) {
	return c.storeAlgebra(ctx, "SINTERSTORE", into, setKeys(sets),
		func(ctx context.Context, n redis.UniversalClient, dst string, keys []string) *redis.IntCmd {
			return n.SInterStore(ctx, dst, keys...)
		})
}

func (c *TypedClient[T]) GetUnionFromSets(ctx context.Context, sets ...*Set[T]) ([]T, error) {
	return c.setAlgebra(ctx, "SUNION", setKeys(sets),
		func(ctx context.Context, n redis.UniversalClient, keys []string) *redis.StringSliceCmd {
			return n.SUnion(ctx, keys...)
		})
}

func (c *TypedClient[T]) StoreUnionFromSets(ctx context.Context, into *Set[T], sets ...*Set[T]) (int64, error) {
	return c.storeAlgebra(ctx, "SUNIONSTORE", into, setKeys(sets),
		func(ctx context.Context, n redis.UniversalClient, dst string, keys []string) *redis.IntCmd {
			return n.SUnionStore(ctx, dst, keys...)
		})
}

// GetDifferencesFromSet returns the members of from that are in none of
// with. The operands are read when the command runs, nothing is cached.
func (c *TypedClient[T]) GetDifferencesFromSet(ctx context.Context, from *Set[T], with ...*Set[T]) ([]T, error) {
	keys := append([]string{from.key}, setKeys(with)...)
	return c.setAlgebra(ctx, "SDIFF", keys,
		func(ctx context.Context, n redis.UniversalClient, keys []string) *redis.StringSliceCmd {
			return n.SDiff(ctx, keys...)
		})
}

func (c *TypedClient[T]) StoreDifferencesFromSet(ctx context.Context, into, from *Set[T], with ...*Set[T]) (int64, error) {
	keys := append([]string{from.key}, setKeys(with)...)
	return c.storeAlgebra(ctx, "SDIFFSTORE", into, keys,
		func(ctx context.Context, n redis.UniversalClient, dst string, keys []string) *redis.IntCmd {
			return n.SDiffStore(ctx, dst, keys...)
		})
}
