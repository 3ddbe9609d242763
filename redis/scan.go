package redis

import (
	"context"

	"github.com/go-redis/redis/v8"
	otrace "github.com/opentracing/opentracing-go"
)

// chunks splits items into consecutive slices of at most size elements.
func chunks[E any](items []E, size int) [][]E {
	if size < 1 {
		size = 1
	}
	out := make([][]E, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// scanner pages through the members of a set with SSCAN. COUNT is only a
// hint to the server, small sets come back in a single page, so callers
// chunk each page themselves.
type scanner struct {
	native    redis.UniversalClient
	key       string
	batchSize int
	cursor    uint64
	done      bool
}

func newScanner(native redis.UniversalClient, key string, batchSize int) *scanner {
	return &scanner{native: native, key: key, batchSize: batchSize}
}

// next returns the following page of members. Once the server returns cursor
// 0 the scanner reports done.
func (s *scanner) next(ctx context.Context) ([]string, error) {
	if s.done {
		return nil, nil
	}
	page, cursor, err := s.native.SScan(ctx, s.key, s.cursor, "", int64(s.batchSize)).Result()
	if err != nil {
		return nil, DoError(err, s.key)
	}
	s.cursor = cursor
	s.done = cursor == 0
	return page, nil
}

// DeleteAll removes every stored entity of the kind and then the id index
// set. No single DEL carries more than KeysBatchSize keys. The operation is
// not atomic across batches, an error stops it and is returned.
func (c *TypedClient[T]) DeleteAll(ctx context.Context) error {
	span, ctx := otrace.StartSpanFromContext(ctx, "redis.typed.DeleteAll")
	defer span.Finish()

	log := c.Log().FromContext(ctx)
	defer log.Close()

	native, err := c.client.Native()
	if err != nil {
		return err
	}

	batchSize := c.client.KeysBatchSize()
	idsKey := c.keys.IDsKey()
	s := newScanner(native, idsKey, batchSize)

	var deleted, batches int
	for !s.done {
		ids, err := s.next(ctx)
		if err != nil {
			return err
		}
		for _, chunk := range chunks(ids, batchSize) {
			if err := native.Del(ctx, c.keys.URNs(chunk)...).Err(); err != nil {
				return DoError(err, "DeleteAll")
			}
			deleted += len(chunk)
			batches++
		}
	}
	if err := native.Del(ctx, idsKey).Err(); err != nil {
		return DoError(err, idsKey)
	}
	log.Debugf("DeleteAll: %s removed %d ids in %d batches", c.keys.Kind(), deleted, batches)
	return nil
}

// DeleteByIDs removes the entities for ids, chunked like DeleteAll.
func (c *TypedClient[T]) DeleteByIDs(ctx context.Context, ids ...string) error {
	span, ctx := otrace.StartSpanFromContext(ctx, "redis.typed.DeleteByIDs")
	defer span.Finish()

	native, err := c.client.Native()
	if err != nil {
		return err
	}
	for _, chunk := range chunks(ids, c.client.KeysBatchSize()) {
		_, err := native.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, c.keys.URNs(chunk)...)
			pipe.SRem(ctx, c.keys.IDsKey(), toArgs(chunk)...)
			return nil
		})
		if err != nil {
			return DoError(err, "DeleteByIDs")
		}
	}
	return nil
}
