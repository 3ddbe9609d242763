package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/datatrails/go-datatrails-typedredis/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListOperations(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	items, _ := newTestStrings(t, WithListPageSize(2))
	ctx := context.Background()
	list := items.Lists("letters")

	require.NoError(t, list.AddRange(ctx, "b", "c", "d", "c", "e"))
	require.NoError(t, list.Prepend(ctx, "a"))

	n, err := list.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	index, err := list.IndexOf(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, int64(3), index)

	index, err = list.IndexOf(ctx, "z")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), index)

	ok, err := list.Contains(ctx, "e")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := list.Remove(ctx, "c")
	require.NoError(t, err)
	assert.True(t, removed)
	all, err := list.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d", "c", "e"}, all)

	require.NoError(t, list.RemoveAt(ctx, 1))
	value, found, err := list.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "d", value)

	require.NoError(t, list.Set(ctx, 0, "A"))
	page, err := list.GetRange(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "d"}, page)

	length, err := list.InsertAfter(ctx, "d", "D")
	require.NoError(t, err)
	assert.Equal(t, int64(5), length)

	var seen []string
	require.NoError(t, list.Each(ctx, func(v string) error {
		seen = append(seen, v)
		return nil
	}))
	assert.Equal(t, []string{"A", "d", "D", "c", "e"}, seen)

	errStop := errors.New("stop")
	seen = nil
	err = list.Each(ctx, func(v string) error {
		seen = append(seen, v)
		if len(seen) == 3 {
			return errStop
		}
		return nil
	})
	assert.ErrorIs(t, err, errStop)
	assert.Len(t, seen, 3)

	require.NoError(t, list.Trim(ctx, 0, 1))
	all, err = list.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "d"}, all)

	require.NoError(t, list.Clear(ctx))
	_, found, err = list.Get(ctx, 0)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListGetRange(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	items, _ := newTestStrings(t)
	ctx := context.Background()
	list := items.Lists("letters")
	require.NoError(t, list.AddRange(ctx, "a", "b", "c", "d"))

	table := []struct {
		name     string
		start    int64
		count    int64
		expected []string
	}{
		{name: "head", start: 0, count: 2, expected: []string{"a", "b"}},
		{name: "past the tail", start: 2, count: 5, expected: []string{"c", "d"}},
		{name: "empty count", start: 0, count: 0, expected: []string{}},
		{name: "from tail", start: -2, count: 1, expected: []string{"c"}},
		{name: "from tail to end", start: -2, count: 2, expected: []string{"c", "d"}},
		{name: "from tail past end", start: -1, count: 5, expected: []string{"d"}},
		{name: "whole list from tail", start: -4, count: 10, expected: []string{"a", "b", "c", "d"}},
	}
	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			page, err := list.GetRange(ctx, test.start, test.count)
			require.NoError(t, err)
			assert.Equal(t, test.expected, page)
		})
	}
}

func TestListQueue(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	users, _ := newTestUsers(t)
	ctx := context.Background()
	queue := users.Lists("queue")

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, users.EnqueueItemOnList(ctx, queue, testUser{ID: id}))
	}

	first, found, err := users.DequeueItemFromList(ctx, queue)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1", first.ID)

	second, found, err := users.BlockingDequeueItemFromList(ctx, queue, time.Second)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2", second.ID)

	require.NoError(t, users.PushItemToList(ctx, queue, testUser{ID: "4"}))
	top, found, err := users.PopItemFromList(ctx, queue)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "4", top.ID)

	require.NoError(t, users.PushItemToList(ctx, queue, testUser{ID: "5"}))
	start, found, err := users.RemoveStartFromList(ctx, queue)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "3", start.ID)

	start, found, err = users.BlockingRemoveStartFromList(ctx, queue, time.Second)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "5", start.ID)

	_, found, err = users.DequeueItemFromList(ctx, queue)
	require.NoError(t, err)
	assert.False(t, found)
}

// TestBlockingDequeueTimeout expects the zero value back once the timeout
// has elapsed on an empty list.
func TestBlockingDequeueTimeout(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	users, _ := newTestUsers(t)
	ctx := context.Background()

	start := time.Now()
	value, found, err := users.BlockingDequeueItemFromList(ctx, users.Lists("empty"), time.Second)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, testUser{}, value)
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestBlockingDequeueCancelled(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	users, _ := newTestUsers(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, found, err := users.BlockingDequeueItemFromList(ctx, users.Lists("empty"), time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, found)
}

func TestBlockingTimeoutRounding(t *testing.T) {
	table := []struct {
		in       time.Duration
		expected time.Duration
	}{
		{in: 0, expected: time.Second},
		{in: 200 * time.Millisecond, expected: time.Second},
		{in: time.Second, expected: time.Second},
		{in: 1500 * time.Millisecond, expected: 2 * time.Second},
		{in: 5 * time.Second, expected: 5 * time.Second},
	}
	for _, test := range table {
		t.Run(test.in.String(), func(t *testing.T) {
			assert.Equal(t, test.expected, blockingTimeout(test.in))
		})
	}
}

func TestPopAndPushItemBetweenLists(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	table := []struct {
		name string
		opts []ClientOption
	}{
		{name: "lmove", opts: []ClientOption{WithServerVersion("6.2.0")}},
		{name: "rpoplpush", opts: []ClientOption{WithServerVersion("5.0.14")}},
		{name: "server info"},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			items, _ := newTestStrings(t, test.opts...)
			ctx := context.Background()
			src := items.Lists("src")
			dst := items.Lists("dst")

			for _, v := range []string{"1", "2", "3"} {
				require.NoError(t, items.EnqueueItemOnList(ctx, src, v))
			}

			moved, found, err := items.PopAndPushItemBetweenLists(ctx, src, dst)
			require.NoError(t, err)
			require.True(t, found)
			// the same element Dequeue would have returned
			assert.Equal(t, "1", moved)

			moved, found, err = items.BlockingPopAndPushItemBetweenLists(ctx, src, dst, time.Second)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, "2", moved)

			all, err := dst.GetAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"2", "1"}, all)

			_, found, err = items.PopAndPushItemBetweenLists(ctx, items.Lists("none"), dst)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}
