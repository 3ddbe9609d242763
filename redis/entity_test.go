package redis

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/datatrails/go-datatrails-typedredis/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAndGet(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	users, mr := newTestUsers(t)
	ctx := context.Background()

	alice := testUser{ID: "1", Name: "alice", Age: 30}
	require.NoError(t, users.Store(ctx, alice))

	assert.True(t, mr.Exists("test:urn:testuser:1"))
	ok, err := mr.SIsMember("test:ids:TestUser", "1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, found, err := users.GetByID(ctx, "1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, alice, got)

	_, found, err = users.GetByID(ctx, "2")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, users.StoreAll(ctx,
		testUser{ID: "2", Name: "bob"},
		testUser{ID: "3", Name: "carol"},
	))

	all, err := users.GetAll(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(all))
	for _, u := range all {
		names = append(names, u.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"alice", "bob", "carol"}, names)

	some, err := users.GetByIDs(ctx, "3", "missing", "1")
	require.NoError(t, err)
	assert.Equal(t, []testUser{{ID: "3", Name: "carol"}, alice}, some)

	require.NoError(t, users.Delete(ctx, alice))
	assert.False(t, mr.Exists("test:urn:testuser:1"))
	ids, err := users.GetAllIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2", "3"}, ids)
}

func TestStoreWithExpiry(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	users, mr := newTestUsers(t)
	ctx := context.Background()

	require.NoError(t, users.StoreWithExpiry(ctx, testUser{ID: "1"}, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("test:urn:testuser:1"))

	mr.FastForward(2 * time.Minute)
	_, found, err := users.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreRequiresID(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	users, mr := newTestUsers(t)
	ctx := context.Background()

	assert.ErrorIs(t, users.Store(ctx, testUser{Name: "anonymous"}), ErrNoID)

	plain := NewTypedClient[string](users.Client(), "Plain")
	assert.ErrorIs(t, plain.Store(ctx, "no id"), ErrNoID)
	assert.Empty(t, mr.Keys())
}

func TestDeleteByIDs(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	users, _ := newTestUsers(t, WithKeysBatchSize(2))
	ctx := context.Background()

	ids := make([]string, 0, 7)
	for i := range 7 {
		id := fmt.Sprintf("%d", i)
		ids = append(ids, id)
		require.NoError(t, users.Store(ctx, testUser{ID: id}))
	}

	require.NoError(t, users.DeleteByIDs(ctx, ids[:5]...))

	remaining, err := users.GetAllIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids[5:], remaining)
	for _, id := range ids[:5] {
		_, found, err := users.GetByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, found)
	}
}

func TestValueOperations(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	users, mr := newTestUsers(t, WithKeysBatchSize(2))
	ctx := context.Background()

	one := testUser{ID: "1", Name: "one"}
	require.NoError(t, users.SetValue(ctx, "current", one))

	got, found, err := users.GetValue(ctx, "current")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, one, got)

	set, err := users.SetValueIfNotExists(ctx, "current", testUser{ID: "2"})
	require.NoError(t, err)
	assert.False(t, set)

	set, err = users.SetValueIfExists(ctx, "absent", testUser{ID: "2"})
	require.NoError(t, err)
	assert.False(t, set)
	assert.False(t, mr.Exists("test:absent"))

	previous, found, err := users.GetAndSetValue(ctx, "current", testUser{ID: "3"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, one, previous)

	require.NoError(t, users.SetValue(ctx, "other", testUser{ID: "4"}))
	require.NoError(t, users.SetValue(ctx, "third", testUser{ID: "5"}))
	values, err := users.GetValues(ctx, "current", "nothing", "other", "third")
	require.NoError(t, err)
	assert.Equal(t, []testUser{{ID: "3"}, {ID: "4"}, {ID: "5"}}, values)

	ok, err := users.ContainsKey(ctx, "other")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := users.RemoveEntry(ctx, "other", "nothing")
	require.NoError(t, err)
	assert.True(t, removed)

	n, err := users.IncrementValueBy(ctx, "hits", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	n, err = users.DecrementValue(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	ok, err = users.ExpireIn(ctx, "hits", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	ttl, err := users.GetTimeToLive(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	keys, err := users.SearchKeys(ctx, "th*")
	require.NoError(t, err)
	assert.Equal(t, []string{"test:third"}, keys)

	_, _, err = users.GetValue(ctx, "hits")
	assert.ErrorIs(t, err, ErrDecode)
}
