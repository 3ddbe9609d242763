package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/datatrails/go-datatrails-typedredis/logger"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// delRecorder records the number of keys carried by every DEL.
type delRecorder struct {
	sizes []int
}

func (h *delRecorder) BeforeProcess(ctx context.Context, cmd redis.Cmder) (context.Context, error) {
	if cmd.Name() == "del" {
		h.sizes = append(h.sizes, len(cmd.Args())-1)
	}
	return ctx, nil
}

func (h *delRecorder) AfterProcess(ctx context.Context, cmd redis.Cmder) error {
	return nil
}

func (h *delRecorder) BeforeProcessPipeline(ctx context.Context, cmds []redis.Cmder) (context.Context, error) {
	for _, cmd := range cmds {
		_, _ = h.BeforeProcess(ctx, cmd)
	}
	return ctx, nil
}

func (h *delRecorder) AfterProcessPipeline(ctx context.Context, cmds []redis.Cmder) error {
	return nil
}

func TestChunks(t *testing.T) {
	table := []struct {
		name     string
		items    []string
		size     int
		expected [][]string
	}{
		{name: "empty", items: nil, size: 3, expected: [][]string{}},
		{name: "exact", items: []string{"a", "b", "c", "d"}, size: 2, expected: [][]string{{"a", "b"}, {"c", "d"}}},
		{name: "remainder", items: []string{"a", "b", "c"}, size: 2, expected: [][]string{{"a", "b"}, {"c"}}},
		{name: "larger", items: []string{"a"}, size: 10, expected: [][]string{{"a"}}},
		{name: "invalid size", items: []string{"a", "b"}, size: 0, expected: [][]string{{"a"}, {"b"}}},
	}
	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, chunks(test.items, test.size))
		})
	}
}

// TestDeleteAllBatched stores 51 entities, deletes them with a batch size of
// 5 and expects every data key and the id index to be gone.
func TestDeleteAllBatched(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	const batchSize = 5

	mr := miniredis.RunT(t)
	native := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	recorder := &delRecorder{}
	native.AddHook(recorder)

	cfg := NewConfig(logger.Sugar, mr.Addr(), WithNamespace("test"))
	c := NewClientFrom(cfg, native, WithKeysBatchSize(batchSize))
	defer c.Close()
	users := NewTypedClient[testUser](c, testUserKind)

	ctx := context.Background()
	ids := []string{"first"}
	require.NoError(t, users.Store(ctx, testUser{ID: "first"}))
	for i := range 50 {
		id := fmt.Sprintf("user-%d", i)
		ids = append(ids, id)
		require.NoError(t, users.Store(ctx, testUser{ID: id}))
	}
	others := NewTypedClient[testUser](c, "Other")
	require.NoError(t, others.Store(ctx, testUser{ID: "keep"}))

	recorder.sizes = nil
	require.NoError(t, users.DeleteAll(ctx))

	assert.False(t, mr.Exists("test:ids:TestUser"))
	for _, id := range ids {
		_, found, err := users.GetByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, found, id)
	}

	// 51 ids take at least 11 DELs, plus the one for the index set
	assert.GreaterOrEqual(t, len(recorder.sizes), 12)
	total := 0
	for _, size := range recorder.sizes {
		assert.LessOrEqual(t, size, batchSize)
		total += size
	}
	assert.Equal(t, 52, total)

	// other kinds are untouched
	_, found, err := others.GetByID(ctx, "keep")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestDeleteAllEmpty(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	users, _ := newTestUsers(t)
	require.NoError(t, users.DeleteAll(context.Background()))
}

func TestDeleteAllError(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	users, mr := newTestUsers(t)
	ctx := context.Background()
	require.NoError(t, users.Store(ctx, testUser{ID: "1"}))

	mr.SetError("ERR injected failure")
	defer mr.SetError("")

	err := users.DeleteAll(ctx)
	assert.ErrorIs(t, err, ErrRedisDo)
}
