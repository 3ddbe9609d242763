package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/datatrails/go-datatrails-typedredis/logger"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdate(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	users, mr := newTestUsers(t)
	ctx := context.Background()

	created, err := users.Update(ctx, "1", func(current testUser, found bool) (testUser, error) {
		assert.False(t, found)
		return testUser{ID: "1", Name: "alice", Age: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Name)
	assert.True(t, mr.Exists("test:urn:testuser:1"))

	updated, err := users.Update(ctx, "1", func(current testUser, found bool) (testUser, error) {
		assert.True(t, found)
		current.Age++
		return current, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Age)

	stored, found, err := users.GetByID(ctx, "1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, updated, stored)

	ids, err := users.GetAllIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids)
}

func TestUpdateFuncError(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	users, mr := newTestUsers(t)
	ctx := context.Background()

	errRefused := errors.New("refused")
	_, err := users.Update(ctx, "1", func(current testUser, found bool) (testUser, error) {
		return current, errRefused
	})
	assert.Same(t, errRefused, err)
	assert.False(t, mr.Exists("test:urn:testuser:1"))
}

// TestUpdateConflict changes the watched key from a second connection on
// every attempt so the update can never commit.
func TestUpdateConflict(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	users, mr := newTestUsers(t)
	ctx := context.Background()
	require.NoError(t, users.Store(ctx, testUser{ID: "1", Name: "alice"}))

	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer other.Close()

	calls := 0
	_, err := users.Update(ctx, "1", func(current testUser, found bool) (testUser, error) {
		calls++
		data, err := json.Marshal(testUser{ID: "1", Name: "mallory", Age: calls})
		require.NoError(t, err)
		require.NoError(t, other.Set(ctx, "test:urn:testuser:1", data, 0).Err())
		current.Name = "bob"
		return current, nil
	})
	assert.ErrorIs(t, err, ErrTransactionAborted)
	assert.Equal(t, maxUpdateRetries, calls)

	stored, found, err := users.GetByID(ctx, "1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "mallory", stored.Name)
}

func TestUpdateDecodeError(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	users, mr := newTestUsers(t)
	require.NoError(t, mr.Set("test:urn:testuser:1", "not json"))

	_, err := users.Update(context.Background(), "1", func(current testUser, found bool) (testUser, error) {
		t.Fatal("not expected to be called")
		return current, nil
	})
	assert.ErrorIs(t, err, ErrDecode)
}
