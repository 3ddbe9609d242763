package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/mock"
)

// NewTestClient starts a miniredis server for the duration of the test and
// returns a Client connected to it.
func NewTestClient(t *testing.T, log Logger, opts ...ClientOption) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := NewConfig(log, mr.Addr(), WithNamespace("test"))
	native := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewClientFrom(cfg, native, opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

// NewMockedClient returns a Client backed by a testify mock. The hook
// registration made by NewClientFrom is expected.
func NewMockedClient(log Logger, opts ...ClientOption) (*Client, *mockClient) {
	mClient := &mockClient{}
	mClient.On("AddHook", mock.Anything).Return()
	cfg := NewConfig(log, "mocked:6379")
	return NewClientFrom(cfg, mClient, opts...), mClient
}
