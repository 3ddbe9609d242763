package redis

// Defines Mocks for the native redis client

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/stretchr/testify/mock"
)

// mockClient is a mock native client. Only the methods the tests expect are
// mocked, calling anything else panics on the nil embedded interface.
type mockClient struct {
	redis.UniversalClient
	mock.Mock
}

func (mc *mockClient) AddHook(hook redis.Hook) {
	mc.Called(hook)
}

func (mc *mockClient) Info(ctx context.Context, section ...string) *redis.StringCmd {
	arguments := mc.Called(section)
	return arguments.Get(0).(*redis.StringCmd)
}

func (mc *mockClient) Close() error {
	arguments := mc.Called()
	return arguments.Error(0)
}
