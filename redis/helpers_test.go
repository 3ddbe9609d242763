package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/datatrails/go-datatrails-typedredis/logger"
)

type testUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func (u testUser) GetID() string {
	return u.ID
}

const testUserKind = "TestUser"

func newTestUsers(t *testing.T, opts ...ClientOption) (*TypedClient[testUser], *miniredis.Miniredis) {
	t.Helper()
	c, mr := NewTestClient(t, logger.Sugar, opts...)
	return NewTypedClient[testUser](c, testUserKind), mr
}

func newTestStrings(t *testing.T, opts ...ClientOption) (*TypedClient[string], *miniredis.Miniredis) {
	t.Helper()
	c, mr := NewTestClient(t, logger.Sugar, opts...)
	return NewTypedClient[string](c, "Item", WithCodec[string](StringCodec{})), mr
}
