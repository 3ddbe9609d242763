package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/datatrails/go-datatrails-typedredis/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObserver struct {
	mu        sync.Mutex
	commands  []string
	failed    []string
	pipelines []int
}

func (o *fakeObserver) ObserveCommand(name string, elapsed time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.commands = append(o.commands, name)
	if err != nil {
		o.failed = append(o.failed, name)
	}
}

func (o *fakeObserver) ObservePipeline(size int, elapsed time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pipelines = append(o.pipelines, size)
}

func TestCommandHookObserves(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	observer := &fakeObserver{}
	users, mr := newTestUsers(t, WithMetrics(observer), WithServerVersion("7.0.0"))
	ctx := context.Background()

	// a missing key is not a failure
	_, found, err := users.GetValue(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	p, err := users.CreatePipeline(ctx)
	require.NoError(t, err)
	require.NoError(t, p.QueueIncrementValue("a", nil))
	require.NoError(t, p.QueueIncrementValue("b", nil))
	require.NoError(t, p.Flush(ctx))

	require.NoError(t, mr.Set("test:text", "x"))
	_, err = users.Lists("text").Count(ctx)
	assert.Error(t, err)

	observer.mu.Lock()
	defer observer.mu.Unlock()
	assert.Contains(t, observer.commands, "get")
	assert.Equal(t, []string{"llen"}, observer.failed)
	assert.Equal(t, []int{2}, observer.pipelines)
}
