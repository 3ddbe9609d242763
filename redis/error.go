package redis

import (
	"errors"
	"fmt"

	"github.com/datatrails/go-datatrails-typedredis/errhandling"
	"github.com/go-redis/redis/v8"
)

var (
	ErrConnectionClosed   = errors.New("redis connection closed")
	ErrQueueClosed        = errors.New("redis command queue closed")
	ErrAlreadyCommitted   = errors.New("redis transaction already committed")
	ErrNotCommitted       = errors.New("redis transaction not committed")
	ErrAlreadyFlushed     = errors.New("redis pipeline already flushed")
	ErrNotFlushed         = errors.New("redis pipeline not flushed")
	ErrTransactionAborted = errors.New("redis transaction aborted")
	ErrNoID               = errors.New("entity has no id")
	ErrDecode             = errors.New("redis value decode error")
	ErrUnsupported        = errors.New("redis command not supported by server")
	ErrRedisClose         = errors.New("redis close error")
	ErrRedisConnect       = errors.New("redis connect error")
	ErrRedisDo            = errors.New("redis do error")
)

func CloseError(err error, name string) error {
	return fmt.Errorf("%w %s: %w", ErrRedisClose, name, err)
}

func ConnectError(err error, name string) error {
	return errhandling.TransientIfNetwork(fmt.Errorf("%w %s: %w", ErrRedisConnect, name, err))
}

func DecodeError(err error, key string) error {
	return fmt.Errorf("%w %s: %w", ErrDecode, key, err)
}

func NoIDError(name string) error {
	return fmt.Errorf("%w: %s", ErrNoID, name)
}

func AbortedError(err error, name string) error {
	return fmt.Errorf("%w %s: %w", ErrTransactionAborted, name, err)
}

func UnsupportedError(command string, version string) error {
	return fmt.Errorf("%w: %s on %s", ErrUnsupported, command, version)
}

// DoError wraps an error returned by the native client for the command name.
// A closed native client surfaces as ErrConnectionClosed and network failures
// are marked transient.
func DoError(err error, name string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("%w %s: %w", ErrConnectionClosed, name, err)
	}
	if errors.Is(err, redis.TxFailedErr) {
		return AbortedError(err, name)
	}
	return errhandling.TransientIfNetwork(fmt.Errorf("%w %s: %w", ErrRedisDo, name, err))
}
