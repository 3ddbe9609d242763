package redis

import (
	"github.com/datatrails/go-datatrails-typedredis/logger"
	"github.com/go-redis/redis/v8"
)

type Logger = logger.Logger

// so callers queueing their own commands do not have to import go-redis
type (
	Pipeliner      = redis.Pipeliner
	Cmder          = redis.Cmder
	StatusCmd      = redis.StatusCmd
	IntCmd         = redis.IntCmd
	BoolCmd        = redis.BoolCmd
	FloatCmd       = redis.FloatCmd
	StringCmd      = redis.StringCmd
	StringSliceCmd = redis.StringSliceCmd
	Z              = redis.Z
)
