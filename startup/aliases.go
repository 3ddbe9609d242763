package startup

import (
	"github.com/datatrails/go-datatrails-typedredis/logger"
)

type Logger = logger.Logger
