// Package readiness waits for the services a worker depends on.
package readiness

import (
	"context"
	"errors"
	"time"

	"github.com/datatrails/go-datatrails-typedredis/logger"
)

// Repeat repeatedly calls f until it returns without a recoverable error,
// attempts are exhausted or ctx is done. attempts = -1 to try forever.
// interval is the delay between attempts.
func Repeat(ctx context.Context, log logger.Logger, attempts int, interval time.Duration, f func() error) error {
	var err error

	for i := 0; ; i++ {
		err = f()
		if err == nil {
			return nil
		}

		if IsUnrecoverable(err) {
			return err
		}

		if attempts > -1 && i >= (attempts-1) {
			break
		}
		log.Debugf("retrying %d after %v: %v", i, interval, err)

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(interval):
		}
	}

	return err
}
