package errhandling

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

type transientError struct {
	desc string
	err  error
}

func (e *transientError) Error() string {
	return e.desc + ": " + e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

// NewTransientError creates an Error object that indicates a retry is
// appropriate. It is up to the consumer to decide whether to retry based on the
// context of that consumer.
func NewTransientError(err error) error {

	return &transientError{
		desc: "transient error",
		err:  err,
	}
}

func NewTransientErrorf(format string, a ...any) error {
	err := fmt.Errorf(format, a...)
	return NewTransientError(err)
}

// IsTransient returns true if the error was wrapped to indicate its transient.
// If this function returns true it is safe, but not required, to retry the
// operation.
func IsTransient(err error) bool {
	var target *transientError

	return errors.As(err, &target)
}

// IsNetworkError reports whether err came from the network rather than the
// server: timeouts, dropped connections and refused dials.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// TransientIfNetwork marks network errors as transient and returns every other
// error unchanged.
func TransientIfNetwork(err error) error {
	if err == nil || IsTransient(err) || !IsNetworkError(err) {
		return err
	}
	return NewTransientError(err)
}
