package startup

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 5 * time.Second
)

// based on gist found at https://gist.github.com/pteich/c0bb58b0b7c8af7cc6a689dd0d3d26ef?permalink_comment_id=4053701

// Listener is an interface that describes any kind of listener - HTTP Server
// or queue worker.
type Listener interface {
	Listen() error
	Shutdown(context.Context) error
}

// Listeners contains all servers that comply with the service.
type Listeners struct {
	name      string
	log       Logger
	listeners []Listener
}

type ListenersOption func(*Listeners)

func WithListener(h Listener) ListenersOption {
	return func(l *Listeners) {
		if h != nil {
			l.listeners = append(l.listeners, h)
		}
	}
}

func WithListeners(h []Listener) ListenersOption {
	return func(l *Listeners) {
		for _, listener := range h {
			if listener != nil {
				l.listeners = append(l.listeners, listener)
			}
		}
	}
}

func NewListeners(log Logger, name string, opts ...ListenersOption) Listeners {
	l := Listeners{log: log, name: strings.ToLower(name)}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

func (l *Listeners) String() string {
	return l.name
}

// Listen runs every listener until SIGINT or SIGTERM, or until one of them
// fails, then shuts them all down.
func (l *Listeners) Listen() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return l.ListenContext(ctx)
}

// ListenContext is Listen with the signal handling replaced by ctx.
func (l *Listeners) ListenContext(ctx context.Context) error {
	g, errCtx := errgroup.WithContext(ctx)

	for _, h := range l.listeners {
		g.Go(h.Listen)
	}

	g.Go(func() error {
		<-errCtx.Done()
		l.log.Infof("%s: shutting down listeners", l)
		return l.Shutdown()
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (l *Listeners) Shutdown() error {
	var err error
	for _, h := range l.listeners {
		func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if e := h.Shutdown(ctx); e != nil {
				err = errors.Join(err, fmt.Errorf("cannot shutdown %s: %w", h, e))
			}
		}()
	}
	return err
}
