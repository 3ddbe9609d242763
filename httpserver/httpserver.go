package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/datatrails/go-datatrails-typedredis/tracing"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// A http server that has an inbuilt logger, name and complies wuth the Listener interface in
// startup.Listeners.

type Server struct {
	http.Server
	log  Logger
	name string
}

type ServerOption func(*Server)

// WithTracing starts a span for every request.
func WithTracing() ServerOption {
	return func(s *Server) {
		s.Handler = tracing.HTTPMiddleware(s.Handler)
	}
}

func New(log Logger, name string, port string, handler http.Handler, opts ...ServerOption) *Server {
	log.Debugf("New HTTPServer %s", name)
	m := Server{
		Server: http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		name: strings.ToLower(name),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.log = log.WithIndex("httpserver", m.String())
	// http.Server has an internal mutex and must not be copied so a reference is returned.
	return &m
}

func (m *Server) String() string {
	// No logging here please
	return fmt.Sprintf("%s%s", m.name, m.Addr)
}

// Listen serves until Shutdown. A clean shutdown is not an error.
func (m *Server) Listen() error {
	m.log.Infof("Listen")
	err := m.Server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server terminated: %w", m, err)
	}
	return nil
}

func (m *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	m.log.Infof("Shutdown")
	err := m.Server.Shutdown(ctx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
