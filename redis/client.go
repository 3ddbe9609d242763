package redis

import (
	"bufio"
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/blang/semver/v4"
	"github.com/go-redis/redis/v8"
)

const (
	defaultListPageSize = 100
	serverVersionField  = "redis_version"
)

var (
	lmoveVersion = semver.MustParse("6.2.0")
)

// Client owns the native connection pool and the settings shared by every
// typed client created from it. It is safe for concurrent use; the pipelines
// and transactions created from it are not.
type Client struct {
	cfg           Config
	namespace     string
	native        redis.UniversalClient
	keysBatchSize int
	listPageSize  int
	observer      CommandObserver
	closed        atomic.Bool

	versionMu     sync.Mutex
	versionProbed bool
	version       semver.Version
}

type ClientOption func(*Client)

// WithKeysBatchSize bounds the number of keys sent in a single command by
// bulk operations such as DeleteAll. Values below 1 are ignored.
func WithKeysBatchSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.keysBatchSize = n
		}
	}
}

// WithServerVersion skips the INFO probe and assumes the server runs version.
func WithServerVersion(version string) ClientOption {
	return func(c *Client) {
		v, err := semver.ParseTolerant(version)
		if err != nil {
			c.Log().Infof("ignoring server version %q: %v", version, err)
			return
		}
		c.version = v
		c.versionProbed = true
	}
}

func WithMetrics(observer CommandObserver) ClientOption {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithListPageSize sets how many elements each round trip fetches when
// iterating a collection.
func WithListPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.listPageSize = n
		}
	}
}

// NewClient connects to the server described by cfg.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	native, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewClientFrom(cfg, native, opts...), nil
}

// NewClientFrom wraps an existing native client. The Client takes ownership
// and closes native on Close. On a cluster the namespace becomes a hash tag,
// "{ns}:", keeping all of the client's keys in one slot.
func NewClientFrom(cfg Config, native redis.UniversalClient, opts ...ClientOption) *Client {
	namespace := cfg.Namespace()
	if cfg.IsCluster() {
		namespace = clusterNamespace(namespace)
	}
	c := &Client{
		cfg:           cfg,
		namespace:     namespace,
		native:        native,
		keysBatchSize: cfg.KeysBatchSize(),
		listPageSize:  defaultListPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	native.AddHook(&commandHook{observer: c.observer})
	return c
}

func (c *Client) Log() Logger {
	return c.cfg.Log()
}

// Namespace is the prefix applied to every key, hash tagged on a cluster.
func (c *Client) Namespace() string {
	return c.namespace
}

// Key prefixes name with the client namespace.
func (c *Client) Key(name string) string {
	return namespaced(c.namespace, name)
}

func (c *Client) KeysBatchSize() int {
	return c.keysBatchSize
}

func (c *Client) ListPageSize() int {
	return c.listPageSize
}

// Native returns the underlying go-redis client or ErrConnectionClosed.
func (c *Client) Native() (redis.UniversalClient, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	return c.native, nil
}

func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// Close releases the connection pool. Every later operation on this client,
// or on anything created from it, fails with ErrConnectionClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.Log().Debugf("redis Client Close")
	if err := c.native.Close(); err != nil {
		return CloseError(err, c.cfg.URL())
	}
	return nil
}

// ServerVersion returns the server version, probing with INFO on first use.
// A server that does not report a version is treated as 0.0.0 so only the
// oldest command forms are used.
func (c *Client) ServerVersion(ctx context.Context) (semver.Version, error) {
	native, err := c.Native()
	if err != nil {
		return semver.Version{}, err
	}

	c.versionMu.Lock()
	defer c.versionMu.Unlock()
	if c.versionProbed {
		return c.version, nil
	}

	log := c.Log().FromContext(ctx)
	defer log.Close()

	info, err := native.Info(ctx, "server").Result()
	if err != nil {
		if ctx.Err() != nil {
			return semver.Version{}, ctx.Err()
		}
		log.Infof("server version probe failed, assuming legacy commands: %v", err)
	} else {
		c.version = parseServerVersion(info)
	}
	c.versionProbed = true
	log.Debugf("server version: %s", c.version)
	return c.version, nil
}

// capabilities is resolved before any command is queued on a pipeline or
// transaction.
type capabilities struct {
	lmove bool
}

func (c *Client) capabilities(ctx context.Context) (capabilities, error) {
	v, err := c.ServerVersion(ctx)
	if err != nil {
		return capabilities{}, err
	}
	return capabilities{lmove: v.GTE(lmoveVersion)}, nil
}

func parseServerVersion(info string) semver.Version {
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		name, value, found := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !found || name != serverVersionField {
			continue
		}
		v, err := semver.ParseTolerant(value)
		if err != nil {
			return semver.Version{}
		}
		return v
	}
	return semver.Version{}
}
