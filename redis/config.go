package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	env "github.com/datatrails/go-datatrails-typedredis/environment"
	"github.com/go-redis/redis/v8"
)

const (
	//nolint:gosec
	RedisPasswordFileEnv      = "REDIS_STORE_PASSWORD_FILENAME"
	RedisClusterSizeEnv       = "REDIS_CLUSTER_SIZE"
	RedisNamespaceEnv         = "REDIS_KEY_NAMESPACE"
	RedisNodeAddressFmtEnv    = "REDIS_NODE%d_STORE_ADDRESS"
	RedisNodeAddressEnv       = "REDIS_STORE_ADDRESS"
	RedisDBEnv                = "REDIS_STORE_DB"
	RedisKeysBatchSizeEnv     = "REDIS_KEYS_BATCH_SIZE"
	RedisTLSEnv               = "REDIS_TLS"
	DefaultKeysBatchSize      = 10000
	connectTimeout            = 30 * time.Second
	singleNodeClusterSizeFlag = -1

	// The default implementation does  10 * GOMAXPROCS(0). GOMAXPROCS is
	// problematic in containers. Note that each cluster node gets its own pool
	nodePoolSize = 10
)

type Config interface {
	GetClusterOptions() (*redis.ClusterOptions, error)
	GetOptions() (*redis.Options, error)
	Namespace() string
	IsCluster() bool
	URL() string
	Log() Logger
	KeysBatchSize() int
}

type clusterConfig struct {
	log            Logger
	Size           int
	namespace      string
	keysBatchSize  int
	useTLS         bool
	clusterOptions redis.ClusterOptions
	options        redis.Options
}

type ConfigOption func(*clusterConfig)

// WithNamespace prefixes every key derived by the clients with ns.
func WithNamespace(ns string) ConfigOption {
	return func(cfg *clusterConfig) {
		cfg.namespace = ns
	}
}

func WithDB(db int) ConfigOption {
	return func(cfg *clusterConfig) {
		cfg.options.DB = db
	}
}

func WithPassword(password string) ConfigOption {
	return func(cfg *clusterConfig) {
		cfg.options.Password = password
		cfg.clusterOptions.Password = password
	}
}

func WithTLS() ConfigOption {
	return func(cfg *clusterConfig) {
		cfg.useTLS = true
	}
}

// WithConfigKeysBatchSize sets the default number of keys sent in one command
// by bulk operations. Values below 1 are ignored.
func WithConfigKeysBatchSize(n int) ConfigOption {
	return func(cfg *clusterConfig) {
		if n > 0 {
			cfg.keysBatchSize = n
		}
	}
}

// NewConfig returns a single node configuration for addr.
func NewConfig(log Logger, addr string, opts ...ConfigOption) Config {
	cfg := clusterConfig{
		log:           log,
		Size:          singleNodeClusterSizeFlag,
		keysBatchSize: DefaultKeysBatchSize,
	}
	cfg.options.Addr = addr
	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// FromEnvOrFatal assumes conventional service env vars and
// populates a Config or Fatals out
func FromEnvOrFatal(log Logger) Config {
	cfg := clusterConfig{log: log}

	cfg.Size = env.GetIntOrFatal(RedisClusterSizeEnv)
	cfg.namespace = env.GetOrFatal(RedisNamespaceEnv)
	cfg.useTLS = env.GetTruthy(RedisTLSEnv)
	cfg.keysBatchSize = env.GetIntWithDefault(RedisKeysBatchSizeEnv, DefaultKeysBatchSize)
	if cfg.keysBatchSize < 1 {
		log.Infof("%s must be positive, using %d", RedisKeysBatchSizeEnv, DefaultKeysBatchSize)
		cfg.keysBatchSize = DefaultKeysBatchSize
	}

	if cfg.Size == singleNodeClusterSizeFlag {
		cfg.options.Addr = env.GetOrFatal(RedisNodeAddressEnv)
		cfg.options.DB = env.GetIntWithDefault(RedisDBEnv, 0)
		cfg.options.Password = env.ReadIndirectWithDefault(RedisPasswordFileEnv, "")
		return &cfg
	}

	cfg.clusterOptions.Password = env.ReadIndirectOrFatal(RedisPasswordFileEnv)
	cfg.clusterOptions.PoolSize = nodePoolSize
	cfg.clusterOptions.Addrs = make([]string, 0, cfg.Size)
	cfg.clusterOptions.MaxRedirects = cfg.Size
	for i := range cfg.Size {
		suffix := fmt.Sprintf(RedisNodeAddressFmtEnv, i)
		cfg.clusterOptions.Addrs = append(
			cfg.clusterOptions.Addrs,
			env.GetOrFatal(suffix),
		)
	}
	log.InfoR("Addrs", cfg.clusterOptions.Addrs)

	return &cfg
}

func (cfg *clusterConfig) Log() Logger {
	return cfg.log
}

func (cfg *clusterConfig) IsCluster() bool {
	return cfg.Size > singleNodeClusterSizeFlag
}

func (cfg *clusterConfig) KeysBatchSize() int {
	if cfg.keysBatchSize < 1 {
		return DefaultKeysBatchSize
	}
	return cfg.keysBatchSize
}

func (cfg *clusterConfig) GetClusterOptions() (*redis.ClusterOptions, error) {

	if cfg.IsCluster() {
		return &cfg.clusterOptions, nil
	}

	return nil, fmt.Errorf("unexpected config type when requesting ClusterOptions")
}

func (cfg *clusterConfig) GetOptions() (*redis.Options, error) {

	if !cfg.IsCluster() {
		return &cfg.options, nil
	}

	return nil, fmt.Errorf("unexpected config type when requesting Options")
}

func (cfg *clusterConfig) Namespace() string {
	return cfg.namespace
}

func (cfg *clusterConfig) URL() string {
	if cfg.IsCluster() {
		if len(cfg.clusterOptions.Addrs) == 0 {
			return ""
		}
		return cfg.clusterOptions.Addrs[0]
	}

	return cfg.options.Addr
}

func (cfg *clusterConfig) tlsConfig() *tls.Config {
	if !cfg.useTLS {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// NewRedisClient connects the native client described by cfg and checks the
// connection with a PING.
func NewRedisClient(cfg Config) (redis.UniversalClient, error) {
	log := cfg.Log()

	var tlsConfig *tls.Config
	if cc, ok := cfg.(*clusterConfig); ok {
		tlsConfig = cc.tlsConfig()
	}

	var err error
	var c redis.UniversalClient
	if cfg.IsCluster() {
		var copts *redis.ClusterOptions
		if copts, err = cfg.GetClusterOptions(); err != nil {
			return nil, err
		}
		copts.TLSConfig = tlsConfig
		log.Infof("connecting to redis cluster: %v", copts.Addrs)
		c = redis.NewClusterClient(copts)
	} else {
		var opts *redis.Options
		if opts, err = cfg.GetOptions(); err != nil {
			return nil, err
		}
		opts.TLSConfig = tlsConfig
		log.Infof("connecting to redis: %s db %d", opts.Addr, opts.DB)
		c = redis.NewClient(opts)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	status := c.Ping(ctx)
	if status.Err() != nil {
		log.Infof("failed ping: %v (%v, %v)", status.Err(), status.FullName(), status.Args())
		_ = c.Close()
		return nil, ConnectError(status.Err(), cfg.URL())
	}
	return c, nil
}
