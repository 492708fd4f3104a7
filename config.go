package qdb

import (
	"time"

	"github.com/go-qdb/qdb/qlog"
)

// Config bundles pool bounds, timeouts and the ambient stack handles
// every Database opens with. Built via functional Options, mirroring the
// teacher's ConfigNode style.
type Config struct {
	MinConn int
	MaxConn int

	ConnMaxLifetime time.Duration
	OperationTimeout time.Duration

	Logger qlog.Logger

	StructTag string // defaults to "db"; the binder always reads the "db" tag regardless

	AsDefault bool // register this Database under Default(engine)
}

// Option configures a Config.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		MinConn:          2,
		MaxConn:          10,
		ConnMaxLifetime:  time.Hour,
		OperationTimeout: 30 * time.Second,
		Logger:           qlog.NoOp,
		StructTag:        "db",
	}
}

// WithPoolSize sets the minimum idle and maximum open connection counts.
// Ignored by embedded engines, which run a single connection.
func WithPoolSize(minconn, maxconn int) Option {
	return func(c *Config) {
		c.MinConn = minconn
		c.MaxConn = maxconn
	}
}

// WithConnMaxLifetime bounds how long a pooled connection may be reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(c *Config) { c.ConnMaxLifetime = d }
}

// WithOperationTimeout sets Config.OperationTimeout. Queryable
// operations do not read it; their deadline is the caller's context's.
func WithOperationTimeout(d time.Duration) Option {
	return func(c *Config) { c.OperationTimeout = d }
}

// WithLogger installs a structured logger; the default is a no-op.
func WithLogger(l qlog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithStructTag sets Config.StructTag. The binder does not read it: it
// always resolves column names from the "db" tag.
func WithStructTag(tag string) Option {
	return func(c *Config) { c.StructTag = tag }
}

// WithDefault registers the opened Database so Default(engine) can find
// it later.
func WithDefault() Option {
	return func(c *Config) { c.AsDefault = true }
}
