package pool

import (
	"time"

	"github.com/shrek82/godbc/core"
)

// Config defines the pool's sizing, timeout, and validation behavior.
type Config struct {
	// URL is the godbc connection URL handed to the driver registry.
	URL      string
	Username string
	Password string

	// InitialSize connections are established at pool construction.
	InitialSize int
	// MaxSize bounds the total number of live connections.
	MaxSize int
	// MinIdle is the number of spare connections the pool keeps warm.
	MinIdle int

	// ConnectionTimeout bounds how long Get blocks waiting for a free
	// connection before failing with CodePoolExhausted.
	ConnectionTimeout time.Duration
	// IdleTimeout evicts connections idle longer than this, down to MinIdle.
	IdleTimeout time.Duration
	// MaxLifetime retires connections older than this regardless of use.
	MaxLifetime time.Duration
	// ValidationInterval is the background sweep period.
	ValidationInterval time.Duration

	// TestOnBorrow validates a connection before lending it out.
	TestOnBorrow bool
	// TestOnReturn validates a connection when it comes back.
	TestOnReturn bool
	// ValidationQuery, when set, is run instead of the driver's Ping.
	ValidationQuery string
}

// DefaultConfig returns the sizing and timing defaults applied to zero
// fields.
func DefaultConfig() Config {
	return Config{
		InitialSize:        0,
		MaxSize:            10,
		MinIdle:            0,
		ConnectionTimeout:  5 * time.Second,
		IdleTimeout:        time.Minute,
		MaxLifetime:        30 * time.Minute,
		ValidationInterval: 5 * time.Second,
	}
}

// Validate checks the config invariants: MinIdle <= MaxSize and
// InitialSize <= MaxSize, with MaxSize positive.
func (c Config) Validate() error {
	if c.MaxSize <= 0 {
		return core.NewError(core.CodeInvalidConfig, "pool MaxSize must be positive, got %d", c.MaxSize)
	}
	if c.MinIdle > c.MaxSize {
		return core.NewError(core.CodeInvalidConfig, "pool MinIdle %d exceeds MaxSize %d", c.MinIdle, c.MaxSize)
	}
	if c.InitialSize > c.MaxSize {
		return core.NewError(core.CodeInvalidConfig, "pool InitialSize %d exceeds MaxSize %d", c.InitialSize, c.MaxSize)
	}
	if c.InitialSize < 0 || c.MinIdle < 0 {
		return core.NewError(core.CodeInvalidConfig, "pool sizes must not be negative")
	}
	return nil
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxSize == 0 {
		c.MaxSize = def.MaxSize
	}
	if c.ConnectionTimeout == 0 {
		c.ConnectionTimeout = def.ConnectionTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.MaxLifetime == 0 {
		c.MaxLifetime = def.MaxLifetime
	}
	if c.ValidationInterval == 0 {
		c.ValidationInterval = def.ValidationInterval
	}
	return c
}
