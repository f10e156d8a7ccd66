// Package config loads pool configuration from YAML. Durations are given in
// milliseconds, matching the wire-level configuration fields.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shrek82/godbc/core"
	"github.com/shrek82/godbc/pool"
)

// PoolConfig is the YAML shape of one pool definition.
type PoolConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	InitialSize int `yaml:"initialSize"`
	MaxSize     int `yaml:"maxSize"`
	MinIdle     int `yaml:"minIdle"`

	ConnectionTimeoutMs  int `yaml:"connectionTimeout"`
	IdleTimeoutMs        int `yaml:"idleTimeout"`
	MaxLifetimeMs        int `yaml:"maxLifetime"`
	ValidationIntervalMs int `yaml:"validationInterval"`

	TestOnBorrow    bool   `yaml:"testOnBorrow"`
	TestOnReturn    bool   `yaml:"testOnReturn"`
	ValidationQuery string `yaml:"validationQuery"`
}

// File is the YAML document root: named pool definitions.
type File struct {
	Pools map[string]PoolConfig `yaml:"pools"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse parses YAML config bytes.
func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Pool returns the named pool definition converted to a pool.Config,
// validated.
func (f *File) Pool(name string) (pool.Config, error) {
	pc, ok := f.Pools[name]
	if !ok {
		return pool.Config{}, core.NewError(core.CodeInvalidConfig, "no pool named %q in config", name)
	}
	cfg := pc.ToPoolConfig()
	if err := cfg.Validate(); err != nil {
		return pool.Config{}, err
	}
	return cfg, nil
}

// ToPoolConfig converts the millisecond fields to durations.
func (pc PoolConfig) ToPoolConfig() pool.Config {
	return pool.Config{
		URL:                pc.URL,
		Username:           pc.Username,
		Password:           pc.Password,
		InitialSize:        pc.InitialSize,
		MaxSize:            pc.MaxSize,
		MinIdle:            pc.MinIdle,
		ConnectionTimeout:  time.Duration(pc.ConnectionTimeoutMs) * time.Millisecond,
		IdleTimeout:        time.Duration(pc.IdleTimeoutMs) * time.Millisecond,
		MaxLifetime:        time.Duration(pc.MaxLifetimeMs) * time.Millisecond,
		ValidationInterval: time.Duration(pc.ValidationIntervalMs) * time.Millisecond,
		TestOnBorrow:       pc.TestOnBorrow,
		TestOnReturn:       pc.TestOnReturn,
		ValidationQuery:    pc.ValidationQuery,
	}
}
