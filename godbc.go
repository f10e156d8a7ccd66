// Package godbc is a unified database-connectivity layer: one
// Connection / PreparedStatement / ResultSet contract across relational,
// key-value, and columnar backends, with generic connection pooling on top.
//
// Importing a driver package (drivers/mysql, drivers/postgres,
// drivers/sqlite, drivers/redis, drivers/cassandra) registers its URL scheme
// with the default registry; Connect and the pool then route by URL:
//
//	conn, err := godbc.Connect("godbc:mysql://app:secret@db:3306/orders", "", "")
package godbc

import (
	"github.com/shrek82/godbc/config"
	"github.com/shrek82/godbc/core"
	"github.com/shrek82/godbc/driver"
	"github.com/shrek82/godbc/pool"
	"github.com/shrek82/godbc/txmanager"
)

// Re-export the core contract.
type Connection = core.Connection
type PreparedStatement = core.PreparedStatement
type ResultSet = core.ResultSet
type Blob = core.Blob
type InputStream = core.InputStream
type Error = core.Error
type IsolationLevel = core.IsolationLevel

const (
	IsolationNone            = core.IsolationNone
	IsolationReadUncommitted = core.IsolationReadUncommitted
	IsolationReadCommitted   = core.IsolationReadCommitted
	IsolationRepeatableRead  = core.IsolationRepeatableRead
	IsolationSerializable    = core.IsolationSerializable
)

var (
	NewMemoryBlob  = core.NewMemoryBlob
	NewBytesStream = core.NewBytesStream
	IsCode         = core.IsCode
)

// Re-export driver-manager entry points.
type Driver = driver.Driver
type Registry = driver.Registry

var (
	Register = driver.Register
	Drivers  = driver.Drivers
	Connect  = driver.Connect
	ParseURL = driver.ParseURL
)

// Re-export the pool.
type Pool = pool.Pool
type PoolConfig = pool.Config
type PoolStats = pool.Stats

var (
	NewPool           = pool.New
	DefaultPoolConfig = pool.DefaultConfig
)

// Re-export the transaction manager.
type TxManager = txmanager.Manager

var NewTxManager = txmanager.New

// Re-export configuration-file loading.
var (
	LoadConfig  = config.Load
	ParseConfig = config.Parse
)
