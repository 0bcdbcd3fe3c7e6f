/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"io/fs"
	"time"

	"github.com/uptrace/bun"
)

// Manager owns the primary connection and the optional read replica.
type Manager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus

	// GetDB returns the read-write connection.
	GetDB() *bun.DB

	// GetReadDB returns the read replica, or the primary when none is configured.
	GetReadDB() *bun.DB

	GetStats() *DBStats
	RunMigrations(ctx context.Context) error
	Seed(ctx context.Context) error
	SetLogger(logger Logger)
	SetSeedFS(fsys fs.FS)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
	Replica       *HealthStatus `json:"replica,omitempty"`
}

// DBStats mirrors database/sql stats of the primary connection.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to connect to a database and tune its pool.
type ConnectionConfig struct {
	Type     string `koanf:"type" validate:"required,oneof=postgres postgresql mysql sqlite sqlite3"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	// DBName is the file name for sqlite. A value starting with "file:" or
	// containing ":memory:" is used as the DSN verbatim.
	DBName  string `koanf:"dbname" validate:"required"`
	SSLMode string `koanf:"sslmode"`

	MaxIdleConns    int           `koanf:"max_idle_conns"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`

	EnableReconnect     bool          `koanf:"enable_reconnect"`
	ReconnectInterval   time.Duration `koanf:"reconnect_interval"`
	MaxReconnectTries   int           `koanf:"max_reconnect_tries"`
	HealthCheckInterval time.Duration `koanf:"health_check_interval"`

	EnableQueryLog bool          `koanf:"enable_query_log"`
	SlowQueryTime  time.Duration `koanf:"slow_query_time"`
}

// MigrateConfig controls schema migration on startup.
type MigrateConfig struct {
	OnStartup        bool   `koanf:"on_startup"`
	EnableForeignKey bool   `koanf:"enable_foreign_key"`
	ForeignKeyFile   string `koanf:"foreign_key_file"`
}

// SeedConfig controls data seeding. Path, when set, is a directory on disk
// that replaces the embedded seed files.
type SeedConfig struct {
	OnMigration bool   `koanf:"on_migration"`
	Path        string `koanf:"path"`
	Environment string `koanf:"environment"`
}

// Config aggregates connection, migration and seeding settings.
type Config struct {
	Primary     ConnectionConfig  `koanf:"primary" validate:"required"`
	ReadReplica *ConnectionConfig `koanf:"read_replica" validate:"omitempty"`
	Migrate     MigrateConfig     `koanf:"migrate"`
	Seed        SeedConfig        `koanf:"seed"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxIdleConns:        10,
		MaxOpenConns:        100,
		ConnMaxLifetime:     time.Hour,
		ConnMaxIdleTime:     time.Minute * 30,
		ConnectTimeout:      time.Second * 10,
		ReadTimeout:         time.Second * 30,
		WriteTimeout:        time.Second * 30,
		EnableReconnect:     true,
		ReconnectInterval:   time.Second * 5,
		MaxReconnectTries:   3,
		HealthCheckInterval: time.Minute * 5,
		SlowQueryTime:       time.Second * 2,
	}
}
