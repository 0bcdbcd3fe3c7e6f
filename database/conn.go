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
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// connection is one pooled database handle.
type connection struct {
	cfg   *ConnectionConfig
	sqlDB *sql.DB
	db    *bun.DB
}

func isSQLite(kind string) bool { return kind == "sqlite" || kind == "sqlite3" }

// openConnection opens and pings a pool for cfg.
func openConnection(ctx context.Context, cfg *ConnectionConfig, logger Logger) (*connection, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}

	var (
		sqlDB *sql.DB
		db    *bun.DB
		err   error
	)
	switch cfg.Type {
	case "mysql":
		sqlDB, err = sql.Open("mysql", mysqlDSN(cfg))
		if err == nil {
			db = bun.NewDB(sqlDB, mysqldialect.New())
		}
	case "postgres", "postgresql":
		sqlDB, err = sql.Open("postgres", postgresDSN(cfg))
		if err == nil {
			db = bun.NewDB(sqlDB, pgdialect.New())
		}
	case "sqlite", "sqlite3":
		sqlDB, err = sql.Open(sqliteshim.ShimName, sqliteDSN(cfg))
		if err == nil {
			db = bun.NewDB(sqlDB, sqlitedialect.New())
		}
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	conn := &connection{cfg: cfg, sqlDB: sqlDB, db: db}
	conn.configurePool()
	conn.addHooks(logger)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}
	return conn, nil
}

func mysqlDSN(cfg *ConnectionConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%s&readTimeout=%s&writeTimeout=%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
		cfg.ConnectTimeout, cfg.ReadTimeout, cfg.WriteTimeout,
	)
}

func postgresDSN(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
		sslMode, int(cfg.ConnectTimeout.Seconds()),
	)
}

func sqliteDSN(cfg *ConnectionConfig) string {
	name := cfg.DBName
	switch {
	case strings.HasPrefix(name, "file:"), strings.Contains(name, ":memory:"):
		return name
	case strings.HasSuffix(name, ".db"):
		return name
	default:
		return name + ".db"
	}
}

func (c *connection) configurePool() {
	maxOpen, maxIdle := c.cfg.MaxOpenConns, c.cfg.MaxIdleConns
	if isSQLite(c.cfg.Type) {
		// sqlite allows a single writer; an idle conn keeps memory dbs alive
		if maxOpen <= 0 || maxOpen > 1 {
			maxOpen = 1
		}
		if maxIdle <= 0 {
			maxIdle = 1
		}
	}
	c.sqlDB.SetMaxOpenConns(maxOpen)
	c.sqlDB.SetMaxIdleConns(maxIdle)
	c.sqlDB.SetConnMaxLifetime(c.cfg.ConnMaxLifetime)
	c.sqlDB.SetConnMaxIdleTime(c.cfg.ConnMaxIdleTime)
}

func (c *connection) addHooks(logger Logger) {
	// BUNDEBUG=1 prints failed queries, BUNDEBUG=2 all of them
	c.db.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(false),
		bundebug.FromEnv("BUNDEBUG"),
	))
	if c.cfg.EnableQueryLog {
		c.db.AddQueryHook(NewQueryHook("DB_QUERY_LOG", true, nil))
	}
	if c.cfg.SlowQueryTime > 0 {
		c.db.AddQueryHook(NewSlowQueryHook(c.cfg.SlowQueryTime, logger))
	}
}

func (c *connection) close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *connection) health(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}
	if c == nil || c.db == nil {
		status.LastError = "database not initialized"
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := c.db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.LastError = err.Error()
	} else {
		status.Healthy = true
		status.Connected = true
	}

	stats := c.sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	return status
}
