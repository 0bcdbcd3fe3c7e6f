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
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

type defaultDatabaseManager struct {
	config  *Config
	primary *connection
	replica *connection
	logger  Logger
	seedFS  fs.FS

	mu              sync.RWMutex
	connected       bool
	lastError       error
	reconnectTries  int
	stopHealthCheck chan struct{}
	healthCheckOnce sync.Once
}

// NewDatabaseManager returns a Manager for cfg. Nothing is opened until Connect.
func NewDatabaseManager(cfg *Config) Manager {
	if cfg == nil {
		cfg = &Config{Primary: DefaultConnectionConfig()}
	}
	m := &defaultDatabaseManager{
		config:          cfg,
		logger:          GetLogger(),
		stopHealthCheck: make(chan struct{}),
	}
	if cfg.Seed.Path != "" {
		m.seedFS = os.DirFS(cfg.Seed.Path)
	}
	return m
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.connected {
		return nil
	}

	primary, err := openConnection(ctx, &dm.config.Primary, dm.logger)
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to connect primary database: %w", err)
	}
	var replica *connection
	if dm.config.ReadReplica != nil {
		replica, err = openConnection(ctx, dm.config.ReadReplica, dm.logger)
		if err != nil {
			_ = primary.close()
			dm.lastError = err
			return fmt.Errorf("failed to connect read replica: %w", err)
		}
	}

	dm.primary, dm.replica = primary, replica
	dm.connected = true
	dm.lastError = nil
	dm.reconnectTries = 0

	if dm.config.Primary.HealthCheckInterval > 0 {
		dm.startHealthCheck()
	}
	dm.logger.Info("Database connected successfully",
		"type", dm.config.Primary.Type, "host", dm.config.Primary.Host, "replica", replica != nil)
	return nil
}

func (dm *defaultDatabaseManager) Disconnect() error {
	select {
	case dm.stopHealthCheck <- struct{}{}:
	default:
	}
	return dm.closeConnections()
}

func (dm *defaultDatabaseManager) closeConnections() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if !dm.connected {
		return nil
	}
	err := dm.primary.close()
	if rerr := dm.replica.close(); err == nil {
		err = rerr
	}
	dm.primary, dm.replica = nil, nil
	dm.connected = false

	if err != nil {
		dm.logger.Error("Failed to close database connection", "error", err)
	} else {
		dm.logger.Info("Database connection closed")
	}
	return err
}

func (dm *defaultDatabaseManager) reconnect(ctx context.Context) error {
	dm.logger.Info("Attempting to reconnect to the database")
	if err := dm.closeConnections(); err != nil {
		dm.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	return dm.Connect(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	if dm.primary == nil {
		return nil
	}
	return dm.primary.db
}

func (dm *defaultDatabaseManager) GetReadDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	if dm.replica != nil {
		return dm.replica.db
	}
	if dm.primary == nil {
		return nil
	}
	return dm.primary.db
}

// HealthCheck pings the primary and, when configured, the replica. The
// result is healthy only when both answer.
func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.RLock()
	primary, replica := dm.primary, dm.replica
	dm.mu.RUnlock()

	status := primary.health(ctx)
	if replica != nil {
		status.Replica = replica.health(ctx)
		status.Healthy = status.Healthy && status.Replica.Healthy
	}

	dm.mu.Lock()
	if status.LastError != "" {
		dm.lastError = fmt.Errorf("%s", status.LastError)
	} else {
		dm.lastError = nil
	}
	dm.mu.Unlock()
	return status
}

func (dm *defaultDatabaseManager) startHealthCheck() {
	dm.healthCheckOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(dm.config.Primary.HealthCheckInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
					status := dm.HealthCheck(ctx)
					cancel()
					if !status.Healthy && dm.config.Primary.EnableReconnect {
						dm.handleReconnect()
					}
				case <-dm.stopHealthCheck:
					return
				}
			}
		}()
	})
}

func (dm *defaultDatabaseManager) handleReconnect() {
	if dm.reconnectTries >= dm.config.Primary.MaxReconnectTries {
		dm.logger.Error("Max reconnect attempts reached, stopping", "tries", dm.reconnectTries)
		return
	}
	dm.reconnectTries++
	dm.logger.Info("Starting database reconnect", "try", dm.reconnectTries)

	time.Sleep(dm.config.Primary.ReconnectInterval)
	ctx, cancel := context.WithTimeout(context.Background(), dm.config.Primary.ConnectTimeout)
	defer cancel()
	if err := dm.reconnect(ctx); err != nil {
		dm.logger.Error("Reconnect failed", "error", err, "try", dm.reconnectTries)
		return
	}
	dm.reconnectTries = 0
	dm.logger.Info("Reconnect succeeded")
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	dm.mu.RLock()
	primary := dm.primary
	dm.mu.RUnlock()
	if primary == nil {
		return &DBStats{}
	}

	stats := primary.sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return NewMigrationManager(db, dm.config, dm.logger, dm.seedFS).RunMigrations(ctx)
}

func (dm *defaultDatabaseManager) Seed(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return NewMigrationManager(db, dm.config, dm.logger, dm.seedFS).Seed(ctx)
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if logger != nil {
		dm.logger = logger
	}
}

// SetSeedFS sets the seed files used when no seed path is configured.
func (dm *defaultDatabaseManager) SetSeedFS(fsys fs.FS) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.config.Seed.Path == "" {
		dm.seedFS = fsys
	}
}
