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
	"slices"
)

var supportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

// Open builds a Manager from cfg, connects it and, when configured, runs the
// migrations. seed holds the embedded seed files and may be nil.
func Open(ctx context.Context, cfg *Config, logger Logger, seed fs.FS) (Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	for _, c := range []*ConnectionConfig{&cfg.Primary, cfg.ReadReplica} {
		if c != nil && !slices.Contains(supportedTypes, c.Type) {
			return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", c.Type, supportedTypes)
		}
	}

	manager := NewDatabaseManager(cfg)
	if logger != nil {
		manager.SetLogger(logger)
	}
	if seed != nil {
		manager.SetSeedFS(seed)
	}

	if err := manager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Migrate.OnStartup {
		if err := manager.RunMigrations(ctx); err != nil {
			_ = manager.Disconnect()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	return manager, nil
}
