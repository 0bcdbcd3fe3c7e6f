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
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"gopkg.in/yaml.v3"
)

var referentialActions = []string{"CASCADE", "RESTRICT", "SET NULL", "NO ACTION"}

// ForeignKeyConstraint describes a foreign key relationship between tables.
type ForeignKeyConstraint struct {
	Table           string `yaml:"table"`
	Column          string `yaml:"column"`
	ReferenceTable  string `yaml:"reference_table"`
	ReferenceColumn string `yaml:"reference_column"`
	OnDelete        string `yaml:"on_delete,omitempty"`
	OnUpdate        string `yaml:"on_update,omitempty"`
	ConstraintName  string `yaml:"constraint_name,omitempty"`
	Description     string `yaml:"description,omitempty"`
}

// ForeignKeyConfig is the layout of the foreign key YAML file.
type ForeignKeyConfig struct {
	ForeignKeys []ForeignKeyConstraint `yaml:"foreign_keys"`
}

// GenerateConstraintName returns the explicit name or a derived name.
func (fk *ForeignKeyConstraint) GenerateConstraintName() string {
	if fk.ConstraintName != "" {
		return fk.ConstraintName
	}
	return fmt.Sprintf("fk_%s_%s", fk.Table, fk.Column)
}

func (fk *ForeignKeyConstraint) key() string {
	return strings.ToLower(fk.Table + "." + fk.Column)
}

// Validate reports the first structural problem of the constraint.
func (fk *ForeignKeyConstraint) Validate() error {
	switch {
	case fk.Table == "":
		return errors.New("table name cannot be empty")
	case fk.Column == "":
		return fmt.Errorf("column name cannot be empty: %s", fk.Table)
	case fk.ReferenceTable == "":
		return fmt.Errorf("reference table name cannot be empty: %s.%s", fk.Table, fk.Column)
	case fk.ReferenceColumn == "":
		return fmt.Errorf("reference column name cannot be empty: %s.%s -> %s", fk.Table, fk.Column, fk.ReferenceTable)
	}
	for _, action := range []string{fk.OnDelete, fk.OnUpdate} {
		if action != "" && !slices.Contains(referentialActions, strings.ToUpper(action)) {
			return fmt.Errorf("invalid referential action: %s, constraint: %s", action, fk.GenerateConstraintName())
		}
	}
	return nil
}

// query renders the ALTER TABLE statement with quoted identifiers.
func (fk *ForeignKeyConstraint) query(db bun.IDB) *bun.RawQuery {
	sql := "ALTER TABLE ? ADD CONSTRAINT ? FOREIGN KEY (?) REFERENCES ? (?)"
	if fk.OnDelete != "" {
		sql += " ON DELETE " + strings.ToUpper(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		sql += " ON UPDATE " + strings.ToUpper(fk.OnUpdate)
	}
	return db.NewRaw(sql,
		bun.Ident(fk.Table), bun.Ident(fk.GenerateConstraintName()), bun.Ident(fk.Column),
		bun.Ident(fk.ReferenceTable), bun.Ident(fk.ReferenceColumn))
}

var (
	codeForeignKeysMu sync.RWMutex
	codeForeignKeys   []ForeignKeyConstraint
)

// RegisterForeignKey declares a constraint in code, next to the models.
func RegisterForeignKey(fk ForeignKeyConstraint) {
	codeForeignKeysMu.Lock()
	defer codeForeignKeysMu.Unlock()
	codeForeignKeys = append(codeForeignKeys, fk)
}

// LoadForeignKeys returns the code declared constraints overridden by the
// ones in the YAML file at path, matched on table and column. An empty path
// or a missing file yields the code declared set.
func LoadForeignKeys(path string) ([]ForeignKeyConstraint, error) {
	codeForeignKeysMu.RLock()
	result := slices.Clone(codeForeignKeys)
	codeForeignKeysMu.RUnlock()
	if path == "" {
		return result, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign key file: %w", err)
	}
	var cfg ForeignKeyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse foreign key file: %w", err)
	}

	index := make(map[string]int, len(result))
	for i := range result {
		index[result[i].key()] = i
	}
	for _, fk := range cfg.ForeignKeys {
		if i, ok := index[fk.key()]; ok {
			result[i] = fk
			continue
		}
		index[fk.key()] = len(result)
		result = append(result, fk)
	}
	return result, nil
}

// ForeignKeyManager adds foreign key constraints after the tables exist.
type ForeignKeyManager struct {
	constraints []ForeignKeyConstraint
	logger      Logger
}

func NewForeignKeyManager(constraints []ForeignKeyConstraint, logger Logger) *ForeignKeyManager {
	return &ForeignKeyManager{constraints: constraints, logger: logger}
}

// ValidateConstraints returns every invalid constraint, not only the first.
func (fkm *ForeignKeyManager) ValidateConstraints() []error {
	var errs []error
	for i := range fkm.constraints {
		if err := fkm.constraints[i].Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// AddAllForeignKeys adds every constraint. Failures are logged and skipped,
// since a rerun hits the ones that already exist. SQLite cannot add
// constraints to an existing table and is skipped entirely.
func (fkm *ForeignKeyManager) AddAllForeignKeys(ctx context.Context, db bun.IDB) error {
	if db.Dialect().Name() == dialect.SQLite {
		fkm.logger.Debug("Skipping foreign keys on sqlite", "count", len(fkm.constraints))
		return nil
	}
	if errs := fkm.ValidateConstraints(); len(errs) > 0 {
		return fmt.Errorf("foreign key constraint validation failed: %w", errors.Join(errs...))
	}
	for i := range fkm.constraints {
		fk := &fkm.constraints[i]
		if _, err := fk.query(db).Exec(ctx); err != nil {
			fkm.logger.Debug("Failed to add foreign key constraint", "constraint", fk.GenerateConstraintName(), "error", err.Error())
			continue
		}
		fkm.logger.Debug("Successfully added foreign key constraint", "constraint", fk.GenerateConstraintName())
	}
	return nil
}

func (fkm *ForeignKeyManager) GetConstraintsByTable(tableName string) []ForeignKeyConstraint {
	var result []ForeignKeyConstraint
	for _, c := range fkm.constraints {
		if strings.EqualFold(c.Table, tableName) {
			result = append(result, c)
		}
	}
	return result
}
