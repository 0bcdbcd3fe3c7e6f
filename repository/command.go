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

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tomoncle/terra/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

// ErrUnfilteredDelete is returned when a delete is attempted without a filter.
var ErrUnfilteredDelete = errors.New("repository: delete requires a filter")

type commandRepositoryImpl[T any] struct {
	db *bun.DB
}

// NewCommandRepository returns a write repository backed by the primary db.
func NewCommandRepository[T any](db *bun.DB) CommandRepository[T] {
	return &commandRepositoryImpl[T]{db: db}
}

func (r *commandRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *commandRepositoryImpl[T]) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, fn)
}

func (r *commandRepositoryImpl[T]) Insert(ctx context.Context, entities []*T) error {
	return r.InsertWithTx(ctx, r.db, entities)
}

func (r *commandRepositoryImpl[T]) Update(ctx context.Context, entities []*T) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return r.UpdateWithTx(ctx, tx, entities)
	})
}

func (r *commandRepositoryImpl[T]) Delete(ctx context.Context, filter *types.QueryFilter) (int64, error) {
	return r.DeleteWithTx(ctx, r.db, filter)
}

func (r *commandRepositoryImpl[T]) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return r.Delete(ctx, types.NewQueryFilter("id IN (?)", bun.In(ids)))
}

// InsertWithTx inserts the whole batch in one statement. Generated primary
// keys are written back into entities.
func (r *commandRepositoryImpl[T]) InsertWithTx(ctx context.Context, db bun.IDB, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	_, err := db.NewInsert().Model(&entities).Exec(ctx)
	return err
}

// UpdateWithTx updates each entity by primary key. created_at is never
// overwritten.
func (r *commandRepositoryImpl[T]) UpdateWithTx(ctx context.Context, db bun.IDB, entities []*T) error {
	for i, entity := range entities {
		_, err := db.NewUpdate().
			Model(entity).
			ExcludeColumn("created_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update item %d: %w", i, err)
		}
	}
	return nil
}

func (r *commandRepositoryImpl[T]) DeleteWithTx(ctx context.Context, db bun.IDB, filter *types.QueryFilter) (int64, error) {
	if filter == nil || strings.TrimSpace(filter.Schema) == "" {
		return 0, ErrUnfilteredDelete
	}
	res, err := db.NewDelete().
		Model((*T)(nil)).
		Where(filter.Schema, filter.Args...).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Upsert inserts entities and, on a key conflict, overwrites fields. The
// statement is chosen from the dialect features.
func (r *commandRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entities []*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	if len(entities) == 0 {
		return nil
	}

	insertQuery := r.db.NewInsert().Model(&entities)
	switch {
	case r.db.HasFeature(feature.InsertOnConflict):
		return r.upsertOnConflict(ctx, insertQuery, fields, duplicateKeys)
	case r.db.HasFeature(feature.InsertOnDuplicateKey):
		return r.upsertOnDuplicateKey(ctx, insertQuery, fields)
	default:
		return r.upsertFallback(ctx, entities)
	}
}

func (r *commandRepositoryImpl[T]) upsertOnDuplicateKey(ctx context.Context, q *bun.InsertQuery, fields []string) error {
	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		sets = append(sets, "? = VALUES(?)")
		args = append(args, bun.Ident(field), bun.Ident(field))
	}
	_, err := q.On("DUPLICATE KEY UPDATE").Set(strings.Join(sets, ", "), args...).Exec(ctx)
	return err
}

func (r *commandRepositoryImpl[T]) upsertOnConflict(ctx context.Context, q *bun.InsertQuery, fields []string, duplicateKeys []string) error {
	if len(duplicateKeys) == 0 {
		duplicateKeys = []string{"id"}
	}
	keys := make([]any, 0, len(duplicateKeys))
	for _, k := range duplicateKeys {
		keys = append(keys, bun.Ident(k))
	}
	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		sets = append(sets, "? = EXCLUDED.?")
		args = append(args, bun.Ident(field), bun.Ident(field))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	_, err := q.
		On("CONFLICT ("+placeholders+") DO UPDATE", keys...).
		Set(strings.Join(sets, ", "), args...).
		Exec(ctx)
	return err
}

func (r *commandRepositoryImpl[T]) upsertFallback(ctx context.Context, entities []*T) error {
	for _, entity := range entities {
		if _, err := r.db.NewInsert().Model(entity).Exec(ctx); err != nil {
			if _, updateErr := r.db.NewUpdate().Model(entity).WherePK().Exec(ctx); updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %v", err, updateErr)
			}
		}
	}
	return nil
}
