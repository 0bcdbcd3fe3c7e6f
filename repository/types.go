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

	"github.com/tomoncle/terra/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// QueryFunc narrows a select query; it is the predicate type of the repositories.
type QueryFunc func(q *bun.SelectQuery) *bun.SelectQuery

// WhereIDs is a QueryFunc matching the given primary keys.
func WhereIDs(ids []int64) QueryFunc {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id IN (?)", bun.In(ids))
	}
}

// WhereFilter adapts a QueryFilter to a QueryFunc.
func WhereFilter(filter *types.QueryFilter) QueryFunc {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if filter == nil {
			return q
		}
		return q.Where(filter.Schema, filter.Args...)
	}
}

// QueryRepository reads entities, normally from a read-only connection.
type QueryRepository[T any] interface {
	GetByID(ctx context.Context, id int64) (*T, error)

	GetByIDs(ctx context.Context, ids []int64) ([]*T, error)

	FetchBy(ctx context.Context, fn QueryFunc) ([]*T, error)

	FetchIDs(ctx context.Context, fn QueryFunc) ([]int64, error)

	FetchKeys(ctx context.Context, column string, keys []string) ([]types.IDKey[string], error)

	Exists(ctx context.Context, fn QueryFunc) (bool, error)

	Count(ctx context.Context, fn QueryFunc) (int, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	NewSelect() *bun.SelectQuery
}

// CommandRepository writes entities through the read-write connection.
type CommandRepository[T any] interface {
	Insert(ctx context.Context, entities []*T) error

	Update(ctx context.Context, entities []*T) error

	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entities []*T) error

	Delete(ctx context.Context, filter *types.QueryFilter) (int64, error)

	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)

	TransactionRepository[T]
}

// TransactionRepository runs writes on a caller supplied bun.IDB, which is
// either the database itself or an open transaction.
type TransactionRepository[T any] interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error
	InsertWithTx(ctx context.Context, db bun.IDB, entities []*T) error
	UpdateWithTx(ctx context.Context, db bun.IDB, entities []*T) error
	DeleteWithTx(ctx context.Context, db bun.IDB, filter *types.QueryFilter) (int64, error)
	Dialect() schema.Dialect
}
