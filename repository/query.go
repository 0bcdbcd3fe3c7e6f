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
	"fmt"

	"github.com/tomoncle/terra/types"
	"github.com/uptrace/bun"
)

type queryRepositoryImpl[T any] struct {
	db *bun.DB
}

// NewQueryRepository returns a read repository backed by db. Pass the
// read replica when one is configured.
func NewQueryRepository[T any](db *bun.DB) QueryRepository[T] {
	return &queryRepositoryImpl[T]{db: db}
}

func (r *queryRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *queryRepositoryImpl[T]) model() *bun.SelectQuery {
	return r.db.NewSelect().Model((*T)(nil))
}

func (r *queryRepositoryImpl[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	var entity T
	err := r.db.NewSelect().Model(&entity).Where("?TableAlias.id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *queryRepositoryImpl[T]) GetByIDs(ctx context.Context, ids []int64) ([]*T, error) {
	if len(ids) == 0 {
		return make([]*T, 0), nil
	}
	return r.FetchBy(ctx, WhereIDs(ids))
}

func (r *queryRepositoryImpl[T]) FetchBy(ctx context.Context, fn QueryFunc) ([]*T, error) {
	entities := make([]*T, 0)
	query := r.db.NewSelect().Model(&entities)
	if fn != nil {
		query = fn(query)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *queryRepositoryImpl[T]) FetchIDs(ctx context.Context, fn QueryFunc) ([]int64, error) {
	ids := make([]int64, 0)
	query := r.model().Column("id")
	if fn != nil {
		query = fn(query)
	}
	if err := query.Scan(ctx, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// FetchKeys returns the (id, column) pairs of the rows whose column value is
// one of keys. column must be a trusted identifier.
func (r *queryRepositoryImpl[T]) FetchKeys(ctx context.Context, column string, keys []string) ([]types.IDKey[string], error) {
	if len(keys) == 0 {
		return make([]types.IDKey[string], 0), nil
	}
	var ids []int64
	var values []string
	err := r.model().
		Column("id", column).
		Where("? IN (?)", bun.Ident(column), bun.In(keys)).
		Scan(ctx, &ids, &values)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(values) {
		return nil, fmt.Errorf("fetch keys: mismatched columns %d/%d", len(ids), len(values))
	}
	result := make([]types.IDKey[string], len(ids))
	for i := range ids {
		result[i] = types.IDKey[string]{ID: ids[i], Key: values[i]}
	}
	return result, nil
}

func (r *queryRepositoryImpl[T]) Exists(ctx context.Context, fn QueryFunc) (bool, error) {
	query := r.model()
	if fn != nil {
		query = fn(query)
	}
	return query.Exists(ctx)
}

func (r *queryRepositoryImpl[T]) Count(ctx context.Context, fn QueryFunc) (int, error) {
	query := r.model()
	if fn != nil {
		query = fn(query)
	}
	return query.Count(ctx)
}

func (r *queryRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return r.FetchBy(ctx, WhereFilter(filter))
}

func (r *queryRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(types.DefaultPage, types.DefaultPageSize)
	}
	entities := make([]*T, 0)
	query := WhereFilter(pageRequest.GetFilter())(r.db.NewSelect().Model(&entities))

	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := query.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}

	orders := pageRequest.GetOrders()
	if len(orders) == 0 {
		orders = []string{"id ASC"}
	}
	err = query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Order(orders...).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	pagination.SetTotal(total)
	pagination.Items = entities
	return pagination, nil
}
