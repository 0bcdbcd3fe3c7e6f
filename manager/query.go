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

package manager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomoncle/terra/repository"
	"github.com/tomoncle/terra/types"
)

// QueryManager is the read side used by controllers.
type QueryManager[T any] struct {
	repo repository.QueryRepository[T]
}

func NewQueryManager[T any](repo repository.QueryRepository[T]) *QueryManager[T] {
	if repo == nil {
		panic("manager: query repository is required")
	}
	return &QueryManager[T]{repo: repo}
}

// GetByID returns an error wrapping ErrNotFound when no row has id.
func (m *QueryManager[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	entity, err := m.repo.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return entity, err
}

func (m *QueryManager[T]) GetByIDs(ctx context.Context, ids []int64) ([]*T, error) {
	return m.repo.GetByIDs(ctx, ids)
}

func (m *QueryManager[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return m.repo.List(ctx, filter)
}

func (m *QueryManager[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return m.repo.Page(ctx, page)
}
