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

// Package terra composes the query and command managers of an entity into a
// single Service that HTTP controllers and jobs depend on.
package terra

import (
	"context"

	"github.com/tomoncle/terra/entity"
	"github.com/tomoncle/terra/manager"
	"github.com/tomoncle/terra/response"
	"github.com/tomoncle/terra/types"
)

// Service is the full CRUD surface of one entity type.
type Service[T entity.Entity, C any, U types.ModelWithID, E types.ErrorCode] interface {
	// GetByID returns an error wrapping manager.ErrNotFound for unknown ids.
	GetByID(ctx context.Context, id int64) (*T, error)

	// GetByIDs returns the rows found; unknown ids are ignored.
	GetByIDs(ctx context.Context, ids []int64) ([]*T, error)

	// List returns the rows matching filter, all rows when filter is nil.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Page returns one page of rows.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	Create(ctx context.Context, model *C, models ...*C) *response.ManagerResponse[E]

	CreateAll(ctx context.Context, models []*C) *response.ManagerResponse[E]

	Update(ctx context.Context, model *U, models ...*U) *response.ManagerResponse[E]

	UpdateAll(ctx context.Context, models []*U) *response.ManagerResponse[E]

	DeleteByID(ctx context.Context, id int64, ids ...int64) *response.ManagerResponse[E]

	DeleteByIDs(ctx context.Context, ids []int64) *response.ManagerResponse[E]
}

type serviceImpl[T entity.Entity, C any, U types.ModelWithID, E types.ErrorCode] struct {
	*manager.QueryManager[T]
	*manager.CommandManager[T, C, U, E]
}

// NewService joins a read side and a write side over the same entity.
func NewService[T entity.Entity, C any, U types.ModelWithID, E types.ErrorCode](
	query *manager.QueryManager[T],
	command *manager.CommandManager[T, C, U, E],
) Service[T, C, U, E] {
	if query == nil || command == nil {
		panic("terra: query and command managers are required")
	}
	return &serviceImpl[T, C, U, E]{QueryManager: query, CommandManager: command}
}
