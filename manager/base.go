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
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/terra/entity"
	"github.com/tomoncle/terra/repository"
	"github.com/tomoncle/terra/response"
	"github.com/tomoncle/terra/types"
	"github.com/tomoncle/terra/utils"
)

// BaseCommandManager holds what every command manager needs and implements
// the filtered delete they share.
type BaseCommandManager[T entity.Entity, E types.ErrorCode] struct {
	Query          repository.QueryRepository[T]
	Command        repository.CommandRepository[T]
	Logger         *utils.Logger
	IDDoesNotExist E
}

// NewBaseCommandManager panics when a repository is missing.
func NewBaseCommandManager[T entity.Entity, E types.ErrorCode](
	query repository.QueryRepository[T],
	command repository.CommandRepository[T],
	logger *utils.Logger,
	idDoesNotExist E,
) *BaseCommandManager[T, E] {
	if query == nil {
		panic("manager: query repository is required")
	}
	if command == nil {
		panic("manager: command repository is required")
	}
	if logger == nil {
		logger = utils.NewLogger("MANAGER")
	}
	return &BaseCommandManager[T, E]{
		Query:          query,
		Command:        command,
		Logger:         logger,
		IDDoesNotExist: idDoesNotExist,
	}
}

// DeleteBy deletes the rows matching filter, provided every id in ids is
// among them. A missing id yields one error record whose index is its
// position in ids, and nothing is deleted.
func (m *BaseCommandManager[T, E]) DeleteBy(ctx context.Context, ids []int64, filter *types.QueryFilter) (resp *response.ManagerResponse[E]) {
	const op = "delete"
	defer m.recoverTo(op, &resp)

	if len(ids) == 0 {
		return m.fail(op, ErrEmptyBatch)
	}
	if filter == nil {
		return m.fail(op, repository.ErrUnfilteredDelete)
	}

	found, err := m.Query.FetchIDs(ctx, repository.WhereFilter(filter))
	if err != nil {
		return m.fail(op, fmt.Errorf("fetch ids: %w", err))
	}
	present := make(map[int64]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}

	records := response.NewErrorRecords[E]()
	for i, id := range ids {
		if _, ok := present[id]; !ok {
			records = records.AddValue(m.IDDoesNotExist, i, "id", fmt.Sprintf("%d does not exist", id), id)
		}
	}
	if records.Any() {
		m.Logger.WithFields(logrus.Fields{"op": op, "errors": records.Len()}).Debug("delete rejected")
		return response.NewRecordsResponse(records)
	}

	n, err := m.Command.Delete(ctx, filter)
	if err != nil {
		return m.fail(op, err)
	}
	m.Logger.WithFields(logrus.Fields{"op": op, "rows": n}).Debug("deleted")
	return response.NewSuccessResponse[E](ids)
}

func (m *BaseCommandManager[T, E]) fail(op string, err error) *response.ManagerResponse[E] {
	m.Logger.WithField("op", op).WithError(err).Error("command failed")
	return response.NewErrorResponse[E](err)
}

// recoverTo turns a panic raised by a hook or mapper into an error response.
func (m *BaseCommandManager[T, E]) recoverTo(op string, resp **response.ManagerResponse[E]) {
	if r := recover(); r != nil {
		*resp = m.fail(op, fmt.Errorf("panic: %v", r))
	}
}
