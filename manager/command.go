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
	"github.com/tomoncle/terra/mapper"
	"github.com/tomoncle/terra/repository"
	"github.com/tomoncle/terra/response"
	"github.com/tomoncle/terra/types"
	"github.com/tomoncle/terra/utils"
	"github.com/tomoncle/terra/validation"
	"github.com/uptrace/bun"
)

// Hooks customise the pipeline. Every field is optional.
//
// Validation hooks run after the static rules and their records are merged
// after the static ones. Map hooks run once all payloads are mapped and may
// adjust the entities before they are written. Save hooks run inside the
// write transaction; returning an error rolls the whole batch back.
type Hooks[T, C, U any, E types.ErrorCode] struct {
	CreateValidation func(ctx context.Context, items []types.IndexedItem[*C]) (response.ErrorRecords[E], error)
	UpdateValidation func(ctx context.Context, items []types.IndexedItem[*U]) (response.ErrorRecords[E], error)

	AfterCreateMap func(ctx context.Context, items []types.IndexedItem[*C], entities []*T) error
	AfterUpdateMap func(ctx context.Context, items []types.IndexedItem[*U], entities []*T) error

	AfterCreateSave func(ctx context.Context, tx bun.IDB, items []types.IndexedItem[*C], entities []*T) error
	AfterUpdateSave func(ctx context.Context, tx bun.IDB, items []types.IndexedItem[*U], entities []*T) error
}

// CommandConfig collects the dependencies of a CommandManager.
type CommandConfig[T entity.Entity, C any, U types.ModelWithID, E types.ErrorCode] struct {
	Query   repository.QueryRepository[T]
	Command repository.CommandRepository[T]

	CreateValidator *validation.ModelValidator[C, E]
	UpdateValidator *validation.ModelValidator[U, E]

	CreateMapper mapper.Mapper[*C, *T]
	UpdateMapper mapper.Mapper[*U, *T]

	IDDoesNotExist E
	IDNotUnique    E

	Logger *utils.Logger
	Hooks  Hooks[T, C, U, E]
}

// CommandManager creates, updates and deletes entities of type T from create
// payloads C and update payloads U, reporting failures with codes of type E.
type CommandManager[T entity.Entity, C any, U types.ModelWithID, E types.ErrorCode] struct {
	*BaseCommandManager[T, E]

	createValidator *validation.ModelValidator[C, E]
	updateValidator *validation.ModelValidator[U, E]
	createMapper    mapper.Mapper[*C, *T]
	updateMapper    mapper.Mapper[*U, *T]
	idNotUnique     E
	hooks           Hooks[T, C, U, E]
}

// NewCommandManager panics when a required dependency is missing.
func NewCommandManager[T entity.Entity, C any, U types.ModelWithID, E types.ErrorCode](cfg CommandConfig[T, C, U, E]) *CommandManager[T, C, U, E] {
	switch {
	case cfg.CreateValidator == nil:
		panic("manager: create validator is required")
	case cfg.UpdateValidator == nil:
		panic("manager: update validator is required")
	case cfg.CreateMapper == nil:
		panic("manager: create mapper is required")
	case cfg.UpdateMapper == nil:
		panic("manager: update mapper is required")
	}
	return &CommandManager[T, C, U, E]{
		BaseCommandManager: NewBaseCommandManager(cfg.Query, cfg.Command, cfg.Logger, cfg.IDDoesNotExist),
		createValidator:    cfg.CreateValidator,
		updateValidator:    cfg.UpdateValidator,
		createMapper:       cfg.CreateMapper,
		updateMapper:       cfg.UpdateMapper,
		idNotUnique:        cfg.IDNotUnique,
		hooks:              cfg.Hooks,
	}
}

func (m *CommandManager[T, C, U, E]) Create(ctx context.Context, model *C, models ...*C) *response.ManagerResponse[E] {
	if model == nil {
		return m.fail("create", ErrNilModel)
	}
	return m.CreateAll(ctx, append([]*C{model}, models...))
}

// CreateAll validates and inserts the batch. On success the response carries
// the new ids in input order.
func (m *CommandManager[T, C, U, E]) CreateAll(ctx context.Context, models []*C) (resp *response.ManagerResponse[E]) {
	const op = "create"
	defer m.recoverTo(op, &resp)

	if len(models) == 0 {
		return m.fail(op, ErrEmptyBatch)
	}
	items := types.ToIndexedItems(models)

	records := m.createValidator.ExecuteCreateValidation(items)
	if m.hooks.CreateValidation != nil {
		custom, err := m.hooks.CreateValidation(ctx, items)
		if err != nil {
			return m.fail(op, fmt.Errorf("create validation: %w", err))
		}
		records = records.Merge(custom)
	}
	if records.Any() {
		m.Logger.WithFields(logrus.Fields{"op": op, "errors": records.Len()}).Debug("batch rejected")
		return response.NewRecordsResponse(records)
	}

	entities, err := mapper.MapAll(m.createMapper, models)
	if err != nil {
		return m.fail(op, err)
	}
	if m.hooks.AfterCreateMap != nil {
		if err := m.hooks.AfterCreateMap(ctx, items, entities); err != nil {
			return m.fail(op, fmt.Errorf("after create map: %w", err))
		}
	}

	err = m.Command.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := m.Command.InsertWithTx(ctx, tx, entities); err != nil {
			return err
		}
		if m.hooks.AfterCreateSave != nil {
			if err := m.hooks.AfterCreateSave(ctx, tx, items, entities); err != nil {
				return fmt.Errorf("after create save: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return m.fail(op, err)
	}

	ids := idsOf(entities)
	m.Logger.WithFields(logrus.Fields{"op": op, "count": len(ids)}).Debug("created")
	return response.NewSuccessResponse[E](ids)
}

func (m *CommandManager[T, C, U, E]) Update(ctx context.Context, model *U, models ...*U) *response.ManagerResponse[E] {
	if model == nil {
		return m.fail("update", ErrNilModel)
	}
	return m.UpdateAll(ctx, append([]*U{model}, models...))
}

// UpdateAll validates and updates the batch. Every id must exist and appear
// once in the batch.
func (m *CommandManager[T, C, U, E]) UpdateAll(ctx context.Context, models []*U) (resp *response.ManagerResponse[E]) {
	const op = "update"
	defer m.recoverTo(op, &resp)

	if len(models) == 0 {
		return m.fail(op, ErrEmptyBatch)
	}
	items := types.ToIndexedItems(models)

	records := m.updateValidator.ExecuteUpdateValidation(items)
	custom, err := m.validateUpdate(ctx, items)
	if err != nil {
		return m.fail(op, err)
	}
	records = records.Merge(custom)
	if records.Any() {
		m.Logger.WithFields(logrus.Fields{"op": op, "errors": records.Len()}).Debug("batch rejected")
		return response.NewRecordsResponse(records)
	}

	entities, err := mapper.MapAll(m.updateMapper, models)
	if err != nil {
		return m.fail(op, err)
	}
	if m.hooks.AfterUpdateMap != nil {
		if err := m.hooks.AfterUpdateMap(ctx, items, entities); err != nil {
			return m.fail(op, fmt.Errorf("after update map: %w", err))
		}
	}

	err = m.Command.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := m.Command.UpdateWithTx(ctx, tx, entities); err != nil {
			return err
		}
		if m.hooks.AfterUpdateSave != nil {
			if err := m.hooks.AfterUpdateSave(ctx, tx, items, entities); err != nil {
				return fmt.Errorf("after update save: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return m.fail(op, err)
	}

	ids := idsOf(entities)
	m.Logger.WithFields(logrus.Fields{"op": op, "count": len(ids)}).Debug("updated")
	return response.NewSuccessResponse[E](ids)
}

// validateUpdate runs the store checks every update gets, then the custom hook.
func (m *CommandManager[T, C, U, E]) validateUpdate(ctx context.Context, items []types.IndexedItem[*U]) (response.ErrorRecords[E], error) {
	// Non-positive ids are already reported by the static id check.
	idOf := func(model *U) int64 {
		if id := (*model).GetID(); id > 0 {
			return id
		}
		return 0
	}

	exists, err := validation.ExistsValidation(ctx, items,
		validation.Check[U, int64, E]{Field: "id", Code: m.IDDoesNotExist, KeyOf: idOf},
		func(ctx context.Context, ids []int64) ([]int64, error) {
			return m.Query.FetchIDs(ctx, repository.WhereIDs(ids))
		})
	if err != nil {
		return nil, err
	}
	duplicates := validation.DuplicateValidation(items,
		validation.Check[U, int64, E]{Field: "id", Code: m.idNotUnique, KeyOf: idOf})

	records := exists.Merge(duplicates)
	if m.hooks.UpdateValidation != nil {
		custom, err := m.hooks.UpdateValidation(ctx, items)
		if err != nil {
			return nil, fmt.Errorf("update validation: %w", err)
		}
		records = records.Merge(custom)
	}
	return records, nil
}

func (m *CommandManager[T, C, U, E]) DeleteByID(ctx context.Context, id int64, ids ...int64) *response.ManagerResponse[E] {
	all := append([]int64{id}, ids...)
	for _, v := range all {
		if v <= 0 {
			return m.fail("delete", fmt.Errorf("%w: %d", ErrInvalidID, v))
		}
	}
	return m.DeleteByIDs(ctx, all)
}

func (m *CommandManager[T, C, U, E]) DeleteByIDs(ctx context.Context, ids []int64) *response.ManagerResponse[E] {
	if len(ids) == 0 {
		return m.fail("delete", ErrEmptyBatch)
	}
	return m.DeleteBy(ctx, ids, types.NewQueryFilter("id IN (?)", bun.In(ids)))
}

func idsOf[T entity.Entity](entities []*T) []int64 {
	ids := make([]int64, len(entities))
	for i, e := range entities {
		ids[i] = (*e).GetID()
	}
	return ids
}
