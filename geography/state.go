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

package geography

import (
	"context"
	"fmt"

	"github.com/tomoncle/terra"
	"github.com/tomoncle/terra/manager"
	"github.com/tomoncle/terra/mapper"
	"github.com/tomoncle/terra/repository"
	"github.com/tomoncle/terra/response"
	"github.com/tomoncle/terra/types"
	"github.com/tomoncle/terra/utils"
	"github.com/tomoncle/terra/validation"
	"github.com/uptrace/bun"
)

type StateService = terra.Service[State, StateCreate, StateUpdate, StateErrorCode]

type StateCommandManager = manager.CommandManager[State, StateCreate, StateUpdate, StateErrorCode]

func NewStateService(db, readDB *bun.DB) StateService {
	return terra.NewService(
		manager.NewQueryManager(repository.NewQueryRepository[State](readDB)),
		NewStateCommandManager(db),
	)
}

func NewStateCommandManager(db *bun.DB) *StateCommandManager {
	query := repository.NewQueryRepository[State](db)
	refs := stateRefs{
		states:    query,
		countries: repository.NewQueryRepository[Country](db),
	}

	return manager.NewCommandManager(manager.CommandConfig[State, StateCreate, StateUpdate, StateErrorCode]{
		Query:   query,
		Command: repository.NewCommandRepository[State](db),
		CreateValidator: validation.NewModelValidator[StateCreate](StateInvalid).
			MapField("country_id", StateCountryInvalid).
			MapField("name", StateNameInvalid).
			MapField("code", StateCodeInvalid),
		UpdateValidator: validation.NewModelValidator[StateUpdate](StateInvalid).
			MapField("country_id", StateCountryInvalid).
			MapField("name", StateNameInvalid).
			MapField("code", StateCodeInvalid).
			IDCode(StateIDDoesNotExist),
		CreateMapper: mapper.Func[*StateCreate, *State](func(src *StateCreate) (*State, error) {
			return &State{CountryID: src.CountryID, Name: src.Name, Code: src.Code}, nil
		}),
		UpdateMapper: mapper.Func[*StateUpdate, *State](func(src *StateUpdate) (*State, error) {
			s := &State{CountryID: src.CountryID, Name: src.Name, Code: src.Code}
			s.ID = src.ID
			return s, nil
		}),
		IDDoesNotExist: StateIDDoesNotExist,
		IDNotUnique:    StateIDNotUnique,
		Logger:         utils.NewLogger("STATE"),
		Hooks: manager.Hooks[State, StateCreate, StateUpdate, StateErrorCode]{
			CreateValidation: func(ctx context.Context, items []types.IndexedItem[*StateCreate]) (response.ErrorRecords[StateErrorCode], error) {
				return validateStates(ctx, refs, items, func(m *StateCreate) *StateCreate { return m }, nil)
			},
			UpdateValidation: func(ctx context.Context, items []types.IndexedItem[*StateUpdate]) (response.ErrorRecords[StateErrorCode], error) {
				return validateStates(ctx, refs, items,
					func(m *StateUpdate) *StateCreate { return &m.StateCreate },
					func(m *StateUpdate) int64 { return m.ID },
				)
			},
		},
	})
}

func (k stateKey) String() string {
	return fmt.Sprintf("%s of country %d", k.Code, k.CountryID)
}

type stateRefs struct {
	states    repository.QueryRepository[State]
	countries repository.QueryRepository[Country]
}

func (r stateRefs) countryIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return r.countries.FetchIDs(ctx, repository.WhereIDs(ids))
}

// owners returns the stored states holding any of keys.
func (r stateRefs) owners(ctx context.Context, keys []stateKey) ([]types.IDKey[stateKey], error) {
	wanted := make(map[stateKey]struct{}, len(keys))
	countryIDs := make([]int64, 0, len(keys))
	codes := make([]string, 0, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
		countryIDs = append(countryIDs, k.CountryID)
		codes = append(codes, k.Code)
	}

	rows, err := r.states.FetchBy(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("country_id IN (?)", bun.In(countryIDs)).Where("code IN (?)", bun.In(codes))
	})
	if err != nil {
		return nil, err
	}
	result := make([]types.IDKey[stateKey], 0, len(rows))
	for _, row := range rows {
		k := stateKey{CountryID: row.CountryID, Code: row.Code}
		if _, ok := wanted[k]; ok {
			result = append(result, types.IDKey[stateKey]{ID: row.ID, Key: k})
		}
	}
	return result, nil
}

func validateStates[M any](
	ctx context.Context,
	refs stateRefs,
	items []types.IndexedItem[*M],
	payload func(*M) *StateCreate,
	idOf func(*M) int64,
) (response.ErrorRecords[StateErrorCode], error) {
	country := validation.Check[M, int64, StateErrorCode]{
		Field: "country_id",
		Code:  StateCountryDoesNotExist,
		KeyOf: func(m *M) int64 { return payload(m).CountryID },
	}
	records, err := validation.ExistsValidation(ctx, items, country, refs.countryIDs)
	if err != nil {
		return nil, err
	}

	code := validation.Check[M, stateKey, StateErrorCode]{
		Field: "code",
		Code:  StateCodeNotUnique,
		KeyOf: func(m *M) stateKey { return payload(m).key() },
	}
	records = records.Merge(validation.DuplicateValidation(items, code))

	code.Code = StateCodeExists
	taken, err := validation.UniqueValidation(ctx, items, code, idOf, refs.owners)
	if err != nil {
		return nil, err
	}
	return records.Merge(taken), nil
}
