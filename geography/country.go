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

type CountryService = terra.Service[Country, CountryCreate, CountryUpdate, CountryErrorCode]

type CountryCommandManager = manager.CommandManager[Country, CountryCreate, CountryUpdate, CountryErrorCode]

// NewCountryService reads from readDB and writes to db. Validation always
// queries db so that it sees the latest writes.
func NewCountryService(db, readDB *bun.DB) CountryService {
	return terra.NewService(
		manager.NewQueryManager(repository.NewQueryRepository[Country](readDB)),
		NewCountryCommandManager(db),
	)
}

func NewCountryCommandManager(db *bun.DB) *CountryCommandManager {
	query := repository.NewQueryRepository[Country](db)
	keys := countryKeys{query: query}

	return manager.NewCommandManager(manager.CommandConfig[Country, CountryCreate, CountryUpdate, CountryErrorCode]{
		Query:   query,
		Command: repository.NewCommandRepository[Country](db),
		CreateValidator: validation.NewModelValidator[CountryCreate](CountryInvalid).
			MapField("name", CountryNameInvalid).
			MapField("iso2", CountryISO2Invalid).
			MapField("iso3", CountryISO3Invalid).
			MapField("phone_code", CountryPhoneCodeInvalid),
		UpdateValidator: validation.NewModelValidator[CountryUpdate](CountryInvalid).
			MapField("name", CountryNameInvalid).
			MapField("iso2", CountryISO2Invalid).
			MapField("iso3", CountryISO3Invalid).
			MapField("phone_code", CountryPhoneCodeInvalid).
			IDCode(CountryIDDoesNotExist),
		CreateMapper:   mapper.Struct[CountryCreate, Country](),
		UpdateMapper:   mapper.Struct[CountryUpdate, Country](),
		IDDoesNotExist: CountryIDDoesNotExist,
		IDNotUnique:    CountryIDNotUnique,
		Logger:         utils.NewLogger("COUNTRY"),
		Hooks: manager.Hooks[Country, CountryCreate, CountryUpdate, CountryErrorCode]{
			CreateValidation: func(ctx context.Context, items []types.IndexedItem[*CountryCreate]) (response.ErrorRecords[CountryErrorCode], error) {
				return validateCountryKeys(ctx, keys, items, func(m *CountryCreate) *CountryCreate { return m }, nil)
			},
			UpdateValidation: func(ctx context.Context, items []types.IndexedItem[*CountryUpdate]) (response.ErrorRecords[CountryErrorCode], error) {
				return validateCountryKeys(ctx, keys, items,
					func(m *CountryUpdate) *CountryCreate { return &m.CountryCreate },
					func(m *CountryUpdate) int64 { return m.ID },
				)
			},
		},
	})
}

type countryKeys struct {
	query repository.QueryRepository[Country]
}

func (k countryKeys) owners(column string) validation.IDKeyFetcher[string] {
	return func(ctx context.Context, keys []string) ([]types.IDKey[string], error) {
		return k.query.FetchKeys(ctx, column, keys)
	}
}

// validateCountryKeys rejects iso codes repeated in the batch or owned by
// another stored country. idOf is nil for creates.
func validateCountryKeys[M any](
	ctx context.Context,
	keys countryKeys,
	items []types.IndexedItem[*M],
	payload func(*M) *CountryCreate,
	idOf func(*M) int64,
) (response.ErrorRecords[CountryErrorCode], error) {
	checks := []struct {
		column    string
		notUnique CountryErrorCode
		exists    CountryErrorCode
		keyOf     func(*M) string
	}{
		{"iso2", CountryISO2NotUnique, CountryISO2Exists, func(m *M) string { return payload(m).ISO2 }},
		{"iso3", CountryISO3NotUnique, CountryISO3Exists, func(m *M) string { return payload(m).ISO3 }},
	}

	records := response.NewErrorRecords[CountryErrorCode]()
	for _, c := range checks {
		check := validation.Check[M, string, CountryErrorCode]{Field: c.column, Code: c.notUnique, KeyOf: c.keyOf}
		records = records.Merge(validation.DuplicateValidation(items, check))

		check.Code = c.exists
		taken, err := validation.UniqueValidation(ctx, items, check, idOf, keys.owners(c.column))
		if err != nil {
			return nil, err
		}
		records = records.Merge(taken)
	}
	return records, nil
}
