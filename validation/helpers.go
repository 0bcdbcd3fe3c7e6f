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

package validation

import (
	"context"
	"fmt"

	"github.com/tomoncle/terra/response"
	"github.com/tomoncle/terra/types"
)

// KeyFetcher returns the subset of keys that exist in the store.
type KeyFetcher[K comparable] func(ctx context.Context, keys []K) ([]K, error)

// IDKeyFetcher returns the rows owning any of keys.
type IDKeyFetcher[K comparable] func(ctx context.Context, keys []K) ([]types.IDKey[K], error)

// Check names the field being validated and the code reported on failure.
type Check[M any, K comparable, E types.ErrorCode] struct {
	Field string
	Code  E
	KeyOf func(model *M) K
}

// ExistsValidation reports every item whose key is absent from the store.
// Nil items and zero keys are skipped; they are the static validator's concern.
func ExistsValidation[M any, K comparable, E types.ErrorCode](
	ctx context.Context,
	items []types.IndexedItem[*M],
	check Check[M, K, E],
	fetch KeyFetcher[K],
) (response.ErrorRecords[E], error) {
	records := response.NewErrorRecords[E]()
	keys := collectKeys(items, check.KeyOf)
	if len(keys) == 0 {
		return records, nil
	}

	found, err := fetch(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("exists validation on %s: %w", check.Field, err)
	}
	present := make(map[K]struct{}, len(found))
	for _, k := range found {
		present[k] = struct{}{}
	}

	var zero K
	for _, it := range items {
		if it.Item == nil {
			continue
		}
		key := check.KeyOf(it.Item)
		if key == zero {
			continue
		}
		if _, ok := present[key]; !ok {
			records = records.AddValue(check.Code, it.Index, check.Field, fmt.Sprintf("%v does not exist", key), key)
		}
	}
	return records, nil
}

// DuplicateValidation reports every item whose key occurs more than once
// in the batch. All occurrences are flagged, not only the repeats.
func DuplicateValidation[M any, K comparable, E types.ErrorCode](
	items []types.IndexedItem[*M],
	check Check[M, K, E],
) response.ErrorRecords[E] {
	records := response.NewErrorRecords[E]()
	var zero K
	counts := make(map[K]int)
	for _, it := range items {
		if it.Item == nil {
			continue
		}
		if key := check.KeyOf(it.Item); key != zero {
			counts[key]++
		}
	}
	for _, it := range items {
		if it.Item == nil {
			continue
		}
		key := check.KeyOf(it.Item)
		if key != zero && counts[key] > 1 {
			records = records.AddValue(check.Code, it.Index, check.Field, fmt.Sprintf("%v is not unique", key), key)
		}
	}
	return records
}

// UniqueValidation reports every item whose key is already owned by a stored
// row. When idOf is non-nil, a row owning the key is accepted if it is the
// item itself, which is what updates need.
func UniqueValidation[M any, K comparable, E types.ErrorCode](
	ctx context.Context,
	items []types.IndexedItem[*M],
	check Check[M, K, E],
	idOf func(model *M) int64,
	fetch IDKeyFetcher[K],
) (response.ErrorRecords[E], error) {
	records := response.NewErrorRecords[E]()
	keys := collectKeys(items, check.KeyOf)
	if len(keys) == 0 {
		return records, nil
	}

	found, err := fetch(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("unique validation on %s: %w", check.Field, err)
	}
	owners := make(map[K]int64, len(found))
	for _, row := range found {
		owners[row.Key] = row.ID
	}

	var zero K
	for _, it := range items {
		if it.Item == nil {
			continue
		}
		key := check.KeyOf(it.Item)
		if key == zero {
			continue
		}
		owner, taken := owners[key]
		if !taken {
			continue
		}
		if idOf != nil && idOf(it.Item) == owner {
			continue
		}
		records = records.AddValue(check.Code, it.Index, check.Field, fmt.Sprintf("%v already exists", key), key)
	}
	return records, nil
}

func collectKeys[M any, K comparable](items []types.IndexedItem[*M], keyOf func(*M) K) []K {
	var zero K
	seen := make(map[K]struct{}, len(items))
	keys := make([]K, 0, len(items))
	for _, it := range items {
		if it.Item == nil {
			continue
		}
		key := keyOf(it.Item)
		if key == zero {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
