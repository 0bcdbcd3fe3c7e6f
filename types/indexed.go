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

package types

// ModelWithID is implemented by update payloads, which address an existing row.
type ModelWithID interface {
	GetID() int64
}

// IndexedItem pairs a payload with its zero-based position in the request batch.
type IndexedItem[T any] struct {
	Index int
	Item  T
}

// ToIndexedItems wraps every item with its position.
func ToIndexedItems[T any](items []T) []IndexedItem[T] {
	indexed := make([]IndexedItem[T], len(items))
	for i, item := range items {
		indexed[i] = IndexedItem[T]{Index: i, Item: item}
	}
	return indexed
}

// Items unwraps indexed items back into a plain slice.
func Items[T any](indexed []IndexedItem[T]) []T {
	items := make([]T, len(indexed))
	for i, it := range indexed {
		items[i] = it.Item
	}
	return items
}

// IDKey is a row identifier paired with a natural key value.
type IDKey[K comparable] struct {
	ID  int64
	Key K
}
