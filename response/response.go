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

package response

import (
	"fmt"

	"github.com/tomoncle/terra/types"
)

// ErrorRecord is a single validation failure tied to a batch position.
type ErrorRecord[E types.ErrorCode] struct {
	Code           E           `json:"code"`
	Index          int         `json:"index"`
	Field          string      `json:"field,omitempty"`
	Message        string      `json:"message"`
	AttemptedValue interface{} `json:"attempted_value,omitempty"`
}

func (r ErrorRecord[E]) String() string {
	if r.Field == "" {
		return fmt.Sprintf("[%d] %s: %s", r.Index, r.Code.Name(), r.Message)
	}
	return fmt.Sprintf("[%d] %s %s: %s", r.Index, r.Code.Name(), r.Field, r.Message)
}

// ErrorRecords accumulates validation failures for a batch.
type ErrorRecords[E types.ErrorCode] []ErrorRecord[E]

// NewErrorRecords returns an empty, non-nil record list.
func NewErrorRecords[E types.ErrorCode]() ErrorRecords[E] {
	return make(ErrorRecords[E], 0)
}

// Add appends a record and returns the extended list.
func (r ErrorRecords[E]) Add(code E, index int, field, message string) ErrorRecords[E] {
	return append(r, ErrorRecord[E]{Code: code, Index: index, Field: field, Message: message})
}

// AddValue appends a record carrying the rejected value.
func (r ErrorRecords[E]) AddValue(code E, index int, field, message string, value interface{}) ErrorRecords[E] {
	return append(r, ErrorRecord[E]{Code: code, Index: index, Field: field, Message: message, AttemptedValue: value})
}

// Merge concatenates others after r, preserving order.
func (r ErrorRecords[E]) Merge(others ...ErrorRecords[E]) ErrorRecords[E] {
	n := len(r)
	for _, o := range others {
		n += len(o)
	}
	merged := make(ErrorRecords[E], 0, n)
	merged = append(merged, r...)
	for _, o := range others {
		merged = append(merged, o...)
	}
	return merged
}

func (r ErrorRecords[E]) Any() bool { return len(r) > 0 }

func (r ErrorRecords[E]) Len() int { return len(r) }

// ByIndex groups records by the batch position they refer to.
func (r ErrorRecords[E]) ByIndex() map[int]ErrorRecords[E] {
	grouped := make(map[int]ErrorRecords[E])
	for _, rec := range r {
		grouped[rec.Index] = append(grouped[rec.Index], rec)
	}
	return grouped
}

// HasCode reports whether any record carries code.
func (r ErrorRecords[E]) HasCode(code E) bool {
	for _, rec := range r {
		if rec.Code == code {
			return true
		}
	}
	return false
}
