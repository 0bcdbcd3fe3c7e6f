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

import "github.com/tomoncle/terra/types"

// ManagerResponse is the envelope every command manager operation returns.
// Exactly one of Err, Errors or IDs is meaningful:
//   - Err: the operation failed unexpectedly and nothing was persisted
//   - Errors: validation rejected the batch and nothing was persisted
//   - IDs: the affected row identifiers, in input order
type ManagerResponse[E types.ErrorCode] struct {
	IDs     []int64         `json:"ids,omitempty"`
	Errors  ErrorRecords[E] `json:"errors,omitempty"`
	Message string          `json:"error,omitempty"`
	Err     error           `json:"-"`
}

// NewErrorResponse wraps an unexpected failure.
func NewErrorResponse[E types.ErrorCode](err error) *ManagerResponse[E] {
	resp := &ManagerResponse[E]{Err: err}
	if err != nil {
		resp.Message = err.Error()
	}
	return resp
}

// NewRecordsResponse wraps validation failures.
func NewRecordsResponse[E types.ErrorCode](records ErrorRecords[E]) *ManagerResponse[E] {
	return &ManagerResponse[E]{Errors: records}
}

// NewSuccessResponse carries the affected identifiers.
func NewSuccessResponse[E types.ErrorCode](ids []int64) *ManagerResponse[E] {
	if ids == nil {
		ids = make([]int64, 0)
	}
	return &ManagerResponse[E]{IDs: ids}
}

func (r *ManagerResponse[E]) HasError() bool {
	return r.Err != nil || r.Errors.Any()
}

func (r *ManagerResponse[E]) HasRecords() bool {
	return r.Errors.Any()
}

func (r *ManagerResponse[E]) Succeeded() bool {
	return !r.HasError()
}
