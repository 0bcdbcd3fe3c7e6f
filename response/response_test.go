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
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/terra/types"
)

type code int

const (
	codeMissing code = iota + 1
	codeDuplicate
)

var codes = types.EnumTable{
	int(codeMissing):   {Name: "MISSING", Desc: "missing"},
	int(codeDuplicate): {Name: "DUPLICATE", Desc: "duplicate"},
}

func (c code) IsValid() bool  { _, ok := codes.Lookup(int(c)); return ok }
func (c code) Number() int    { return int(c) }
func (c code) String() string { return c.Name() }
func (c code) Name() string   { e, _ := codes.Lookup(int(c)); return e.Name }
func (c code) Desc() string   { e, _ := codes.Lookup(int(c)); return e.Desc }

func TestErrorRecordsMergeKeepsOrder(t *testing.T) {
	static := NewErrorRecords[code]().Add(codeMissing, 0, "name", "is required")
	custom := NewErrorRecords[code]().Add(codeDuplicate, 1, "iso2", "is not unique").Add(codeMissing, 2, "", "x")

	merged := static.Merge(custom)
	require.Len(t, merged, 3)
	assert.Equal(t, codeMissing, merged[0].Code)
	assert.Equal(t, codeDuplicate, merged[1].Code)
	assert.Equal(t, 2, merged[2].Index)
	assert.Len(t, static, 1)

	grouped := merged.ByIndex()
	assert.Len(t, grouped, 3)
	assert.True(t, merged.HasCode(codeDuplicate))
	assert.Equal(t, "[1] DUPLICATE iso2: is not unique", merged[1].String())
}

func TestManagerResponseStates(t *testing.T) {
	ok := NewSuccessResponse[code](nil)
	assert.True(t, ok.Succeeded())
	assert.NotNil(t, ok.IDs)

	failed := NewErrorResponse[code](errors.New("boom"))
	assert.True(t, failed.HasError())
	assert.False(t, failed.HasRecords())
	assert.Equal(t, "boom", failed.Message)

	rejected := NewRecordsResponse(NewErrorRecords[code]().Add(codeMissing, 0, "id", "missing"))
	assert.True(t, rejected.HasError())
	assert.True(t, rejected.HasRecords())
}

func TestManagerResponseJSON(t *testing.T) {
	b, err := json.Marshal(NewSuccessResponse[code]([]int64{3, 4}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ids":[3,4]}`, string(b))

	b, err = json.Marshal(NewErrorResponse[code](errors.New("boom")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"boom"}`, string(b))
}
