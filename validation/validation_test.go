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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/terra/types"
)

type code int

const (
	codeInvalid code = iota + 1
	codeNameInvalid
	codeCodeInvalid
	codeMissing
	codeDuplicate
	codeTaken
	codeNoID
)

var codeTable = types.EnumTable{
	int(codeInvalid):     {Name: "INVALID"},
	int(codeNameInvalid): {Name: "NAME_INVALID"},
	int(codeCodeInvalid): {Name: "CODE_INVALID"},
	int(codeMissing):     {Name: "MISSING"},
	int(codeDuplicate):   {Name: "DUPLICATE"},
	int(codeTaken):       {Name: "TAKEN"},
	int(codeNoID):        {Name: "NO_ID"},
}

func (c code) IsValid() bool  { _, ok := codeTable.Lookup(int(c)); return ok }
func (c code) Number() int    { return int(c) }
func (c code) String() string { return c.Name() }
func (c code) Name() string   { e, _ := codeTable.Lookup(int(c)); return e.Name }
func (c code) Desc() string   { e, _ := codeTable.Lookup(int(c)); return e.Desc }

type RegionCreate struct {
	Name string `json:"name" validate:"required,max=10"`
	Code string `json:"code" validate:"required,len=2,uppercase"`
	Note string `json:"-"`
}

type regionUpdate struct {
	ID int64 `json:"id"`
	RegionCreate
}

func (r regionUpdate) GetID() int64 { return r.ID }

func newCreateValidator() *ModelValidator[RegionCreate, code] {
	return NewModelValidator[RegionCreate](codeInvalid).
		MapField("name", codeNameInvalid).
		MapTag("code", "len", codeCodeInvalid).
		Rule("code", codeCodeInvalid, "must not be XX", func(m *RegionCreate) bool { return m.Code != "XX" })
}

func TestExecuteCreateValidation(t *testing.T) {
	v := newCreateValidator()
	items := types.ToIndexedItems([]*RegionCreate{
		{Name: "Ok", Code: "AB"},
		{Name: "", Code: "ABC"},
		nil,
		{Name: "Fine", Code: "XX"},
		{Name: "Lower", Code: "ab"},
	})

	records := v.ExecuteCreateValidation(items)
	grouped := records.ByIndex()

	assert.NotContains(t, grouped, 0)

	require.Len(t, grouped[1], 2)
	assert.Equal(t, codeNameInvalid, grouped[1][0].Code)
	assert.Equal(t, "name", grouped[1][0].Field)
	assert.Equal(t, "is required", grouped[1][0].Message)
	assert.Equal(t, codeCodeInvalid, grouped[1][1].Code)
	assert.Equal(t, "code", grouped[1][1].Field)

	require.Len(t, grouped[2], 1)
	assert.Equal(t, codeInvalid, grouped[2][0].Code)

	require.Len(t, grouped[3], 1)
	assert.Equal(t, "must not be XX", grouped[3][0].Message)

	require.Len(t, grouped[4], 1)
	assert.Equal(t, codeInvalid, grouped[4][0].Code, "unmapped tag falls back to the default code")
	assert.Equal(t, "must be upper case", grouped[4][0].Message)
}

func TestExecuteUpdateValidationRequiresID(t *testing.T) {
	v := NewModelValidator[regionUpdate](codeInvalid).IDCode(codeNoID)
	items := types.ToIndexedItems([]*regionUpdate{
		{ID: 0, RegionCreate: RegionCreate{Name: "A", Code: "AA"}},
		{ID: 7, RegionCreate: RegionCreate{Name: "B", Code: "BB"}},
	})

	records := v.ExecuteUpdateValidation(items)
	require.Len(t, records, 1)
	assert.Equal(t, codeNoID, records[0].Code)
	assert.Equal(t, 0, records[0].Index)
	assert.Equal(t, "id", records[0].Field)
}

func TestDuplicateValidationFlagsAllOccurrences(t *testing.T) {
	items := types.ToIndexedItems([]*RegionCreate{
		{Code: "AA"}, {Code: "BB"}, {Code: "AA"}, {Code: ""}, {Code: ""},
	})
	records := DuplicateValidation(items, Check[RegionCreate, string, code]{
		Field: "code", Code: codeDuplicate,
		KeyOf: func(m *RegionCreate) string { return m.Code },
	})
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].Index)
	assert.Equal(t, 2, records[1].Index)
	assert.Equal(t, "AA is not unique", records[0].Message)
}

func TestExistsValidation(t *testing.T) {
	items := types.ToIndexedItems([]*regionUpdate{{ID: 1}, {ID: 2}, {ID: 0}, {ID: 1}})
	var asked []int64
	fetch := func(_ context.Context, ids []int64) ([]int64, error) {
		asked = ids
		return []int64{1}, nil
	}

	records, err := ExistsValidation(context.Background(), items, Check[regionUpdate, int64, code]{
		Field: "id", Code: codeMissing,
		KeyOf: func(m *regionUpdate) int64 { return m.ID },
	}, fetch)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, asked, "keys are deduplicated and zero keys skipped")
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Index)
	assert.Equal(t, codeMissing, records[0].Code)
}

func TestExistsValidationPropagatesFetchError(t *testing.T) {
	items := types.ToIndexedItems([]*regionUpdate{{ID: 1}})
	_, err := ExistsValidation(context.Background(), items, Check[regionUpdate, int64, code]{
		Field: "id", Code: codeMissing,
		KeyOf: func(m *regionUpdate) int64 { return m.ID },
	}, func(context.Context, []int64) ([]int64, error) { return nil, errors.New("db down") })
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "db down"))
}

func TestUniqueValidation(t *testing.T) {
	fetch := func(_ context.Context, keys []string) ([]types.IDKey[string], error) {
		return []types.IDKey[string]{{ID: 10, Key: "AA"}}, nil
	}
	check := Check[regionUpdate, string, code]{
		Field: "code", Code: codeTaken,
		KeyOf: func(m *regionUpdate) string { return m.Code },
	}

	items := types.ToIndexedItems([]*regionUpdate{
		{ID: 10, RegionCreate: RegionCreate{Code: "AA"}},
		{ID: 11, RegionCreate: RegionCreate{Code: "AA"}},
		{ID: 12, RegionCreate: RegionCreate{Code: "CC"}},
	})

	records, err := UniqueValidation(context.Background(), items, check, func(m *regionUpdate) int64 { return m.ID }, fetch)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Index)

	records, err = UniqueValidation(context.Background(), items, check, nil, fetch)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
