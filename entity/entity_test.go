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

package entity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestBeforeAppendModelInsert(t *testing.T) {
	var b Base
	require.NoError(t, b.BeforeAppendModel(context.Background(), &bun.InsertQuery{}))
	assert.False(t, b.CreatedAt.IsZero())
	assert.Equal(t, b.CreatedAt, b.UpdatedAt)
}

func TestBeforeAppendModelUpdateKeepsCreatedAt(t *testing.T) {
	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	b := Base{ID: 4, CreatedAt: created}
	require.NoError(t, b.BeforeAppendModel(context.Background(), &bun.UpdateQuery{}))
	assert.Equal(t, created, b.CreatedAt)
	assert.True(t, b.UpdatedAt.After(created))
	assert.Equal(t, int64(4), b.GetID())
}
