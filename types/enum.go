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

import "fmt"

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// ErrorCode is the constraint satisfied by every per-entity error code enum.
// Managers and validators are parameterised over it.
type ErrorCode interface {
	comparable
	BaseEnum
}

// EnumEntry is one row of an enum lookup table.
type EnumEntry struct {
	Name string
	Desc string
}

// EnumTable backs BaseEnum implementations declared as int constants.
type EnumTable map[int]EnumEntry

// Lookup returns the entry for n, or the illegal entry when n is not declared.
func (t EnumTable) Lookup(n int) (EnumEntry, bool) {
	e, ok := t[n]
	if !ok {
		return EnumEntry{Name: IllegalName, Desc: IllegalDesc}, false
	}
	return e, true
}

// Parse resolves an enum number from its name.
func (t EnumTable) Parse(name string) (int, error) {
	for n, e := range t {
		if e.Name == name {
			return n, nil
		}
	}
	return IllegalValue, fmt.Errorf("unknown enum name: %q", name)
}
