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

// Package mapper converts request payloads into persistence entities.
package mapper

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Mapper converts a source value into a destination value.
type Mapper[S, D any] interface {
	Map(src S) (D, error)
}

// Func adapts a plain function to Mapper.
type Func[S, D any] func(src S) (D, error)

func (f Func[S, D]) Map(src S) (D, error) { return f(src) }

// MapAll maps every element, stopping at the first failure.
func MapAll[S, D any](m Mapper[S, D], src []S) ([]D, error) {
	out := make([]D, 0, len(src))
	for i, s := range src {
		d, err := m.Map(s)
		if err != nil {
			return nil, fmt.Errorf("map item %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

type structMapper[S, D any] struct {
	tagName string
}

// Struct returns a reflection based mapper from *S to *D that matches fields
// by their json names. Embedded structs are flattened on both sides.
func Struct[S, D any]() Mapper[*S, *D] {
	return &structMapper[S, D]{tagName: "json"}
}

func (m *structMapper[S, D]) Map(src *S) (*D, error) {
	if src == nil {
		return nil, fmt.Errorf("mapper: nil source %T", src)
	}
	dst := new(D)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          m.tagName,
		Squash:           true,
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(src); err != nil {
		return nil, fmt.Errorf("mapper: %T -> %T: %w", src, dst, err)
	}
	return dst, nil
}
