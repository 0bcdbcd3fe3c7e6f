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
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tomoncle/terra/response"
	"github.com/tomoncle/terra/types"
)

// Rule is a programmatic check that tags cannot express.
type Rule[M any, E types.ErrorCode] struct {
	Field   string
	Code    E
	Message string
	Check   func(model *M) bool
}

// ModelValidator validates create or update payloads of type M and reports
// failures as indexed error records carrying codes of type E.
//
// Struct tags are evaluated with go-playground/validator. Each failing
// (field, tag) pair is translated to a code through MapTag; failures
// without a mapping fall back to the default code.
type ModelValidator[M any, E types.ErrorCode] struct {
	validate    *validator.Validate
	defaultCode E
	idCode      E
	tagCodes    map[string]E
	rules       []Rule[M, E]
}

// NewModelValidator creates a validator whose unmapped failures report defaultCode.
func NewModelValidator[M any, E types.ErrorCode](defaultCode E) *ModelValidator[M, E] {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &ModelValidator[M, E]{
		validate:    v,
		defaultCode: defaultCode,
		idCode:      defaultCode,
		tagCodes:    make(map[string]E),
	}
}

// MapTag assigns code to failures of tag on field. Use "*" as field to map
// a tag on every field.
func (v *ModelValidator[M, E]) MapTag(field, tag string, code E) *ModelValidator[M, E] {
	v.tagCodes[field+"."+tag] = code
	return v
}

// MapField assigns code to every tag failure on field.
func (v *ModelValidator[M, E]) MapField(field string, code E) *ModelValidator[M, E] {
	return v.MapTag(field, "*", code)
}

// Rule registers a programmatic rule; check returns true when the model is valid.
func (v *ModelValidator[M, E]) Rule(field string, code E, message string, check func(model *M) bool) *ModelValidator[M, E] {
	v.rules = append(v.rules, Rule[M, E]{Field: field, Code: code, Message: message, Check: check})
	return v
}

// IDCode sets the code reported when an update payload carries a non-positive id.
func (v *ModelValidator[M, E]) IDCode(code E) *ModelValidator[M, E] {
	v.idCode = code
	return v
}

// RegisterValidation exposes custom validator tags, e.g. "iso_alpha".
func (v *ModelValidator[M, E]) RegisterValidation(tag string, fn validator.Func) error {
	return v.validate.RegisterValidation(tag, fn)
}

// Validate checks a single model that sits at index in its batch.
func (v *ModelValidator[M, E]) Validate(index int, model *M) response.ErrorRecords[E] {
	records := response.NewErrorRecords[E]()
	if model == nil {
		return records.Add(v.defaultCode, index, "", "model is required")
	}

	if err := v.validate.Struct(model); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return records.Add(v.defaultCode, index, "", err.Error())
		}
		for _, fe := range fieldErrs {
			records = records.AddValue(v.codeFor(fe.Field(), fe.Tag()), index, fe.Field(), message(fe), fe.Value())
		}
	}

	for _, rule := range v.rules {
		if !rule.Check(model) {
			records = records.Add(rule.Code, index, rule.Field, rule.Message)
		}
	}
	return records
}

// ExecuteCreateValidation validates every item of a create batch.
func (v *ModelValidator[M, E]) ExecuteCreateValidation(items []types.IndexedItem[*M]) response.ErrorRecords[E] {
	records := response.NewErrorRecords[E]()
	for _, it := range items {
		records = records.Merge(v.Validate(it.Index, it.Item))
	}
	return records
}

// ExecuteUpdateValidation validates every item of an update batch and
// additionally requires a positive identifier on each payload.
func (v *ModelValidator[M, E]) ExecuteUpdateValidation(items []types.IndexedItem[*M]) response.ErrorRecords[E] {
	records := response.NewErrorRecords[E]()
	for _, it := range items {
		if it.Item != nil {
			if withID, ok := any(it.Item).(types.ModelWithID); ok && withID.GetID() <= 0 {
				records = records.AddValue(v.idCode, it.Index, "id", "id must be greater than 0", withID.GetID())
			}
		}
		records = records.Merge(v.Validate(it.Index, it.Item))
	}
	return records
}

func (v *ModelValidator[M, E]) codeFor(field, tag string) E {
	for _, key := range []string{field + "." + tag, field + ".*", "*." + tag} {
		if code, ok := v.tagCodes[key]; ok {
			return code
		}
	}
	return v.defaultCode
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", fe.Param())
		}
		return fmt.Sprintf("must not exceed %s", fe.Param())
	case "len":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be exactly %s characters", fe.Param())
		}
		return fmt.Sprintf("must have length %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "uppercase":
		return "must be upper case"
	case "alpha":
		return "must contain letters only"
	case "numeric":
		return "must be numeric"
	case "email":
		return "must be a valid email address"
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s:%s", fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}
