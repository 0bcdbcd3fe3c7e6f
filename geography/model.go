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

// Package geography serves countries and their states over the generic CRUD
// stack, plus a job that imports countries from object storage.
package geography

import (
	"github.com/tomoncle/terra/database"
	"github.com/tomoncle/terra/entity"
	"github.com/tomoncle/terra/types"
	"github.com/uptrace/bun"
)

func init() {
	database.RegisteredModel(database.NewModelAdapter((*Country)(nil), 10))
	database.RegisteredModel(database.NewModelAdapter((*State)(nil), 20))
	database.RegisterForeignKey(database.ForeignKeyConstraint{
		Table:           "states",
		Column:          "country_id",
		ReferenceTable:  "countries",
		ReferenceColumn: "id",
		OnDelete:        "CASCADE",
		Description:     "a state belongs to a country",
	})
}

type Country struct {
	bun.BaseModel `bun:"table:countries,alias:c"`
	entity.Base

	Name      string           `bun:"name,notnull" json:"name"`
	ISO2      string           `bun:"iso2,notnull,unique" json:"iso2"`
	ISO3      string           `bun:"iso3,notnull,unique" json:"iso3"`
	PhoneCode string           `bun:"phone_code" json:"phone_code"`
	Metadata  types.JsonObject `bun:"metadata,type:json" json:"metadata,omitempty"`
}

// CountryCreate is the payload of POST /countries and of import files.
type CountryCreate struct {
	Name      string           `json:"name" validate:"required,max=100"`
	ISO2      string           `json:"iso2" validate:"required,len=2,uppercase,alpha"`
	ISO3      string           `json:"iso3" validate:"required,len=3,uppercase,alpha"`
	PhoneCode string           `json:"phone_code" validate:"max=10"`
	Metadata  types.JsonObject `json:"metadata,omitempty"`
}

type CountryUpdate struct {
	ID int64 `json:"id"`
	CountryCreate
}

func (u CountryUpdate) GetID() int64 { return u.ID }

// State codes are optional. An empty code is stored as NULL so the composite
// unique index only binds states that have one.
type State struct {
	bun.BaseModel `bun:"table:states,alias:s"`
	entity.Base

	CountryID int64  `bun:"country_id,notnull,unique:states_country_code" json:"country_id"`
	Name      string `bun:"name,notnull" json:"name"`
	Code      string `bun:"code,nullzero,unique:states_country_code" json:"code"`
}

type StateCreate struct {
	CountryID int64  `json:"country_id" validate:"required,gt=0"`
	Name      string `json:"name" validate:"required,max=100"`
	Code      string `json:"code" validate:"max=10"`
}

type StateUpdate struct {
	ID int64 `json:"id"`
	StateCreate
}

func (u StateUpdate) GetID() int64 { return u.ID }

// stateKey is the natural key of a state. An empty code has no key.
type stateKey struct {
	CountryID int64
	Code      string
}

func (s *StateCreate) key() stateKey {
	if s.Code == "" {
		return stateKey{}
	}
	return stateKey{CountryID: s.CountryID, Code: s.Code}
}
