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

package geography

import "github.com/tomoncle/terra/types"

// CountryErrorCode identifies why a country payload was rejected.
type CountryErrorCode int

const (
	CountryInvalid CountryErrorCode = iota + 1
	CountryNameInvalid
	CountryISO2Invalid
	CountryISO3Invalid
	CountryPhoneCodeInvalid
	CountryISO2NotUnique
	CountryISO2Exists
	CountryISO3NotUnique
	CountryISO3Exists
	CountryIDDoesNotExist
	CountryIDNotUnique
)

var countryCodes = types.EnumTable{
	int(CountryInvalid):          {Name: "INVALID", Desc: "country is invalid"},
	int(CountryNameInvalid):      {Name: "NAME_INVALID", Desc: "name is required and at most 100 characters"},
	int(CountryISO2Invalid):      {Name: "ISO2_INVALID", Desc: "iso2 must be two upper case letters"},
	int(CountryISO3Invalid):      {Name: "ISO3_INVALID", Desc: "iso3 must be three upper case letters"},
	int(CountryPhoneCodeInvalid): {Name: "PHONE_CODE_INVALID", Desc: "phone code is at most 10 characters"},
	int(CountryISO2NotUnique):    {Name: "ISO2_NOT_UNIQUE", Desc: "iso2 repeats within the batch"},
	int(CountryISO2Exists):       {Name: "ISO2_EXISTS", Desc: "iso2 belongs to another country"},
	int(CountryISO3NotUnique):    {Name: "ISO3_NOT_UNIQUE", Desc: "iso3 repeats within the batch"},
	int(CountryISO3Exists):       {Name: "ISO3_EXISTS", Desc: "iso3 belongs to another country"},
	int(CountryIDDoesNotExist):   {Name: "ID_DOES_NOT_EXIST", Desc: "country does not exist"},
	int(CountryIDNotUnique):      {Name: "ID_NOT_UNIQUE", Desc: "id repeats within the batch"},
}

func (c CountryErrorCode) IsValid() bool {
	_, ok := countryCodes.Lookup(int(c))
	return ok
}

func (c CountryErrorCode) Number() int { return int(c) }

func (c CountryErrorCode) String() string { return c.Name() }

func (c CountryErrorCode) Name() string {
	e, _ := countryCodes.Lookup(int(c))
	return e.Name
}

func (c CountryErrorCode) Desc() string {
	e, _ := countryCodes.Lookup(int(c))
	return e.Desc
}

// MarshalText writes the code by name so queued envelopes stay readable.
func (c CountryErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.Name()), nil
}

func (c *CountryErrorCode) UnmarshalText(text []byte) error {
	n, err := countryCodes.Parse(string(text))
	if err != nil {
		return err
	}
	*c = CountryErrorCode(n)
	return nil
}

// StateErrorCode identifies why a state payload was rejected.
type StateErrorCode int

const (
	StateInvalid StateErrorCode = iota + 1
	StateNameInvalid
	StateCodeInvalid
	StateCountryInvalid
	StateCountryDoesNotExist
	StateCodeNotUnique
	StateCodeExists
	StateIDDoesNotExist
	StateIDNotUnique
)

var stateCodes = types.EnumTable{
	int(StateInvalid):             {Name: "INVALID", Desc: "state is invalid"},
	int(StateNameInvalid):         {Name: "NAME_INVALID", Desc: "name is required and at most 100 characters"},
	int(StateCodeInvalid):         {Name: "CODE_INVALID", Desc: "code is at most 10 characters"},
	int(StateCountryInvalid):      {Name: "COUNTRY_INVALID", Desc: "country_id is required"},
	int(StateCountryDoesNotExist): {Name: "COUNTRY_DOES_NOT_EXIST", Desc: "country does not exist"},
	int(StateCodeNotUnique):       {Name: "CODE_NOT_UNIQUE", Desc: "code repeats for the country within the batch"},
	int(StateCodeExists):          {Name: "CODE_EXISTS", Desc: "code belongs to another state of the country"},
	int(StateIDDoesNotExist):      {Name: "ID_DOES_NOT_EXIST", Desc: "state does not exist"},
	int(StateIDNotUnique):         {Name: "ID_NOT_UNIQUE", Desc: "id repeats within the batch"},
}

func (c StateErrorCode) IsValid() bool {
	_, ok := stateCodes.Lookup(int(c))
	return ok
}

func (c StateErrorCode) Number() int { return int(c) }

func (c StateErrorCode) String() string { return c.Name() }

func (c StateErrorCode) Name() string {
	e, _ := stateCodes.Lookup(int(c))
	return e.Name
}

func (c StateErrorCode) Desc() string {
	e, _ := stateCodes.Lookup(int(c))
	return e.Desc
}

func (c StateErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.Name()), nil
}

func (c *StateErrorCode) UnmarshalText(text []byte) error {
	n, err := stateCodes.Parse(string(text))
	if err != nil {
		return err
	}
	*c = StateErrorCode(n)
	return nil
}
