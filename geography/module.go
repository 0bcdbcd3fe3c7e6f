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

import (
	"embed"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tomoncle/terra/server"
	"github.com/tomoncle/terra/types"
)

//go:embed seed
var seedFiles embed.FS

// SeedFS returns the seed SQL laid out as common/ and environments/<env>/.
func SeedFS() fs.FS {
	sub, err := fs.Sub(seedFiles, "seed")
	if err != nil {
		panic(err)
	}
	return sub
}

// Register mounts the countries and states APIs and the import job on s.
func Register(s *server.Server) {
	db, readDB := s.DB.GetDB(), s.DB.GetReadDB()
	countries := NewCountryService(db, readDB)

	server.NewCrudController("countries", countries, "name", "iso2", "iso3").
		WithFilter(countryFilter).
		Register(s.Router(server.APIDoc, "/api/v1/countries"))
	server.NewCrudController("states", NewStateService(db, readDB), "name", "code", "country_id").
		WithFilter(stateFilter).
		Register(s.Router(server.APIDoc, "/api/v1/states"))

	NewCountryImporter(countries, s.Storage, s.Queue).
		Register(s.Router(server.JobsDoc, "/jobs/v1"))
}

type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, arg interface{}) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, arg)
}

func (c *conditions) filter() *types.QueryFilter {
	if len(c.clauses) == 0 {
		return nil
	}
	return types.NewQueryFilter(strings.Join(c.clauses, " AND "), c.args...)
}

// countryFilter supports ?name= (prefix) and ?iso2=.
func countryFilter(c echo.Context) (*types.QueryFilter, error) {
	var conds conditions
	if name := c.QueryParam("name"); name != "" {
		conds.add("name LIKE ?", name+"%")
	}
	if iso2 := c.QueryParam("iso2"); iso2 != "" {
		conds.add("iso2 = ?", strings.ToUpper(iso2))
	}
	return conds.filter(), nil
}

// stateFilter supports ?country_id= and ?name= (prefix).
func stateFilter(c echo.Context) (*types.QueryFilter, error) {
	var conds conditions
	if raw := c.QueryParam("country_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid country_id")
		}
		conds.add("country_id = ?", id)
	}
	if name := c.QueryParam("name"); name != "" {
		conds.add("name LIKE ?", name+"%")
	}
	return conds.filter(), nil
}
