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

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tomoncle/terra"
	"github.com/tomoncle/terra/entity"
	"github.com/tomoncle/terra/response"
	"github.com/tomoncle/terra/types"
)

// FilterFunc builds a WHERE clause from the query string of a list request.
// A nil filter lists everything.
type FilterFunc func(c echo.Context) (*types.QueryFilter, error)

// CrudController exposes a terra.Service over REST.
type CrudController[T entity.Entity, C any, U types.ModelWithID, E types.ErrorCode] struct {
	service  terra.Service[T, C, U, E]
	name     string
	sortable map[string]bool
	filter   FilterFunc
}

// NewCrudController serves service as the resource name. Only the listed
// columns may appear in the order parameter.
func NewCrudController[T entity.Entity, C any, U types.ModelWithID, E types.ErrorCode](
	name string,
	service terra.Service[T, C, U, E],
	sortable ...string,
) *CrudController[T, C, U, E] {
	ctl := &CrudController[T, C, U, E]{service: service, name: name, sortable: map[string]bool{"id": true}}
	for _, col := range sortable {
		ctl.sortable[col] = true
	}
	return ctl
}

func (ctl *CrudController[T, C, U, E]) WithFilter(filter FilterFunc) *CrudController[T, C, U, E] {
	ctl.filter = filter
	return ctl
}

func (ctl *CrudController[T, C, U, E]) Register(r *Router) {
	tags := []string{ctl.name}
	query := func(name, typ string) Parameter {
		return Parameter{Name: name, In: "query", Schema: map[string]string{"type": typ}}
	}

	r.GET("", Operation{
		Summary:    "List " + ctl.name + " page by page",
		Tags:       tags,
		Parameters: []Parameter{query("page", "integer"), query("page_size", "integer"), query("order", "string")},
	}, ctl.page)
	r.GET("/:id", Operation{Summary: "Get one of " + ctl.name + " by id", Tags: tags}, ctl.get)
	r.POST("", Operation{Summary: "Create one or many " + ctl.name, Tags: tags}, ctl.create)
	r.PUT("", Operation{Summary: "Update one or many " + ctl.name, Tags: tags}, ctl.update)
	r.DELETE("/:id", Operation{Summary: "Delete one of " + ctl.name + " by id", Tags: tags}, ctl.deleteOne)
	r.DELETE("", Operation{
		Summary:    "Delete many " + ctl.name,
		Tags:       tags,
		Parameters: []Parameter{{Name: "ids", In: "query", Required: true, Schema: map[string]string{"type": "string"}}},
	}, ctl.deleteMany)
}

func (ctl *CrudController[T, C, U, E]) page(c echo.Context) error {
	page, err := intParam(c, "page", types.DefaultPage)
	if err != nil {
		return err
	}
	size, err := intParam(c, "page_size", types.DefaultPageSize)
	if err != nil {
		return err
	}
	orders, err := ctl.orders(c.QueryParam("order"))
	if err != nil {
		return err
	}
	var filter *types.QueryFilter
	if ctl.filter != nil {
		if filter, err = ctl.filter(c); err != nil {
			return err
		}
	}

	result, err := ctl.service.Page(c.Request().Context(), types.NewPageRequest(page, size, filter, orders))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// orders parses "name,-iso2" into "name ASC", "iso2 DESC".
func (ctl *CrudController[T, C, U, E]) orders(param string) ([]string, error) {
	var orders []string
	for _, field := range strings.Split(param, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir, field = "DESC", field[1:]
		}
		if !ctl.sortable[field] {
			return nil, NewProblem(http.StatusBadRequest, fmt.Sprintf("cannot order by %q", field))
		}
		orders = append(orders, field+" "+dir)
	}
	return orders, nil
}

func (ctl *CrudController[T, C, U, E]) get(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	item, err := ctl.service.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (ctl *CrudController[T, C, U, E]) create(c echo.Context) error {
	models, err := BindBatch[C](c)
	if err != nil {
		return err
	}
	return WriteManagerResponse(c, http.StatusCreated, ctl.service.CreateAll(c.Request().Context(), models))
}

func (ctl *CrudController[T, C, U, E]) update(c echo.Context) error {
	models, err := BindBatch[U](c)
	if err != nil {
		return err
	}
	return WriteManagerResponse(c, http.StatusOK, ctl.service.UpdateAll(c.Request().Context(), models))
}

func (ctl *CrudController[T, C, U, E]) deleteOne(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	return WriteManagerResponse(c, http.StatusOK, ctl.service.DeleteByID(c.Request().Context(), id))
}

func (ctl *CrudController[T, C, U, E]) deleteMany(c echo.Context) error {
	var ids []int64
	for _, raw := range strings.Split(c.QueryParam("ids"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return NewProblem(http.StatusBadRequest, fmt.Sprintf("invalid id %q", raw))
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return NewProblem(http.StatusBadRequest, "query parameter ids is required")
	}
	return WriteManagerResponse(c, http.StatusOK, ctl.service.DeleteByIDs(c.Request().Context(), ids))
}

// WriteManagerResponse writes a successful envelope with status, or returns
// the failure for the error handler: records as a 422 problem, Err as is.
func WriteManagerResponse[E types.ErrorCode](c echo.Context, status int, resp *response.ManagerResponse[E]) error {
	switch {
	case resp.Err != nil:
		return resp.Err
	case resp.HasRecords():
		return RecordsProblem(resp.Errors)
	default:
		return c.JSON(status, resp)
	}
}

// BindBatch decodes a JSON object or an array of objects.
func BindBatch[M any](c echo.Context) ([]*M, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, NewProblem(http.StatusBadRequest, "cannot read request body")
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, NewProblem(http.StatusBadRequest, "request body is required")
	}

	var models []*M
	if body[0] == '[' {
		err = json.Unmarshal(body, &models)
	} else {
		model := new(M)
		err = json.Unmarshal(body, model)
		models = []*M{model}
	}
	if err != nil {
		return nil, NewProblem(http.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	for i, m := range models {
		if m == nil {
			return nil, NewProblem(http.StatusBadRequest, fmt.Sprintf("item %d is null", i))
		}
	}
	return models, nil
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, NewProblem(http.StatusBadRequest, fmt.Sprintf("invalid id %q", c.Param("id")))
	}
	return id, nil
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewProblem(http.StatusBadRequest, fmt.Sprintf("invalid %s %q", name, raw))
	}
	return n, nil
}
