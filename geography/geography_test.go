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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/terra/config"
	"github.com/tomoncle/terra/database"
	"github.com/tomoncle/terra/provider/queue"
	"github.com/tomoncle/terra/provider/storage"
	"github.com/tomoncle/terra/server"
	"github.com/tomoncle/terra/types"
)

type harness struct {
	server  *server.Server
	storage *storage.MemoryStorage
	queue   *queue.MemoryQueue
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.App.Env = "test"
	cfg.Database.Primary.DBName = fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	cfg.Database.Primary.HealthCheckInterval = 0
	cfg.Database.Migrate.OnStartup = true
	cfg.Database.Migrate.ForeignKeyFile = ""
	cfg.Database.Seed.OnMigration = true
	cfg.Database.Seed.Path = ""
	cfg.Database.Seed.Environment = "development"

	db, err := database.Open(context.Background(), &cfg.Database, nil, SeedFS())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Disconnect() })

	h := &harness{storage: storage.NewMemoryStorage(), queue: queue.NewMemoryQueue()}
	h.server = server.New(cfg, db, h.storage, h.queue)
	Register(h.server)
	return h
}

func (h *harness) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	h.server.Echo.ServeHTTP(rec, req)
	return rec
}

func decode[V any](t *testing.T, rec *httptest.ResponseRecorder) V {
	t.Helper()
	var v V
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type failure struct {
	Index int
	Code  string
}

func failures(p server.ProblemDetails) []failure {
	out := make([]failure, len(p.Errors))
	for i, e := range p.Errors {
		out[i] = failure{Index: e.Index, Code: e.Code}
	}
	return out
}

func (h *harness) countryID(t *testing.T, iso2 string) int64 {
	t.Helper()
	rec := h.do(t, http.MethodGet, "/api/v1/countries?iso2="+iso2, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[types.Pagination[Country]](t, rec)
	require.Len(t, page.Items, 1)
	return page.Items[0].ID
}

func TestSeedData(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/countries?order=iso2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[types.Pagination[Country]](t, rec)
	require.Equal(t, 3, page.Total)
	assert.Equal(t, []string{"DE", "FR", "US"}, []string{page.Items[0].ISO2, page.Items[1].ISO2, page.Items[2].ISO2})

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/states?country_id=%d", h.countryID(t, "de")), "")
	require.Equal(t, http.StatusOK, rec.Code)
	states := decode[types.Pagination[State]](t, rec)
	require.Len(t, states.Items, 1)
	assert.Equal(t, "Bavaria", states.Items[0].Name)

	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/v1/states?country_id=x", "").Code)
}

func TestCreateCountries(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/countries", `[
		{"name":"Spain","iso2":"ES","iso3":"ESP"},
		{"name":"Estonia","iso2":"ES","iso3":"EST"},
		{"name":"Germany","iso2":"DE","iso3":"DEX"},
		{"name":"Italy","iso2":"it","iso3":"ITA"}
	]`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.ElementsMatch(t, []failure{
		{0, "ISO2_NOT_UNIQUE"},
		{1, "ISO2_NOT_UNIQUE"},
		{2, "ISO2_EXISTS"},
		{3, "ISO2_INVALID"},
	}, failures(decode[server.ProblemDetails](t, rec)))

	rec = h.do(t, http.MethodPost, "/api/v1/countries", `[
		{"name":"Spain","iso2":"ES","iso3":"ESP","phone_code":"34","metadata":{"currency":"EUR"}},
		{"name":"Italy","iso2":"IT","iso3":"ITA"}
	]`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ids := decode[struct {
		IDs []int64 `json:"ids"`
	}](t, rec).IDs
	require.Len(t, ids, 2)

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/countries/%d", ids[0]), "")
	require.Equal(t, http.StatusOK, rec.Code)
	spain := decode[Country](t, rec)
	assert.Equal(t, "ESP", spain.ISO3)
	assert.Equal(t, "EUR", spain.Metadata["currency"])
}

func TestUpdateCountries(t *testing.T) {
	h := newHarness(t)
	fr := h.countryID(t, "FR")

	rec := h.do(t, http.MethodPut, "/api/v1/countries", fmt.Sprintf(`{"id":%d,"name":"France","iso2":"DE","iso3":"FRA"}`, fr))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []failure{{0, "ISO2_EXISTS"}}, failures(decode[server.ProblemDetails](t, rec)))

	rec = h.do(t, http.MethodPut, "/api/v1/countries", fmt.Sprintf(`{"id":%d,"name":"French Republic","iso2":"FR","iso3":"FRA"}`, fr))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/countries/%d", fr), "")
	assert.Equal(t, "French Republic", decode[Country](t, rec).Name)

	rec = h.do(t, http.MethodPut, "/api/v1/countries", `{"id":999,"name":"Nowhere","iso2":"NW","iso3":"NWH"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []failure{{0, "ID_DOES_NOT_EXIST"}}, failures(decode[server.ProblemDetails](t, rec)))
}

func TestCreateStates(t *testing.T) {
	h := newHarness(t)
	de := h.countryID(t, "DE")

	rec := h.do(t, http.MethodPost, "/api/v1/states", fmt.Sprintf(`[
		{"country_id":999,"name":"Atlantis","code":"AT"},
		{"country_id":%[1]d,"name":"Hesse","code":"HE"},
		{"country_id":%[1]d,"name":"Hessen","code":"HE"},
		{"country_id":%[1]d,"name":"Bayern","code":"BY"},
		{"country_id":%[1]d,"name":""}
	]`, de))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.ElementsMatch(t, []failure{
		{0, "COUNTRY_DOES_NOT_EXIST"},
		{1, "CODE_NOT_UNIQUE"},
		{2, "CODE_NOT_UNIQUE"},
		{3, "CODE_EXISTS"},
		{4, "NAME_INVALID"},
	}, failures(decode[server.ProblemDetails](t, rec)))

	rec = h.do(t, http.MethodPost, "/api/v1/states", fmt.Sprintf(`[
		{"country_id":%[1]d,"name":"Hesse","code":"HE"},
		{"country_id":%[1]d,"name":"Saxony","code":"SN"}
	]`, de))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/states?country_id=%d&order=name", de), "")
	page := decode[types.Pagination[State]](t, rec)
	require.Equal(t, 3, page.Total)
	assert.Equal(t, "Bavaria", page.Items[0].Name)
}

func TestStatesWithoutCode(t *testing.T) {
	h := newHarness(t)
	de := h.countryID(t, "DE")

	rec := h.do(t, http.MethodPost, "/api/v1/states", fmt.Sprintf(`[
		{"country_id":%[1]d,"name":"Alpha"},
		{"country_id":%[1]d,"name":"Beta"}
	]`, de))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, name := range []string{"Gamma", "Delta"} {
		rec = h.do(t, http.MethodPost, "/api/v1/states", fmt.Sprintf(`{"country_id":%d,"name":%q}`, de, name))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/states?country_id=%d&order=name", de), "")
	page := decode[types.Pagination[State]](t, rec)
	require.Equal(t, 5, page.Total)
	assert.Equal(t, "Alpha", page.Items[0].Name)
	assert.Empty(t, page.Items[0].Code)
	assert.Equal(t, "BY", page.Items[1].Code)
}

func TestUpdateStateKeepsOwnCode(t *testing.T) {
	h := newHarness(t)
	de := h.countryID(t, "DE")

	rec := h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/states?country_id=%d", de), "")
	bavaria := decode[types.Pagination[State]](t, rec).Items[0]

	body := fmt.Sprintf(`{"id":%d,"country_id":%d,"name":"Free State of Bavaria","code":"BY"}`, bavaria.ID, de)
	rec = h.do(t, http.MethodPut, "/api/v1/states", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/states/%d", bavaria.ID), "")
	assert.Equal(t, "Free State of Bavaria", decode[State](t, rec).Name)
}

func TestImportCountries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.storage.PutObject(ctx, "imports", "ok.json",
		[]byte(`[{"name":"Spain","iso2":"ES","iso3":"ESP"},{"name":"Italy","iso2":"IT","iso3":"ITA"}]`), "application/json"))
	require.NoError(t, h.storage.PutObject(ctx, "imports", "taken.json",
		[]byte(`[{"name":"Germany","iso2":"DE","iso3":"DEU"}]`), "application/json"))
	require.NoError(t, h.storage.PutObject(ctx, "imports", "broken.json", []byte(`{"name":`), "application/json"))

	rec := h.do(t, http.MethodPost, "/jobs/v1/countries/import", `{"bucket":"imports","key":"ok.json"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decode[ImportEnvelope](t, rec)
	assert.Equal(t, importJob, env.Job)
	assert.Equal(t, 2, env.Total)
	assert.Len(t, env.Response.IDs, 2)
	assert.NotEmpty(t, env.MessageID)

	rec = h.do(t, http.MethodPost, "/jobs/v1/countries/import", `{"bucket":"imports","key":"taken.json"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	env = decode[ImportEnvelope](t, rec)
	require.Len(t, env.Response.Errors, 2)
	assert.Equal(t, CountryISO2Exists, env.Response.Errors[0].Code)

	msgs := h.queue.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, string(msgs[1].Body), `"code":"ISO3_EXISTS"`)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, "/jobs/v1/countries/import", `{"bucket":"imports","key":"absent.json"}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/jobs/v1/countries/import", `{"bucket":"imports","key":"broken.json"}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/jobs/v1/countries/import", `{"bucket":"imports"}`).Code)
	assert.Len(t, h.queue.Messages(), 2)
}

func TestJobsDocumentedSeparately(t *testing.T) {
	h := newHarness(t)

	api := h.do(t, http.MethodGet, "/swagger/v1/swagger.json", "").Body.String()
	jobs := h.do(t, http.MethodGet, "/swagger/jobs-v1/swagger.json", "").Body.String()
	assert.Contains(t, api, "/api/v1/states/{id}")
	assert.NotContains(t, api, "/jobs/v1/countries/import")
	assert.Contains(t, jobs, "/jobs/v1/countries/import")
}

func TestErrorCodes(t *testing.T) {
	text, err := CountryISO2Exists.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ISO2_EXISTS", string(text))

	var code StateErrorCode
	require.NoError(t, code.UnmarshalText([]byte("CODE_EXISTS")))
	assert.Equal(t, StateCodeExists, code)
	assert.Error(t, code.UnmarshalText([]byte("NOPE")))

	assert.False(t, CountryErrorCode(0).IsValid())
	assert.Equal(t, types.IllegalName, CountryErrorCode(0).Name())
}
