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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/terra"
	"github.com/tomoncle/terra/config"
	"github.com/tomoncle/terra/database"
	"github.com/tomoncle/terra/entity"
	"github.com/tomoncle/terra/manager"
	"github.com/tomoncle/terra/mapper"
	"github.com/tomoncle/terra/repository"
	"github.com/tomoncle/terra/types"
	"github.com/tomoncle/terra/utils"
	"github.com/tomoncle/terra/validation"
	"github.com/uptrace/bun"
)

type toolCode int

const (
	toolInvalid toolCode = iota + 1
	toolNameInvalid
	toolIDDoesNotExist
	toolIDNotUnique
)

var toolCodes = types.EnumTable{
	int(toolInvalid):        {Name: "INVALID"},
	int(toolNameInvalid):    {Name: "NAME_INVALID"},
	int(toolIDDoesNotExist): {Name: "ID_DOES_NOT_EXIST"},
	int(toolIDNotUnique):    {Name: "ID_NOT_UNIQUE"},
}

func (c toolCode) IsValid() bool  { _, ok := toolCodes.Lookup(int(c)); return ok }
func (c toolCode) Number() int    { return int(c) }
func (c toolCode) String() string { return c.Name() }
func (c toolCode) Name() string   { e, _ := toolCodes.Lookup(int(c)); return e.Name }
func (c toolCode) Desc() string   { e, _ := toolCodes.Lookup(int(c)); return e.Desc }

type tool struct {
	bun.BaseModel `bun:"table:tools,alias:t"`
	entity.Base

	Name string `bun:"name,notnull,unique" json:"name"`
}

type ToolCreate struct {
	Name string `json:"name" validate:"required,max=10"`
}

type toolUpdate struct {
	ID int64 `json:"id"`
	ToolCreate
}

func (u toolUpdate) GetID() int64 { return u.ID }

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.App.Env = "test"
	cfg.Database.Primary.DBName = fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	cfg.Database.Primary.HealthCheckInterval = 0
	cfg.Database.Migrate.OnStartup = false
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, &cfg.Database, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Disconnect() })
	_, err = db.GetDB().NewCreateTable().Model((*tool)(nil)).IfNotExists().Exec(ctx)
	require.NoError(t, err)

	s := New(cfg, db, nil, nil)
	command := manager.NewCommandManager(manager.CommandConfig[tool, ToolCreate, toolUpdate, toolCode]{
		Query:   repository.NewQueryRepository[tool](db.GetDB()),
		Command: repository.NewCommandRepository[tool](db.GetDB()),
		CreateValidator: validation.NewModelValidator[ToolCreate](toolInvalid).
			MapField("name", toolNameInvalid),
		UpdateValidator: validation.NewModelValidator[toolUpdate](toolInvalid).
			MapField("name", toolNameInvalid).
			IDCode(toolIDDoesNotExist),
		CreateMapper:   mapper.Struct[ToolCreate, tool](),
		UpdateMapper:   mapper.Struct[toolUpdate, tool](),
		IDDoesNotExist: toolIDDoesNotExist,
		IDNotUnique:    toolIDNotUnique,
		Logger:         utils.NewLogger("TEST"),
	})
	service := terra.NewService(manager.NewQueryManager(repository.NewQueryRepository[tool](db.GetReadDB())), command)
	NewCrudController("tools", service, "name").
		WithFilter(func(c echo.Context) (*types.QueryFilter, error) {
			if name := c.QueryParam("name"); name != "" {
				return types.NewQueryFilter("name LIKE ?", name+"%"), nil
			}
			return nil, nil
		}).
		Register(s.Router(APIDoc, "/api/v1/tools"))
	return s
}

func do(t *testing.T, s *Server, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func decode[V any](t *testing.T, rec *httptest.ResponseRecorder) V {
	t.Helper()
	var v V
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type idsBody struct {
	IDs []int64 `json:"ids"`
}

func TestCrudFlow(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := do(t, s, http.MethodPost, "/api/v1/tools", `[{"name":"saw"},{"name":"drill"},{"name":"hammer"}]`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ids := decode[idsBody](t, rec).IDs
	require.Len(t, ids, 3)

	rec = do(t, s, http.MethodPost, "/api/v1/tools", `{"name":"axe"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, fmt.Sprintf("/api/v1/tools/%d", ids[1]), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "drill", decode[tool](t, rec).Name)

	rec = do(t, s, http.MethodGet, "/api/v1/tools?page=1&page_size=2&order=-name", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[types.Pagination[tool]](t, rec)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "saw", page.Items[0].Name)
	assert.Equal(t, "hammer", page.Items[1].Name)

	rec = do(t, s, http.MethodGet, "/api/v1/tools?page=9223372036854775807", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[types.Pagination[tool]](t, rec)
	assert.Equal(t, types.MaxPage, page.Page)
	assert.Empty(t, page.Items)
	assert.Equal(t, 4, page.Total)

	rec = do(t, s, http.MethodGet, "/api/v1/tools?name=d", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[types.Pagination[tool]](t, rec).Total)

	rec = do(t, s, http.MethodPut, "/api/v1/tools", fmt.Sprintf(`[{"id":%d,"name":"jigsaw"}]`, ids[0]))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []int64{ids[0]}, decode[idsBody](t, rec).IDs)

	rec = do(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/tools/%d", ids[2]), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, fmt.Sprintf("/api/v1/tools/%d", ids[2]), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, MIMEProblemJSON, rec.Header().Get(echo.HeaderContentType))

	rec = do(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/tools?ids=%d,%d", ids[0], ids[1]), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestValidationRecordsBecomeProblem(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := do(t, s, http.MethodPost, "/api/v1/tools", `[{"name":"ok"},{"name":""},{"name":"much-too-long"}]`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	p := decode[ProblemDetails](t, rec)
	require.Len(t, p.Errors, 2)
	assert.Equal(t, 1, p.Errors[0].Index)
	assert.Equal(t, "NAME_INVALID", p.Errors[0].Code)
	assert.Equal(t, "name", p.Errors[0].Field)
	assert.Equal(t, 2, p.Errors[1].Index)
	assert.Equal(t, "/api/v1/tools", p.Instance)

	rec = do(t, s, http.MethodDelete, "/api/v1/tools?ids=41,42", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	p = decode[ProblemDetails](t, rec)
	require.Len(t, p.Errors, 2)
	assert.Equal(t, "ID_DOES_NOT_EXIST", p.Errors[0].Code)

	rec = do(t, s, http.MethodPut, "/api/v1/tools", `{"id":99,"name":"x"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	cases := []struct {
		method, target, body string
		status               int
	}{
		{http.MethodPost, "/api/v1/tools", `{"name":`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/tools", ``, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/tools", `[null]`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/tools", `[]`, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/tools/abc", ``, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/tools/0", ``, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/tools?order=secret", ``, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/tools?page=x", ``, http.StatusBadRequest},
		{http.MethodDelete, "/api/v1/tools", ``, http.StatusBadRequest},
		{http.MethodDelete, "/api/v1/tools?ids=1,x", ``, http.StatusBadRequest},
		{http.MethodGet, "/nowhere", ``, http.StatusNotFound},
	}
	for _, c := range cases {
		rec := do(t, s, c.method, c.target, c.body)
		assert.Equal(t, c.status, rec.Code, "%s %s %s", c.method, c.target, rec.Body.String())
		assert.Equal(t, MIMEProblemJSON, rec.Header().Get(echo.HeaderContentType))
	}
}

func TestDuplicateKeyIsConflict(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/v1/tools", `{"name":"saw"}`).Code)
	rec := do(t, s, http.MethodPost, "/api/v1/tools", `{"name":"saw"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestAuthGuardsMutatingRoutes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth = config.AuthConfig{Enabled: true, Secret: "secret", Issuer: "terra", Audience: "api"}
	s := newTestServer(t, cfg)

	rec := do(t, s, http.MethodPost, "/api/v1/tools", `{"name":"saw"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))

	other := NewAuthenticator(config.AuthConfig{Secret: "other", Issuer: "terra", Audience: "api"})
	forged, err := other.IssueToken("mallory", "")
	require.NoError(t, err)
	rec = do(t, s, http.MethodPost, "/api/v1/tools", `{"name":"saw"}`, echo.HeaderAuthorization, "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := s.Auth.IssueToken("alice", "write")
	require.NoError(t, err)
	rec = do(t, s, http.MethodPost, "/api/v1/tools", `{"name":"saw"}`, echo.HeaderAuthorization, "Bearer "+token)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/v1/tools", "").Code)
}

func TestAuthenticatorChecksAudience(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{Secret: "s", Issuer: "terra", Audience: "api"})
	b := NewAuthenticator(config.AuthConfig{Secret: "s", Issuer: "terra", Audience: "admin"})

	token, err := b.IssueToken("bob", "")
	require.NoError(t, err)
	_, err = a.Parse(token)
	assert.Error(t, err)

	claims, err := b.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Subject)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[healthResponse](t, rec).Status)

	require.NoError(t, s.DB.Disconnect())
	rec = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDAndSecureHeaders(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := do(t, s, http.MethodGet, "/health", "", RequestIDHeader, "req-1")
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
	assert.Empty(t, rec.Header().Get(echo.HeaderStrictTransportSecurity))

	rec = do(t, s, http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	cfg := testConfig(t)
	cfg.App.Env = "production"
	prod := newTestServer(t, cfg)
	rec = do(t, prod, http.MethodGet, "/health", "", echo.HeaderXForwardedProto, "https")
	assert.Contains(t, rec.Header().Get(echo.HeaderStrictTransportSecurity), "max-age=31536000")
}

func TestRecoverRendersProblem(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	s.Echo.GET("/boom", func(echo.Context) error { panic("boom") })

	rec := do(t, s, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "an unexpected error occurred", decode[ProblemDetails](t, rec).Detail)
}

func TestDocs(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	s.Router(JobsDoc, "/jobs/v1").POST("/run", Operation{Summary: "run"}, func(c echo.Context) error {
		return c.NoContent(http.StatusAccepted)
	})

	rec := do(t, s, http.MethodGet, "/swagger/v1/swagger.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[map[string]interface{}](t, rec)
	paths := doc["paths"].(map[string]interface{})
	assert.Contains(t, paths, "/api/v1/tools")
	item := paths["/api/v1/tools/{id}"].(map[string]interface{})
	assert.Contains(t, item, "get")
	assert.Contains(t, item, "delete")
	assert.Equal(t, "getApiV1ToolsById", item["get"].(map[string]interface{})["operationId"])

	rec = do(t, s, http.MethodGet, "/swagger/jobs-v1/swagger.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/jobs/v1/run")

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/swagger/v2/swagger.json", "").Code)

	rec = do(t, s, http.MethodGet, "/swagger", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/swagger/v1/swagger.json")
	assert.NotContains(t, rec.Body.String(), "jobs-v1")
}

func TestToProblem(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("get: %w", manager.ErrNotFound), http.StatusNotFound},
		{manager.ErrEmptyBatch, http.StatusBadRequest},
		{manager.ErrInvalidID, http.StatusBadRequest},
		{echo.NewHTTPError(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed},
		{NewProblem(http.StatusTeapot, "tea"), http.StatusTeapot},
		{errors.New("UNIQUE constraint failed: tools.name"), http.StatusConflict},
		{errors.New("FOREIGN KEY constraint failed"), http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.status, ToProblem(c.err).Status, "%v", c.err)
	}
}
