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
	"html/template"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
)

var pathParam = regexp.MustCompile(`:(\w+)`)

// Document is a minimal OpenAPI 3 description built from registered routes.
type Document struct {
	OpenAPI    string                           `json:"openapi"`
	Info       DocumentInfo                     `json:"info"`
	Paths      map[string]map[string]*Operation `json:"paths"`
	Components Components                       `json:"components"`

	name    string
	visible bool
	mu      sync.Mutex
}

type DocumentInfo struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

type Components struct {
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes"`
}

type SecurityScheme struct {
	Type         string `json:"type"`
	Scheme       string `json:"scheme"`
	BearerFormat string `json:"bearerFormat,omitempty"`
}

type Operation struct {
	Summary     string                 `json:"summary"`
	OperationID string                 `json:"operationId"`
	Tags        []string               `json:"tags,omitempty"`
	Parameters  []Parameter            `json:"parameters,omitempty"`
	RequestBody *RequestBody           `json:"requestBody,omitempty"`
	Responses   map[string]DocResponse `json:"responses"`
	Security    []map[string][]string  `json:"security,omitempty"`
}

type Parameter struct {
	Name     string            `json:"name"`
	In       string            `json:"in"`
	Required bool              `json:"required"`
	Schema   map[string]string `json:"schema"`
}

type RequestBody struct {
	Required bool                              `json:"required"`
	Content  map[string]map[string]interface{} `json:"content"`
}

type DocResponse struct {
	Description string `json:"description"`
}

// Operation records method and path, converting echo's :param segments.
func (d *Document) Operation(method, path string, op *Operation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range pathParam.FindAllStringSubmatch(path, -1) {
		op.Parameters = append(op.Parameters, Parameter{
			Name: m[1], In: "path", Required: true, Schema: map[string]string{"type": "integer"},
		})
	}
	key := pathParam.ReplaceAllString(path, "{$1}")
	if d.Paths[key] == nil {
		d.Paths[key] = make(map[string]*Operation)
	}
	d.Paths[key][strings.ToLower(method)] = op
}

// Docs is the set of published documents.
type Docs struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

func NewDocs() *Docs {
	return &Docs{docs: make(map[string]*Document)}
}

// Add creates a document. Hidden documents are served but not listed in the UI.
func (d *Docs) Add(name, title, version string, visible bool) *Document {
	doc := &Document{
		OpenAPI: "3.0.3",
		Info:    DocumentInfo{Title: title, Version: version},
		Paths:   make(map[string]map[string]*Operation),
		Components: Components{SecuritySchemes: map[string]SecurityScheme{
			"bearer": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
		}},
		name:    name,
		visible: visible,
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs[name] = doc
	return doc
}

func (d *Docs) Get(name string) *Document {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.docs[name]
}

// Visible returns the listed documents sorted by name.
func (d *Docs) Visible() []*Document {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*Document
	for _, doc := range d.docs {
		if doc.visible {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (d *Docs) register(e *echo.Echo) {
	e.GET("/swagger/:name/swagger.json", d.serveDocument)
	e.GET("/swagger", d.serveUI)
}

func (d *Docs) serveDocument(c echo.Context) error {
	doc := d.Get(c.Param("name"))
	if doc == nil {
		return NewProblem(http.StatusNotFound, "unknown api document "+c.Param("name"))
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	return c.JSON(http.StatusOK, doc)
}

var swaggerUI = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>API documentation</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-standalone-preset.js"></script>
<script>
  window.ui = SwaggerUIBundle({
    urls: [{{range .}}{url: "/swagger/{{.Name}}/swagger.json", name: "{{.Title}}"},{{end}}],
    dom_id: "#swagger-ui",
    presets: [SwaggerUIBundle.presets.apis, SwaggerUIStandalonePreset],
    layout: "StandaloneLayout"
  });
</script>
</body>
</html>
`))

type uiEntry struct {
	Name  string
	Title string
}

func (d *Docs) serveUI(c echo.Context) error {
	var entries []uiEntry
	for _, doc := range d.Visible() {
		entries = append(entries, uiEntry{Name: doc.name, Title: doc.Info.Title})
	}
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return swaggerUI.Execute(c.Response(), entries)
}
