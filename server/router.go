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
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Router registers handlers on an echo group and documents them.
type Router struct {
	group   *echo.Group
	prefix  string
	doc     *Document
	protect echo.MiddlewareFunc
}

func mutating(method string) bool {
	return method != http.MethodGet && method != http.MethodHead && method != http.MethodOptions
}

// Handle adds a route. op carries the summary, tags and query parameters;
// path parameters, the operation id and the default responses are derived.
func (r *Router) Handle(method, path string, op Operation, h echo.HandlerFunc) {
	var mws []echo.MiddlewareFunc
	if r.protect != nil && mutating(method) {
		mws = append(mws, r.protect)
	}
	r.group.Add(method, path, h, mws...)

	if r.doc == nil {
		return
	}
	full := r.prefix + path
	op.OperationID = strings.ToLower(method) + operationName(full)
	if op.Responses == nil {
		op.Responses = map[string]DocResponse{
			"200": {Description: "OK"},
			"400": {Description: "Bad Request"},
			"500": {Description: "Internal Server Error"},
		}
	}
	if mutating(method) && method != http.MethodDelete && op.RequestBody == nil {
		op.RequestBody = &RequestBody{Required: true, Content: map[string]map[string]interface{}{
			echo.MIMEApplicationJSON: {"schema": map[string]string{"type": "object"}},
		}}
	}
	if r.protect != nil && mutating(method) {
		op.Security = []map[string][]string{{"bearer": {}}}
		op.Responses["401"] = DocResponse{Description: "Unauthorized"}
	}
	r.doc.Operation(method, full, &op)
}

// operationName turns /api/v1/countries/:id into ApiV1CountriesById.
func operationName(path string) string {
	var b strings.Builder
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, ":") {
			b.WriteString("By")
			seg = seg[1:]
		}
		b.WriteString(strings.ToUpper(seg[:1]) + seg[1:])
	}
	return b.String()
}

func (r *Router) GET(path string, op Operation, h echo.HandlerFunc) {
	r.Handle(http.MethodGet, path, op, h)
}

func (r *Router) POST(path string, op Operation, h echo.HandlerFunc) {
	r.Handle(http.MethodPost, path, op, h)
}

func (r *Router) PUT(path string, op Operation, h echo.HandlerFunc) {
	r.Handle(http.MethodPut, path, op, h)
}

func (r *Router) DELETE(path string, op Operation, h echo.HandlerFunc) {
	r.Handle(http.MethodDelete, path, op, h)
}
