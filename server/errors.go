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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/terra/database"
	"github.com/tomoncle/terra/manager"
)

// ToProblem maps any handler error onto a problem. Unclassified errors
// become a 500 whose detail does not leak the cause.
func ToProblem(err error) *ProblemDetails {
	var problem *ProblemDetails
	if errors.As(err, &problem) {
		return problem
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		detail := http.StatusText(httpErr.Code)
		if httpErr.Message != nil {
			detail = fmt.Sprint(httpErr.Message)
		}
		return NewProblem(httpErr.Code, detail)
	}

	switch {
	case errors.Is(err, manager.ErrNotFound):
		return NewProblem(http.StatusNotFound, err.Error())
	case errors.Is(err, manager.ErrEmptyBatch),
		errors.Is(err, manager.ErrNilModel),
		errors.Is(err, manager.ErrInvalidID):
		return NewProblem(http.StatusBadRequest, err.Error())
	}

	if ok, kind := database.IsSqlError(err); ok {
		switch kind {
		case database.NoRowsErr:
			return NewProblem(http.StatusNotFound, "entity not found")
		case database.DuplicateKeyErr:
			return NewProblem(http.StatusConflict, "a record with the same key already exists")
		case database.ForeignKeyViolationErr:
			return NewProblem(http.StatusConflict, "the record references or is referenced by another record")
		case database.NotNullViolationErr, database.CheckConstraintViolationErr, database.DataTruncatedErr:
			return NewProblem(http.StatusBadRequest, "the record violates a column constraint")
		}
	}
	return NewProblem(http.StatusInternalServerError, "an unexpected error occurred")
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	p := *ToProblem(err)
	p.Instance = c.Request().URL.Path
	p.RequestID = GetRequestID(c)

	entry := s.Logger.WithFields(logrus.Fields{
		"request_id":  p.RequestID,
		"status_code": p.Status,
	}).WithError(err)
	if p.Status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(p.Status)
	} else {
		var body []byte
		body, err = json.Marshal(p)
		if err == nil {
			err = c.Blob(p.Status, MIMEProblemJSON, body)
		}
	}
	if err != nil {
		s.Logger.WithError(err).Error("failed to write error response")
	}
}
