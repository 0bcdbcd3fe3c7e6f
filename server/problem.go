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
	"fmt"
	"net/http"

	"github.com/tomoncle/terra/response"
	"github.com/tomoncle/terra/types"
)

const MIMEProblemJSON = "application/problem+json"

// ProblemDetails is an RFC 9457 error body.
type ProblemDetails struct {
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Status    int            `json:"status"`
	Detail    string         `json:"detail,omitempty"`
	Instance  string         `json:"instance,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Errors    []ProblemError `json:"errors,omitempty"`
}

// ProblemError is one rejected item of a batch request.
type ProblemError struct {
	Index          int         `json:"index"`
	Code           string      `json:"code"`
	Field          string      `json:"field,omitempty"`
	Message        string      `json:"message"`
	AttemptedValue interface{} `json:"attempted_value,omitempty"`
}

func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

func NewProblem(status int, detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// RecordsProblem renders manager error records as a 422 problem.
func RecordsProblem[E types.ErrorCode](records response.ErrorRecords[E]) *ProblemDetails {
	p := NewProblem(http.StatusUnprocessableEntity, "One or more items failed validation")
	p.Type = "/problems/validation"
	p.Errors = make([]ProblemError, len(records))
	for i, r := range records {
		p.Errors[i] = ProblemError{
			Index:          r.Index,
			Code:           r.Code.Name(),
			Field:          r.Field,
			Message:        r.Message,
			AttemptedValue: r.AttemptedValue,
		}
	}
	if len(records) > 0 {
		p.Detail = fmt.Sprintf("%s (%d errors)", records[0].Message, len(records))
	}
	return p
}
