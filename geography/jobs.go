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
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/terra/provider/queue"
	"github.com/tomoncle/terra/provider/storage"
	"github.com/tomoncle/terra/response"
	"github.com/tomoncle/terra/server"
	"github.com/tomoncle/terra/utils"
)

const importJob = "countries.import"

var ErrInvalidImport = errors.New("import object is not a JSON array of countries")

type ImportRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// ImportEnvelope is published to the queue once the batch has been handled
// and is also the body of the job response.
type ImportEnvelope struct {
	Job       string                                      `json:"job"`
	Bucket    string                                      `json:"bucket"`
	Key       string                                      `json:"key"`
	Total     int                                         `json:"total"`
	Response  *response.ManagerResponse[CountryErrorCode] `json:"response"`
	MessageID string                                      `json:"message_id,omitempty"`
}

// CountryImporter creates countries from a JSON file in object storage.
type CountryImporter struct {
	service CountryService
	storage storage.Storage
	queue   queue.Queue
	logger  *logrus.Logger
}

func NewCountryImporter(service CountryService, store storage.Storage, q queue.Queue) *CountryImporter {
	return &CountryImporter{
		service: service,
		storage: store,
		queue:   q,
		logger:  utils.NewLogger("IMPORT"),
	}
}

// Import runs CreateAll over the file at bucket/key. Rejected batches are
// published too; only unexpected failures are returned as errors.
func (im *CountryImporter) Import(ctx context.Context, req ImportRequest) (*ImportEnvelope, error) {
	data, err := im.storage.GetObject(ctx, req.Bucket, req.Key)
	if err != nil {
		return nil, err
	}
	var models []*CountryCreate
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	resp := im.service.CreateAll(ctx, models)
	if resp.Err != nil {
		return nil, resp.Err
	}

	env := &ImportEnvelope{
		Job:      importJob,
		Bucket:   req.Bucket,
		Key:      req.Key,
		Total:    len(models),
		Response: resp,
	}
	id, err := im.queue.Publish(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("publish %s result: %w", importJob, err)
	}
	env.MessageID = id

	im.logger.WithFields(logrus.Fields{
		"key":        req.Key,
		"total":      env.Total,
		"created":    len(resp.IDs),
		"rejected":   resp.Errors.Len(),
		"message_id": id,
	}).Info("countries imported")
	return env, nil
}

func (im *CountryImporter) Register(r *server.Router) {
	r.POST("/countries/import", server.Operation{
		Summary: "Import countries from a JSON file in object storage",
		Tags:    []string{"jobs"},
	}, im.handle)
}

func (im *CountryImporter) handle(c echo.Context) error {
	var req ImportRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Key == "" {
		return server.NewProblem(http.StatusBadRequest, "key is required")
	}

	env, err := im.Import(c.Request().Context(), req)
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		return server.NewProblem(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidImport):
		return server.NewProblem(http.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}

	status := http.StatusOK
	if env.Response.HasRecords() {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, env)
}
