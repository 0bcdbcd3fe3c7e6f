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
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tomoncle/terra/database"
)

type healthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Database  *database.HealthStatus `json:"database,omitempty"`
	Stats     *database.DBStats      `json:"stats,omitempty"`
}

func (s *Server) health(c echo.Context) error {
	resp := healthResponse{Status: "ok", Timestamp: time.Now().UTC()}
	if s.DB == nil {
		resp.Status = "unavailable"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	resp.Database = s.DB.HealthCheck(ctx)
	resp.Stats = s.DB.GetStats()
	if !resp.Database.Healthy {
		resp.Status = "unavailable"
		s.Logger.WithField("error", resp.Database.LastError).Warn("health check failed")
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
