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

// Package server is the HTTP surface of the service: the echo instance, its
// middleware, problem details error rendering, bearer authentication, API
// documentation and the generic CRUD controller.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/terra/config"
	"github.com/tomoncle/terra/database"
	"github.com/tomoncle/terra/provider/queue"
	"github.com/tomoncle/terra/provider/storage"
	"github.com/tomoncle/terra/utils"
)

const (
	APIDoc  = "v1"
	JobsDoc = "jobs-v1"
)

// Server holds the shared resources of the running service.
type Server struct {
	Config  *config.Config
	Logger  *logrus.Logger
	DB      database.Manager
	Storage storage.Storage
	Queue   queue.Queue
	Echo    *echo.Echo
	Docs    *Docs
	Auth    *Authenticator

	httpServer *http.Server
}

// New builds the echo instance with the global middleware, the health
// endpoint and the documentation routes. Controllers are added afterwards
// through Router.
func New(cfg *config.Config, db database.Manager, store storage.Storage, q queue.Queue) *Server {
	s := &Server{
		Config:  cfg,
		Logger:  utils.NewLogger("SERVER"),
		DB:      db,
		Storage: store,
		Queue:   q,
		Echo:    echo.New(),
		Docs:    NewDocs(),
	}
	if cfg.Auth.Enabled {
		s.Auth = NewAuthenticator(cfg.Auth)
	}

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.HTTPErrorHandler = s.handleError

	s.Echo.Pre(RequestID())
	if !cfg.IsDevelopment() && cfg.Server.HTTPSRedirect {
		s.Echo.Pre(HTTPSRedirect())
	}
	s.Echo.Use(
		RequestLogger(s.Logger),
		Recover(s.Logger),
		Secure(cfg),
	)
	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		s.Echo.Use(CORS(cfg.Server.CORSAllowedOrigins))
	}

	s.Docs.Add(APIDoc, cfg.App.Name+" API", "v1", true)
	s.Docs.Add(JobsDoc, cfg.App.Name+" Jobs API", "v1", false)
	s.Echo.GET("/health", s.health)
	s.Docs.register(s.Echo)
	return s
}

// Router returns a route group under prefix documented in the doc named doc.
// Mutating routes of the group require a bearer token when auth is enabled.
func (s *Server) Router(doc, prefix string) *Router {
	var protect echo.MiddlewareFunc
	if s.Auth != nil {
		protect = s.Auth.Middleware()
	}
	return &Router{
		group:   s.Echo.Group(prefix),
		prefix:  prefix,
		doc:     s.Docs.Get(doc),
		protect: protect,
	}
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + strconv.Itoa(s.Config.Server.Port),
		Handler:      s.Echo,
		ReadTimeout:  s.Config.Server.ReadTimeout,
		WriteTimeout: s.Config.Server.WriteTimeout,
		IdleTimeout:  s.Config.Server.IdleTimeout,
	}
	s.Logger.WithFields(logrus.Fields{
		"port": s.Config.Server.Port,
		"env":  s.Config.App.Env,
	}).Info("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for the running ones and closes
// the database.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}
	if s.DB != nil {
		if err := s.DB.Disconnect(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}
	s.Logger.Info("server stopped")
	return nil
}
