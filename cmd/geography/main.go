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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/terra/config"
	"github.com/tomoncle/terra/database"
	"github.com/tomoncle/terra/geography"
	"github.com/tomoncle/terra/provider/queue"
	"github.com/tomoncle/terra/provider/storage"
	"github.com/tomoncle/terra/server"
	"github.com/tomoncle/terra/utils"
)

func main() {
	configPath := flag.String("config", utils.EnvDefaultString("TERRA_CONFIG", "configs/config.yaml"), "path to the YAML configuration file")
	flag.Parse()

	log := utils.NewLogger("MAIN")
	if err := run(*configPath, log); err != nil {
		log.WithError(err).Error("geography service stopped")
		os.Exit(1)
	}
}

func run(configPath string, log *logrus.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.ApplyLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, &cfg.Database, database.NewDefaultLogger(utils.NewLogger("DATABASE")), geography.SeedFS())
	if err != nil {
		return err
	}
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = db.Disconnect()
		return err
	}
	q, err := queue.New(ctx, cfg.Queue)
	if err != nil {
		_ = db.Disconnect()
		return err
	}

	s := server.New(cfg, db, store, q)
	geography.Register(s)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err = <-errCh:
		_ = db.Disconnect()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}
