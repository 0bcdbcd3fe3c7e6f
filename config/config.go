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

// Package config loads the service configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables prefixed with TERRA_. Nested keys are separated by a
// double underscore, so TERRA_DATABASE__PRIMARY__HOST sets database.primary.host.
// A .env file in the working directory is loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/tomoncle/terra/database"
	"github.com/tomoncle/terra/utils"
)

const EnvPrefix = "TERRA_"

// Config is the root configuration object.
type Config struct {
	App      AppConfig       `koanf:"app" validate:"required"`
	Server   ServerConfig    `koanf:"server" validate:"required"`
	Database database.Config `koanf:"database" validate:"required"`
	Auth     AuthConfig      `koanf:"auth"`
	Storage  StorageConfig   `koanf:"storage"`
	Queue    QueueConfig     `koanf:"queue"`
	Logging  LoggingConfig   `koanf:"logging"`
}

type AppConfig struct {
	Name string `koanf:"name" validate:"required"`
	Env  string `koanf:"env" validate:"required,oneof=development test staging production"`
}

// ServerConfig groups settings of the HTTP listener.
type ServerConfig struct {
	Port               int           `koanf:"port" validate:"required,min=1,max=65535"`
	ReadTimeout        time.Duration `koanf:"read_timeout"`
	WriteTimeout       time.Duration `koanf:"write_timeout"`
	IdleTimeout        time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout"`
	CORSAllowedOrigins []string      `koanf:"cors_allowed_origins"`
	HSTSMaxAge         int           `koanf:"hsts_max_age"`
	HTTPSRedirect      bool          `koanf:"https_redirect"`
}

// AuthConfig configures bearer token checks on mutating routes.
type AuthConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Secret   string        `koanf:"secret" validate:"required_if=Enabled true"`
	Issuer   string        `koanf:"issuer"`
	Audience string        `koanf:"audience"`
	TokenTTL time.Duration `koanf:"token_ttl"`
}

// StorageConfig selects the object store. The memory driver keeps objects in
// process and is meant for tests and local runs.
type StorageConfig struct {
	Driver       string `koanf:"driver" validate:"omitempty,oneof=s3 memory"`
	Region       string `koanf:"region"`
	Endpoint     string `koanf:"endpoint" validate:"omitempty,url"`
	AccessKey    string `koanf:"access_key"`
	SecretKey    string `koanf:"secret_key"`
	Bucket       string `koanf:"bucket"`
	UsePathStyle bool   `koanf:"use_path_style"`
}

// QueueConfig selects where job results are published.
type QueueConfig struct {
	Driver    string `koanf:"driver" validate:"omitempty,oneof=sqs memory"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint" validate:"omitempty,url"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	QueueURL  string `koanf:"queue_url" validate:"required_if=Driver sqs"`
}

type LoggingConfig struct {
	Level  string            `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	Format string            `koanf:"format" validate:"omitempty,oneof=text json"`
	Levels map[string]string `koanf:"levels"`
}

// Default returns the configuration used when nothing overrides it: a local
// sqlite database and in-memory storage and queue.
func Default() *Config {
	primary := database.DefaultConnectionConfig()
	primary.Type = "sqlite"
	primary.DBName = "terra.db"

	return &Config{
		App: AppConfig{Name: "terra", Env: "development"},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			HSTSMaxAge:      31536000,
		},
		Database: database.Config{
			Primary: primary,
			Migrate: database.MigrateConfig{OnStartup: true, EnableForeignKey: true},
			Seed:    database.SeedConfig{OnMigration: true, Environment: "development"},
		},
		Auth:    AuthConfig{TokenTTL: time.Hour},
		Storage: StorageConfig{Driver: "memory"},
		Queue:   QueueConfig{Driver: "memory"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads path, when not empty, and the environment on top of Default.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("could not load config file %s: %w", path, err)
			}
			utils.NewLogger("CONFIG").Warnf("config file %s not found, using defaults", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps TERRA_SERVER__READ_TIMEOUT to server.read_timeout.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development" || c.App.Env == "test"
}

// ApplyLogging pushes the logging section into the named loggers.
func (c *Config) ApplyLogging() {
	utils.ConfigureConsoleLogFormat(c.Logging.Format)
	utils.ConfigureLogLevel(c.Logging.Level)
	for name, level := range c.Logging.Levels {
		utils.SetLoggerLevel(strings.ToUpper(name), level)
	}
}
