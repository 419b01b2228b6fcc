// config.go
//
// User defined spatial tables over a relational database
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of layersdb.
// layersdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// layersdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with layersdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package config

import (
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/juju/errors"
)

// Naming scopes accepted by NAME_SCOPE.
const (
	NameScopeOwner  = "owner"
	NameScopeGlobal = "global"
)

// Database types accepted by DB_TYPE. sqlite-pure selects the cgo-free
// SQLite driver.
var DBTypes = []interface{}{"mysql", "postgres", "sqlite", "sqlite-pure", "sqlserver"}

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port     string
	LogLevel string

	// Database configuration
	DBType            string // mysql, postgres, sqlite, sqlite-pure, sqlserver
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int

	// Authorizer configuration
	AuthzURL      string
	AuthzClientID string
	SuperuserRole string

	// Layers configuration
	NameScope   string
	DefaultSRID int
	FilesDir    string
}

// Load loads configuration from the environment, after reading a .env file
// in the working directory when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Annotate(err, "reading .env")
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads configuration from the environment without validating it.
func FromEnv() *Config {
	return &Config{
		Port:              getEnv("PORT", "3000"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DBType:            strings.ToLower(getEnv("DB_TYPE", "postgres")),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBDatabase:        getEnv("DB_DATABASE", ""),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBConnectionLimit: getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		AuthzURL:          getEnv("AUTHZ_URL", ""),
		AuthzClientID:     getEnv("AUTHZ_CLIENT_ID", ""),
		SuperuserRole:     getEnv("SUPERUSER_ROLE", "admin"),
		NameScope:         strings.ToLower(getEnv("NAME_SCOPE", NameScopeOwner)),
		DefaultSRID:       getEnvAsInt("DEFAULT_SRID", 4326),
		FilesDir:          getEnv("FILES_DIR", "files"),
	}
}

// IsSQLite reports whether the database is a SQLite file.
func (c *Config) IsSQLite() bool {
	return strings.HasPrefix(c.DBType, "sqlite")
}

// Validate checks the database and layer settings.
func (c *Config) Validate() error {
	networked := validation.When(!c.IsSQLite(), validation.Required)
	err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, is.Port),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled")),
		validation.Field(&c.DBType, validation.Required, validation.In(DBTypes...)),
		validation.Field(&c.DBDatabase, validation.Required),
		validation.Field(&c.DBHost, networked),
		validation.Field(&c.DBPort, validation.When(!c.IsSQLite(), validation.Required, is.Port)),
		validation.Field(&c.DBUser, networked),
		validation.Field(&c.DBConnectionLimit, validation.Min(1)),
		validation.Field(&c.NameScope, validation.In(NameScopeOwner, NameScopeGlobal)),
		validation.Field(&c.DefaultSRID, validation.Min(1)),
		validation.Field(&c.FilesDir, validation.Required),
	)
	return errors.Annotate(err, "invalid configuration")
}

// ValidateAuthorizer checks the settings the HTTP server needs to resolve
// sessions.
func (c *Config) ValidateAuthorizer() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.AuthzURL, validation.Required, is.URL),
		validation.Field(&c.AuthzClientID, validation.Required),
		validation.Field(&c.SuperuserRole, validation.Required),
	)
	return errors.Annotate(err, "invalid authorizer configuration")
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
