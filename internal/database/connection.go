// connection.go
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

package database

import (
	"fmt"
	"net"
	"net/url"
	"time"

	puresqlite "github.com/glebarez/sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/juju/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/localnerve/layersdb/internal/catalog"
	"github.com/localnerve/layersdb/internal/config"
)

// Dialector returns the gorm dialector for the configured DB_TYPE.
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBType {
	case "mysql", "mariadb":
		mc := mysqldriver.NewConfig()
		mc.User = cfg.DBUser
		mc.Passwd = cfg.DBPassword
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
		mc.DBName = cfg.DBDatabase
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mysql.New(mysql.Config{DSN: mc.FormatDSN()}), nil

	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBDatabase,
			cfg.DBPort,
		)
		return postgres.Open(dsn), nil

	case "sqlite":
		// For SQLite, DBDatabase is the file path
		return sqlite.Open(cfg.DBDatabase), nil

	case "sqlite-pure":
		return puresqlite.Open(cfg.DBDatabase), nil

	case "sqlserver", "mssql":
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.DBUser, cfg.DBPassword),
			Host:     net.JoinHostPort(cfg.DBHost, cfg.DBPort),
			RawQuery: url.Values{"database": {cfg.DBDatabase}}.Encode(),
		}
		return sqlserver.Open(u.String()), nil
	}
	return nil, errors.NotSupportedf("database type %q", cfg.DBType)
}

// Connect opens the database, sizes the pool and migrates the catalog.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewLogger(log.Logger),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Annotate(err, "failed to connect to database")
	}

	// Get underlying SQL DB for connection pool configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Annotate(err, "failed to get underlying SQL DB")
	}

	limit := cfg.DBConnectionLimit
	if cfg.IsSQLite() {
		// SQLite serializes writers; a single connection keeps DDL and
		// row writes in one session.
		limit = 1
	}
	sqlDB.SetMaxOpenConns(limit)
	sqlDB.SetMaxIdleConns(max(limit/2, 1))

	if err := catalog.Migrate(db); err != nil {
		return nil, err
	}

	log.Info().Str("type", cfg.DBType).Str("database", cfg.DBDatabase).Msg("connected to database")
	return db, nil
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// zerologWriter feeds gorm log lines into zerolog.
type zerologWriter struct {
	log zerolog.Logger
}

func (w zerologWriter) Printf(format string, args ...interface{}) {
	w.log.Info().Msgf(format, args...)
}

// NewLogger returns a gorm logger writing through l. Statements are traced
// only when l is at debug level or below.
func NewLogger(l zerolog.Logger) logger.Interface {
	level := logger.Warn
	if zerolog.GlobalLevel() <= zerolog.DebugLevel && l.GetLevel() <= zerolog.DebugLevel {
		level = logger.Info
	}
	return logger.New(zerologWriter{log: l.With().Str("component", "gorm").Logger()}, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
