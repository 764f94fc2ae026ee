// connection.go
//
// Business process backend for immigration and company formation services
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of bizflow.
// bizflow is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// bizflow is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with bizflow.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/localnerve/bizflow/internal/config"
	"github.com/localnerve/bizflow/internal/logging"
	"github.com/localnerve/bizflow/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	cgosqlite "gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// credentials selects which database account a pool logs in with
type credentials struct {
	user     string
	password string
	limit    int
	label    string
}

// Connect opens the application pool used by request handlers
func Connect(cfg *config.Config) (*gorm.DB, error) {
	return open(cfg, credentials{
		user:     cfg.DBAppUser,
		password: cfg.DBAppPassword,
		limit:    cfg.DBAppConnectionLimit,
		label:    "app",
	})
}

// ConnectAdmin opens the privileged pool used for migrations
func ConnectAdmin(cfg *config.Config) (*gorm.DB, error) {
	return open(cfg, credentials{
		user:     cfg.DBUser,
		password: cfg.DBPassword,
		limit:    cfg.DBConnectionLimit,
		label:    "admin",
	})
}

// Dialector builds the gorm dialector for the configured DB_TYPE
func Dialector(cfg *config.Config, user, password string) (gorm.Dialector, error) {
	switch cfg.DBType {
	case "mysql", "mariadb":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			user, password, cfg.DBHost, cfg.DBPort, cfg.DBDatabase)
		return mysql.Open(dsn), nil

	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost, user, password, cfg.DBDatabase, cfg.DBPort)
		return postgres.Open(dsn), nil

	case "sqlite":
		// Pure Go driver, DBDatabase is the file path
		return sqlite.Open(cfg.DBDatabase), nil

	case "sqlite3":
		// cgo driver for builds that already link libsqlite3
		return cgosqlite.Open(cfg.DBDatabase), nil

	case "sqlserver", "mssql":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
			user, password, cfg.DBHost, cfg.DBPort, cfg.DBDatabase)
		return sqlserver.Open(dsn), nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
	}
}

func open(cfg *config.Config, creds credentials) (*gorm.DB, error) {
	dialector, err := Dialector(cfg, creds.user, creds.password)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if cfg.LogLevel == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", creds.label, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	limit := creds.limit
	if cfg.IsSQLite() || limit < 1 {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY
		limit = 1
	}
	sqlDB.SetMaxOpenConns(limit)
	sqlDB.SetMaxIdleConns(max(limit/2, 1))

	log := logging.WithComponent("database")
	log.Info().
		Str("type", cfg.DBType).
		Str("database", cfg.DBDatabase).
		Str("pool", creds.label).
		Msg("connected")

	return db, nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
