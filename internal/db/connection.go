// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"database/sql"
	"net/url"
	"os"

	"github.com/dlmiddlecote/sqlstats"
	gorp "github.com/go-gorp/gorp/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sapcc/go-api-declarations/bininfo"
	"github.com/sapcc/go-bits/easypg"
	"github.com/sapcc/go-bits/osext"
	"github.com/sapcc/go-bits/sqlext"
)

// Configuration returns the easypg.Configuration object that func Init() needs
// to initialize the DB connection.
func Configuration() easypg.Configuration {
	return easypg.Configuration{
		Migrations: sqlMigrations,
	}
}

// Init initializes the connection to the database from the CUMULUS_DB_*
// environment variables.
func Init() (*sql.DB, error) {
	dbURL, err := easypg.URLFrom(easypg.URLParts{
		HostName:          osext.GetenvOrDefault("CUMULUS_DB_HOSTNAME", "localhost"),
		Port:              osext.GetenvOrDefault("CUMULUS_DB_PORT", "5432"),
		UserName:          osext.GetenvOrDefault("CUMULUS_DB_USERNAME", "postgres"),
		Password:          os.Getenv("CUMULUS_DB_PASSWORD"),
		ConnectionOptions: os.Getenv("CUMULUS_DB_CONNECTION_OPTIONS"),
		DatabaseName:      osext.GetenvOrDefault("CUMULUS_DB_NAME", "cumulus"),
	})
	if err != nil {
		return nil, err
	}
	dbConn, err := InitFromURL(dbURL)
	if err != nil {
		return nil, err
	}
	prometheus.MustRegister(sqlstats.NewStatsCollector(bininfo.Component(), dbConn))
	return dbConn, nil
}

// InitFromURL is like Init, but takes an explicit URL and does not register
// metrics. This is used to connect to the test database.
func InitFromURL(dbURL *url.URL) (*sql.DB, error) {
	cfg := Configuration()
	cfg.PostgresURL = dbURL
	return easypg.Connect(cfg)
}

// InitORM wraps a database connection into a gorp.DbMap instance.
func InitORM(dbConn *sql.DB) *gorp.DbMap {
	// ensure that this process does not starve other cumulus processes for DB connections
	dbConn.SetMaxOpenConns(16)

	dbMap := &gorp.DbMap{Db: dbConn, Dialect: gorp.PostgresDialect{}}
	initGorp(dbMap)
	return dbMap
}

// Interface provides the common methods that both SQL connections and
// transactions implement.
type Interface interface {
	// from database/sql
	sqlext.Executor

	// from github.com/go-gorp/gorp
	Insert(args ...any) error
	Update(args ...any) (int64, error)
	Delete(args ...any) (int64, error)
	Select(i any, query string, args ...any) ([]any, error)
	SelectOne(holder any, query string, args ...any) error
}
