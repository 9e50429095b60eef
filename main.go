// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sapcc/go-api-declarations/bininfo"
	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/httpext"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/must"
	"github.com/sapcc/go-bits/osext"

	"github.com/sapcc/cumulus/internal/api"
	"github.com/sapcc/cumulus/internal/collector"
	"github.com/sapcc/cumulus/internal/core"
	"github.com/sapcc/cumulus/internal/db"
)

func main() {
	bininfo.HandleVersionArgument()
	logg.ShowDebug = osext.GetenvBool("CUMULUS_DEBUG")

	// first two arguments must be task name and configuration file
	if len(os.Args) != 3 {
		printUsageAndExit()
	}
	taskName, configPath := os.Args[1], os.Args[2]
	bininfo.SetTaskName(taskName)
	cfg := core.NewConfiguration(configPath)

	switch taskName {
	case "serve":
		taskServe(cfg)
	case "migrate":
		taskMigrate()
	default:
		printUsageAndExit()
	}
}

var usageMessage = strings.TrimSpace(`
Usage:
	%[1]s migrate <config-file>
	%[1]s serve <config-file>
`) + "\n"

func printUsageAndExit() {
	fmt.Fprintf(os.Stderr, usageMessage, os.Args[0])
	os.Exit(1)
}

// taskMigrate applies all pending database schema migrations. Connecting via
// easypg already performs the migration, so there is nothing else to do here.
func taskMigrate() {
	must.Return(db.Init())
	logg.Info("database schema is up to date")
}

func taskServe(cfg core.Configuration) {
	dbConn := must.Return(db.Init())
	dbm := db.InitORM(dbConn)

	if cfg.Metrics.ExposeDataMetrics {
		prometheus.MustRegister(&collector.DataMetricsCollector{DB: dbm})
	}

	handler := httpapi.Compose(
		api.NewV1API(cfg, dbm, core.SQLTenantDirectory{}),
		httpapi.HealthCheckAPI{SkipRequestLog: true},
	)
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.API.CORSAllowedOrigins,
		AllowedMethods: []string{"HEAD", "GET", "POST", "PUT"},
		AllowedHeaders: []string{"Content-Type", "User-Agent"},
	})

	muxer := http.NewServeMux()
	muxer.Handle("/", corsMiddleware.Handler(handler))
	muxer.Handle("/metrics", promhttp.Handler())

	logg.Info("listening on %s", cfg.API.ListenAddress)
	ctx := httpext.ContextWithSIGINT(context.Background(), 10*time.Second)
	must.Succeed(httpext.ListenAndServeContext(ctx, cfg.API.ListenAddress, muxer))
}
