// Package main initializes and starts the vendor registry server,
// setting up configuration, logging, the database connection, repositories,
// services, handlers, scheduled backups and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/venditori/internal/backup"
	"github.com/atinyakov/venditori/internal/config"
	"github.com/atinyakov/venditori/internal/cvstore"
	"github.com/atinyakov/venditori/internal/db"
	"github.com/atinyakov/venditori/internal/logger"
	"github.com/atinyakov/venditori/internal/repository"
	"github.com/atinyakov/venditori/internal/server/handler/http"
	"github.com/atinyakov/venditori/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection and schema.
	postgresDB, err := db.InitPostgres(options.DSN())
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Initialize repositories.
	vendorRepo := repository.NewPostgresVendorRepository(postgresDB)
	sectorRepo := repository.NewPostgresSectorRepository(postgresDB)
	statsRepo := repository.NewPostgresStatsRepository(postgresDB)

	cvStore := cvstore.New(options.CVDir)

	// Initialize business-logic services.
	vendorService := service.NewVendorService(vendorRepo, cvStore)
	sectorService := service.NewSectorService(sectorRepo)
	statsService := service.NewStatsService(statsRepo)
	backupEngine := backup.NewEngine(postgresDB)

	// Start scheduled backups.
	if options.BackupDir != "" && options.BackupInterval > 0 {
		backup.StartAutoBackup(ctx, backupEngine, options.BackupDir,
			options.BackupInterval,
			options.BackupRetention,
			zapLogger,
		)
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(http.Handlers{
		Vendor: &http.VendorHandler{VendorService: vendorService, CVFiles: cvStore},
		Sector: &http.SectorHandler{SectorService: sectorService},
		Stats:  &http.StatsHandler{StatsService: statsService},
		Backup: &http.BackupHandler{Engine: backupEngine},
	}, http.RouterConfig{
		APIToken:     options.APIToken,
		APITokenHash: options.APITokenHash,
		CORSOrigins:  options.CORSOrigins,
	}, zapLogger)

	if options.APIToken == "" && options.APITokenHash == "" {
		zapLogger.Warn("no API token configured, every protected request will be denied")
	}

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	if options.TLSCert != "" && options.TLSKey != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Addr))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
