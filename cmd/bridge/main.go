// Package main runs the MVC bridge: a script host that forwards requests
// under <context>/<service>/<script>/ to MVC dispatchers.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/R3E-Network/mvc_bridge/internal/app"
	"github.com/R3E-Network/mvc_bridge/internal/config"
	"github.com/R3E-Network/mvc_bridge/internal/platform/migrations"
	"github.com/R3E-Network/mvc_bridge/internal/repository/postgres"
	"github.com/R3E-Network/mvc_bridge/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("bridge").WithError(err).Fatal("Failed to load configuration")
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	}).Named("bridge")

	var deps app.Dependencies
	if cfg.Database.DSN != "" {
		db, err := openDatabase(ctx, cfg.Database)
		if err != nil {
			log.WithError(err).Fatal("Failed to open database")
		}
		defer db.Close()
		deps.Store = postgres.New(db)
		log.WithField("driver", cfg.Database.Driver).Info("Using database node store")
	} else {
		log.Warn("DATABASE_DSN not set; using in-memory node store")
	}

	application, err := app.New(cfg, deps, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to build application")
	}
	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start application")
	}

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      application.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithField("addr", server.Addr).
			WithField("context_path", cfg.Bridge.ContextPath).
			WithField("service_path", cfg.Bridge.ServicePath).
			Info("Bridge listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Shutdown error")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("Application stop error")
	}
	log.Info("Bridge stopped")
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if cfg.Migrate {
		if err := migrations.Apply(ctx, db.DB); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}
