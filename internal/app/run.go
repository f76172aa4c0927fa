package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"climate-tracker/internal/config"
	"climate-tracker/internal/db"
	"climate-tracker/internal/httpapi"
	"climate-tracker/internal/migrate"
	"climate-tracker/internal/modules/climate"
	"climate-tracker/internal/modules/climate/feed"
	"climate-tracker/internal/modules/climate/service"
	"climate-tracker/internal/modules/climate/views"
	"climate-tracker/internal/mqtt"
)

const (
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func Run(ctx context.Context, cfg config.Config) error {
	logger := slog.Default()
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"stationID", cfg.StationID,
		"archive", cfg.ArchiveEnabled(),
		"sqlitePath", cfg.SQLitePath,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
	)

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	var dbConn *sql.DB
	if cfg.ArchiveEnabled() {
		conn, err := db.Open(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(conn); closeErr != nil {
				logger.Error("db close", "error", closeErr)
			}
		}()
		if _, err := migrate.Run(ctx, conn, logger); err != nil {
			return err
		}
		dbConn = conn
		logger.Info("archive ready")
	}

	// Interfaces below must stay nil when MQTT is disabled.
	var (
		telemetry  service.TelemetryPublisher
		mqttStatus httpapi.ConnectionStatus
	)
	if cfg.MQTTEnabled() {
		publisher, err := mqtt.NewPublisher(cfg, logger)
		if err != nil {
			return err
		}
		// Short timeout so a missing broker does not block startup; paho keeps
		// retrying in the background.
		connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err = publisher.Connect(connectCtx)
		cancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
		defer publisher.Disconnect()
		telemetry = publisher
		mqttStatus = publisher
	}

	f := feed.New(feed.WithLogger(logger))

	mux := httpapi.NewMux(httpapi.HealthDeps{
		Feed:   f,
		MaxAge: 3 * feed.Period,
		DB:     dbConn,
		MQTT:   mqttStatus,
	})
	climate.RegisterFeature(mux, f, dbConn, telemetry, cfg.StationID, logger)

	srv := httpapi.NewServer(cfg, mux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("http shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}
