package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geotrace/internal/broker"
	"geotrace/internal/config"
	"geotrace/internal/handlers"
	"geotrace/internal/logger"
	"geotrace/internal/metrics"
	"geotrace/internal/repository"
	"geotrace/internal/repository/db"
	"geotrace/internal/server"
	"geotrace/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// load .env, config.yml and environment
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
		if errors.Is(err, config.ErrMissingSecret) {
			fmt.Fprintln(os.Stderr, "set SECRET_KEY or choose another environment with GEOTRACE_ENV")
		}
		os.Exit(1)
	}

	// init logger
	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Close() }()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// storage
	store, err := repository.NewFileStore(cfg.DataDir, cfg.BackupDir)
	if err != nil {
		log.Fatalw("failed to prepare storage directories", "err", err)
	}
	conn, err := openDB(cfg)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}
	repos := repository.NewRepository(conn, store)
	services := service.NewService(repos, log, m)
	apiHandler := handlers.NewHandler(services, cfg, log, m)

	// optional MQTT ingestion
	var mq *broker.Broker
	if cfg.MQTT.Enabled {
		mq = runBroker(cfg.MQTT, services, log)
	}

	log.Infow("starting server",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"data_file", store.CanonicalPath(),
		"backup_dir", cfg.BackupDir,
		"debug", cfg.Debug,
	)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Addr(), apiHandler, log)

	// graceful shutdown
	waitForShutdown(srv, mq, log)
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	baseDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.AddConfigPath("configs") // configs/config.yml
	v.SetConfigName("config")
	return config.Load(v, baseDir)
}

// openDB initializes the receipt ledger using DATABASE_URL.
func openDB(cfg *config.Config) (*sql.DB, error) {
	path, err := cfg.SQLitePath()
	if err != nil {
		return nil, err
	}
	return db.InitDB(path)
}

// runBroker starts the embedded MQTT broker in a separate goroutine.
func runBroker(cfg config.MQTTConfig, ingest service.Ingestion, log *logger.Logger) *broker.Broker {
	mq, err := broker.New(cfg, ingest, log)
	if err != nil {
		log.Fatalw("failed to init mqtt broker", "err", err)
	}
	go func() {
		if err := mq.Serve(); err != nil {
			log.Errorw("mqtt broker stopped", "err", err)
		}
	}()
	log.Infow("mqtt broker listening", "addr", cfg.Address, "topic", cfg.Topic)
	return mq
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, addr string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(addr, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(srv *server.Server, mq *broker.Broker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	if mq != nil {
		if err := mq.Close(); err != nil {
			log.Errorw("failed to close mqtt broker", "err", err)
		}
	}

	// allow in-flight requests to complete
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
