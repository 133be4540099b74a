package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"task-manager/internal/config"
	"task-manager/internal/database"
	"task-manager/internal/logger"
	"task-manager/internal/ops"
	"task-manager/internal/routes"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// .env が無い環境 (コンテナ等) では環境変数のみを使う
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		logger.Errorf("Server stopped: %v", err)
		os.Exit(1)
	}
}

// run は ctx がキャンセルされるまで API サーバーと ops サーバーを動かします。
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.DB.Driver); err != nil {
		return err
	}

	api, opsSrv, err := newServers(db, cfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	serve := func(name string, srv *http.Server) {
		logger.Infof("%s server listening on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}
	go serve("API", api)
	if opsSrv != nil {
		go serve("Ops", opsSrv)
	}

	select {
	case <-ctx.Done():
		logger.Infof("Shutting down...")
	case err := <-errCh:
		return err
	}

	if err := ops.Shutdown(api, shutdownTimeout); err != nil {
		logger.Errorf("API server shutdown: %v", err)
	}
	if opsSrv != nil {
		if err := ops.Shutdown(opsSrv, shutdownTimeout); err != nil {
			logger.Errorf("Ops server shutdown: %v", err)
		}
	}
	return nil
}

// newServers は API サーバーと、ops.addr が設定されていれば ops サーバーを返します。
func newServers(db *sql.DB, cfg *config.Config) (*http.Server, *http.Server, error) {
	router, err := routes.SetupRouter(db, cfg)
	if err != nil {
		return nil, nil, err
	}
	api := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if cfg.Ops.Addr == "" {
		return api, nil, nil
	}
	return api, ops.NewServer(cfg.Ops.Addr, db), nil
}
