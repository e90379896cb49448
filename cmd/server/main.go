package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ogurasousui/staffing-ledger/internal/adapters/http/handler"
	"github.com/ogurasousui/staffing-ledger/internal/adapters/http/router"
	"github.com/ogurasousui/staffing-ledger/internal/app"
	"github.com/ogurasousui/staffing-ledger/internal/platform/config"
	"github.com/ogurasousui/staffing-ledger/internal/platform/logger"
	"github.com/ogurasousui/staffing-ledger/internal/platform/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ledger, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer ledger.Close()

	gin.SetMode(gin.ReleaseMode)
	h := handler.New(handler.Services{
		Assignment: ledger.Assignment,
		Client:     ledger.Client,
		Employee:   ledger.Employee,
		Readiness:  ledger.Readiness(),
	})
	engine := router.Setup(h, log.Named("http"), router.Options{RequestTimeout: cfg.Server.RequestTimeout})

	srv := server.New(server.Options{
		GRPCAddr:  cfg.Server.ListenAddr,
		HTTPAddr:  cfg.Server.HTTPAddr,
		Handler:   engine,
		Readiness: ledger.Readiness(),
		Logger:    log.Named("server"),
	})

	log.Info("starting staffing ledger",
		zap.String("grpc_addr", cfg.Server.ListenAddr),
		zap.String("http_addr", cfg.Server.HTTPAddr),
		zap.String("timezone", cfg.Ledger.Location.String()),
	)

	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return err
	}
	return nil
}
