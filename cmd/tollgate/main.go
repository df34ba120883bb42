package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/tollgate/internal/app"
	"github.com/dropDatabas3/tollgate/internal/config"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v (using process environment)", err)
	}

	var cfgPath string
	flag.StringVar(&cfgPath, "config", os.Getenv("CONFIG_PATH"), "ruta al config YAML (env CONFIG_PATH)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "tollgate",
		NodeID:      cfg.App.NodeID,
	})
	defer logger.Sync()
	lg := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		lg.Fatal("startup failed", logger.Err(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			lg.Warn("close failed", logger.Err(err))
		}
	}()

	if err := a.Run(ctx); err != nil {
		lg.Error("server stopped", logger.Err(err))
		return
	}
	lg.Info("bye")
}
