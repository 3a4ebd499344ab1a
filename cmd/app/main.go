package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"TradeForge/internal/di"
	"TradeForge/pkg/config"
	"TradeForge/pkg/server"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	configPath := flag.String("config", "config/config.yaml", "config file path")
	mode := flag.String("mode", server.ModeBacktest, "run mode: backtest or worker")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s mode=%s symbols=%v", cfg.Environment, *mode, cfg.Binance.Symbols)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(*mode); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
