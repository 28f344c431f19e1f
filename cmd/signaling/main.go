package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/courtside/stream-relay/internal/config"
	"github.com/courtside/stream-relay/internal/signaling"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

func main() {
	_ = godotenv.Load()

	cfgManager, err := config.NewManager("conf")
	if err != nil {
		log.Fatalf("can not load configuration, error - %v", err)
	}
	cfg := cfgManager.Get()

	setupLogger(cfg.Server.LogLevel)

	app := fiber.New(fiber.Config{
		BodyLimit: 4 * 1024 * 1024,
	})

	server, err := signaling.NewServer(cfgManager, app)
	if err != nil {
		log.Fatalf("can not start signaling server, error - %v", err)
	}
	defer server.Close()

	server.SetupRoutes()

	cfgManager.SetUpdateCallback(func(newCfg *config.AppConfig) {
		setupLogger(newCfg.Server.LogLevel)
	})

	slog.Info("signaling server listening", "port", cfg.Server.Port)
	log.Fatal(app.Listen(":" + strconv.Itoa(cfg.Server.Port)))
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	})))
}
