// Command mobile-agent runs the device-side Agent: three transport
// listeners, the command router and its built-in handler families, the
// capability resolver, the plugin registry, and the performance session
// engine.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/mobile-agent/pkg/agent"
	"github.com/codeready-toolchain/mobile-agent/pkg/config"
	"github.com/codeready-toolchain/mobile-agent/pkg/handlers"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	deviceInfo := handlers.DeviceInfo{
		Model:        getEnv("DEVICE_MODEL", "generic"),
		Brand:        getEnv("DEVICE_BRAND", "unknown"),
		SDK:          getEnvInt("DEVICE_SDK", 0),
		ScreenWidth:  getEnvInt("DEVICE_SCREEN_WIDTH", 1080),
		ScreenHeight: getEnvInt("DEVICE_SCREEN_HEIGHT", 1920),
		Privileged:   false,
	}

	a := agent.New(cfg, deviceInfo)

	slog.Info("mobile-agent starting", "control_addr", cfg.ControlAddr())
	if err := a.Start(ctx); err != nil {
		log.Fatalf("agent stopped with error: %v", err)
	}
	slog.Info("mobile-agent stopped")
}
