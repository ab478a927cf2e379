package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"land-grab/internal/api"
	"land-grab/internal/config"
	"land-grab/internal/game"
	"land-grab/internal/metrics"
	"land-grab/internal/room"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  LAND GRAB - ARENA SERVER")
	log.Println("🎮 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	serverCfg := appConfig.Server
	arenaCfg := appConfig.Arena
	matchCfg := appConfig.Match

	log.Printf("🎮 Config: %dx%d arena, %d TPS, step every %d ticks, %s matches, %d players per room",
		arenaCfg.Width, arenaCfg.Height, matchCfg.TickRate, matchCfg.MoveEvery, matchCfg.Duration, matchCfg.MaxPlayers)

	// Start event log
	events := game.NewEventLog(game.DefaultEventLogConfig())
	if err := events.Start(appConfig.Observability.EventLogPath); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
		events = nil
	} else {
		if p := appConfig.Observability.EventLogPath; p != "" {
			log.Printf("📝 Event log: %s", p)
		}
		metrics.RegisterEventLog(events.GetTotalCount, events.GetDroppedCount)
	}

	// Start debug server
	debugServer := api.StartDebugServer(appConfig.Observability)

	registry := room.NewRegistry(room.SettingsFromConfig(appConfig), room.WithEvents(events))
	server := api.NewServer(appConfig, registry)

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	if debugServer != nil {
		debugServer.Shutdown(ctx)
	}
	registry.Close()
	if events != nil {
		events.Stop()
	}
	log.Println("👋 Goodbye!")
}
