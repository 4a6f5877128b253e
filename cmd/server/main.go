package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relay-service/internal/api/routes"
	"relay-service/internal/auth"
	"relay-service/internal/config"
	"relay-service/internal/database"
	"relay-service/internal/services"
	"relay-service/internal/websocket"
	"relay-service/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logg := logger.New(cfg.Log.Level)
	logg.Info("Starting relay server")

	// Redis backs presence and rate limiting only; the relay runs
	// without it.
	var redisService *services.RedisService
	redisClient, err := database.NewRedisConnection(&cfg.Redis, logg)
	if err != nil {
		logg.Warn("Redis unavailable, presence and rate limiting disabled", "error", err)
	} else {
		defer redisClient.Close()
		redisService = services.NewRedisService(redisClient, logg)
	}

	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpirationTime)

	var presence websocket.Presence
	if redisService != nil {
		presence = redisService
	}
	hub := websocket.NewHub(presence, logg)
	go hub.Run()

	router := routes.NewRouter(hub, redisService, tokens)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Stop()

	if err := server.Shutdown(ctx); err != nil {
		logg.Error("Server forced to shutdown", "error", err)
	}

	logg.Info("Server stopped")
}
