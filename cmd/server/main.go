// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/lumen-chat/lumen/internal/cache"
	"github.com/lumen-chat/lumen/internal/clock"
	"github.com/lumen-chat/lumen/internal/database/postgres"
	platformconfig "github.com/lumen-chat/lumen/internal/platform/config"
	"github.com/lumen-chat/lumen/storage"
	"github.com/lumen-chat/lumen/storage/handlers"
	storageProvider "github.com/lumen-chat/lumen/storage/provider"
	storageRepository "github.com/lumen-chat/lumen/storage/repository"
	"github.com/lumen-chat/lumen/storage/services"
)

func main() {
	cfg, err := platformconfig.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load platform config: %v", err)
	}

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database.Postgres)
	if err != nil {
		log.Fatalf("Failed to create postgres client: %v", err)
	}
	defer pgClient.Close()

	kv, err := cache.New(&cache.Config{
		Enabled: cfg.Cache.Enabled,
		Backend: cache.Type(cfg.Cache.Backend),
		Prefix:  cfg.Cache.Prefix,
		TTL:     cfg.Cache.TTL,
		Redis: cache.RedisConfig{
			Address:      cfg.Cache.Redis.Address,
			Password:     cfg.Cache.Redis.Password,
			Database:     cfg.Cache.Redis.Database,
			PoolSize:     cfg.Cache.Redis.PoolSize,
			MinIdleConns: cfg.Cache.Redis.MinIdleConns,
		},
	})
	if err != nil {
		log.Fatalf("Failed to create cache: %v", err)
	}
	defer kv.Close()

	blobProvider, err := storageProvider.NewS3Provider(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to create blob provider: %v", err)
	}

	clk := clock.System{}
	repo := storageRepository.NewPostgresRepository(pgClient)

	policyService := services.NewPolicyService(repo, &cfg.Storage, clk)
	reservationService := services.NewReservationService(repo, policyService, &cfg.Storage, clk)
	fileService := services.NewFileService(repo, blobProvider, kv, policyService, &cfg.Storage, clk)
	retentionService := services.NewRetentionService(repo, policyService, clk)
	sweepService := services.NewSweepService(repo, blobProvider, kv, clk)
	contentService := services.NewContentService(blobProvider, kv, cfg.Storage.ContentCacheTTL)
	uploadService := services.NewUploadService(policyService, reservationService, fileService)

	// The transform codec is an external collaborator; the engine only needs
	// the reservation-then-invoke contract. Deployments plug a real codec in
	// here.
	var transform services.Transform

	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.Storage.DefaultMaxMessageFilesBytes),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if len(c.Response().Body()) > 0 {
				return nil
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.WebDomain,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, OPTIONS",
	}))

	storage.RegisterRoutes(app, &storage.StorageHandlers{
		StorageHandler: handlers.NewStorageHandler(uploadService, fileService, contentService, transform),
		AdminHandler:   handlers.NewAdminHandler(policyService, retentionService, sweepService),
	}, cfg)

	sweeper := services.NewSweeper(sweepService, services.SweepOptions{
		BatchSize:  cfg.Storage.SweepBatchSize,
		MaxRuntime: cfg.Storage.SweepMaxRuntime,
	}, cfg.Storage.SweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := app.Shutdown(); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
