package main

import (
	"atlas-service/internal/catalog"
	"atlas-service/internal/config"
	"atlas-service/internal/database/mongo"
	"atlas-service/internal/database/redis"
	"atlas-service/internal/event"
	"atlas-service/internal/handlers"
	"atlas-service/internal/repository"
	"atlas-service/internal/services"
	"atlas-service/pkg/discovery"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
)

func setupLogging() (*os.File, error) {
	logDir := config.ServiceConfig.Server.LogDir
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.ServiceConfig

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Atlas Service is healthy")
	})

	// Static catalogs
	cat, err := catalog.Load(cfg.Server.DataDir)
	if err != nil {
		log.Fatalf("Failed to load catalogs: %v", err)
	}

	// Initialize repositories
	timelineRepo := repository.NewTimelineRepository(mongo.Mongo_Database, "timeline_progress")
	masteryRepo := repository.NewMasteryRepository(mongo.Mongo_Database, "node_mastery")
	engagementRepo := repository.NewEngagementRepository(mongo.Mongo_Database, "engagement_events")

	// Create database indexes
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := timelineRepo.InitializeIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create timeline indexes: %v", err)
	}
	if err := masteryRepo.InitializeIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create mastery indexes: %v", err)
	}
	if err := engagementRepo.InitializeIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create engagement indexes: %v", err)
	}
	cancel()

	// Initialize event publisher
	eventPublisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Printf("Warning: Failed to initialize event publisher: %v", err)
		eventPublisher = event.NewDisabledPublisher()
	}

	// Initialize services
	unlockCache := services.NewRedisUnlockCache(redis.Redis_Client, cfg.Timeline.UnlockCacheTTL)
	unlockService := services.NewUnlockService(timelineRepo, cat, eventPublisher, unlockCache, cfg.Timeline)
	masteryService := services.NewMasteryService(masteryRepo, engagementRepo, cat, eventPublisher, cfg.Mastery)
	tierProvider := services.NewRedisTierProvider(redis.Redis_Client)

	// Initialize and register handlers
	unlockHandler := handlers.NewUnlockHandler(unlockService)
	unlockHandler.RegisterRoutes(app)

	masteryHandler := handlers.NewMasteryHandler(masteryService, tierProvider)
	masteryHandler.RegisterRoutes(app)

	// Register with service discovery
	serviceRegistry, err := discovery.NewServiceRegistry(cfg)
	if err != nil {
		log.Printf("Warning: Failed to create service registry: %v", err)
	} else {
		discovery.ServiceDiscovery = serviceRegistry
		if err := serviceRegistry.Register(); err != nil {
			log.Printf("Warning: Failed to register with Consul: %v", err)
		}
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := app.Listen(fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if eventPublisher != nil {
		if err := eventPublisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}

	mongo.DisconnectMongo()
	redis.DisconnectRedis()

	if discovery.ServiceDiscovery != nil {
		if err := discovery.ServiceDiscovery.Deregister(); err != nil {
			log.Printf("Error deregistering from service discovery: %v", err)
		}
	}

	<-doneChan
	log.Println("Server shutdown complete")
}
