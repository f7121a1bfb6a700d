package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/pathlight/pathlight-go-api/internal/config"
	"github.com/pathlight/pathlight-go-api/internal/database"
	"github.com/pathlight/pathlight-go-api/internal/handler"
	"github.com/pathlight/pathlight-go-api/internal/middleware"
	"github.com/pathlight/pathlight-go-api/internal/models"
	"github.com/pathlight/pathlight-go-api/internal/repository"
	"github.com/pathlight/pathlight-go-api/internal/router"
	"github.com/pathlight/pathlight-go-api/internal/service"
	"github.com/pathlight/pathlight-go-api/pkg/ai"
	"github.com/pathlight/pathlight-go-api/pkg/chat"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Roadmap{}, &models.MilestoneProgress{}, &models.ChatSession{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSUrl != "" {
		natsConn, err = nats.Connect(cfg.NATSUrl, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	generator, err := buildGenerator(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create roadmap generator: %v", err)
	}

	chatClient, err := chat.NewClient(chat.Config{
		BaseURL: cfg.ChatRelayURL,
		APIKey:  cfg.ChatRelayAPIKey,
		Timeout: cfg.ChatTimeout,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("failed to create chat relay client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	roadmapRepo := repository.NewRoadmapRepository(db)
	sessionRepo := repository.NewChatSessionRepository(db)

	events := service.NewEventPublisher(redisClient, natsConn, cfg.EventChannelBase, logger)
	bridge := service.NewNavigationBridge(roadmapRepo, sessionRepo, chatClient, cfg.ChatPublicURL, events, logger)
	roadmapService := service.NewRoadmapService(roadmapRepo, generator, bridge, events, redisClient, cfg.RoadmapCacheTTL, validate, logger)

	roadmapHandler := handler.NewRoadmapHandler(roadmapService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		RoadmapHandler: roadmapHandler,
		JWTMiddleware:  middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildGenerator(cfg config.Config, logger zerolog.Logger) (ai.Generator, error) {
	switch cfg.AIProvider {
	case "anthropic":
		return ai.NewAnthropicGenerator(ai.AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AIModel,
		})
	default:
		return ai.NewOpenAIGenerator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.AIModel,
			Logger: logger,
		})
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
