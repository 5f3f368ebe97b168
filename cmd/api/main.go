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
	"github.com/rs/zerolog"

	"github.com/yikao-labs/shenlun-api/internal/config"
	"github.com/yikao-labs/shenlun-api/internal/handler"
	"github.com/yikao-labs/shenlun-api/internal/middleware"
	"github.com/yikao-labs/shenlun-api/internal/router"
	"github.com/yikao-labs/shenlun-api/internal/service"
	"github.com/yikao-labs/shenlun-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	generator, err := buildGenerator(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create model generator: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	gradeService := service.NewGradeService(generator, service.Normalizer{RequireTopic: cfg.RequireTopic}, validate, logger)
	gradeHandler := handler.NewGradeHandler(gradeService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		GradeHandler: gradeHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildGenerator(cfg config.Config, logger zerolog.Logger) (ai.Generator, error) {
	if cfg.AIProvider == "openai" {
		return ai.NewOpenAIGenerator(ai.OpenAIConfig{
			APIKey:          cfg.OpenAIAPIKey,
			BaseURL:         cfg.OpenAIBaseURL,
			TextModel:       cfg.TextModel,
			MultimodalModel: cfg.MultimodalModel,
			Temperature:     0.2,
			Logger:          logger,
		})
	}

	return ai.NewDashScopeGenerator(ai.DashScopeConfig{
		APIKey:          cfg.DashScopeAPIKey,
		TextModel:       cfg.TextModel,
		MultimodalModel: cfg.MultimodalModel,
		Logger:          logger,
	})
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
