package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"datalyst/adapters/llm"
	"datalyst/adapters/postgres"
	"datalyst/app"
	"datalyst/internal/config"
	"datalyst/ports"
	"datalyst/ui"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := postgres.Connect(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}

	var client ports.LLMClient
	if cfg.LLM.APIKey != "" {
		client, err = llm.NewClient(cfg.LLM)
		if err != nil {
			log.Fatalf("Failed to create LLM client: %v", err)
		}
	} else {
		log.Println("No LLM API key configured, insight endpoints run in mock mode")
	}

	service := app.NewAnalysisService(
		cfg,
		postgres.NewDatasetRepository(db),
		postgres.NewAnalysisRepository(db),
		postgres.NewVisualizationRepository(db),
		nil, // chart rendering is an external collaborator
		client,
	)

	api := ui.NewApp(cfg, service)
	log.Printf("Starting data analysis API on :%s", cfg.Server.Port)
	if err := api.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
