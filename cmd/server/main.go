package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/receiptwise/backend/config"
	httpDelivery "github.com/receiptwise/backend/internal/delivery/http"
	"github.com/receiptwise/backend/internal/infrastructure/objectstore"
	"github.com/receiptwise/backend/internal/infrastructure/openai"
	"github.com/receiptwise/backend/internal/infrastructure/postgres"
	"github.com/receiptwise/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Receiptwise Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Initialize infrastructure dependencies
	db, err := postgres.Connect(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	images, err := objectstore.New(
		cfg.Storage.Endpoint,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.Bucket,
		cfg.Storage.Region,
		cfg.Storage.UseSSL,
	)
	if err != nil {
		log.Fatalf("Failed to create object store client: %v", err)
	}
	if err := images.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("Failed to ensure bucket: %v", err)
	}

	visionClient := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" {
		visionClient.SetDebug(true)
		log.Printf("Vision client debug mode enabled")
	}
	log.Printf("Vision model: %s (%s)", visionClient.Model(), cfg.OpenAI.BaseURL)

	// Initialize usecase layer
	repo := postgres.NewReceiptRepo(db)
	receiptService := usecase.NewReceiptService(repo, images)
	parseService := usecase.NewParseService(repo, repo, visionClient, images)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(receiptService, parseService)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
