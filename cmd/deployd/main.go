package main

import (
	"log"
	"os"

	"quantship-deployment/internal/config"
	"quantship-deployment/internal/database"
	"quantship-deployment/internal/deploy"
	"quantship-deployment/internal/newrelic"
	"quantship-deployment/internal/server"
)

func init() {
	// Configure logging to output to stdout with timestamp and file information
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

func main() {
	log.Println("Starting quantship deployment service")

	// Load configuration
	cfg := config.Load()
	log.Println("Configuration loaded successfully")

	// The base spec describes the target; each deploy request supplies
	// the version to roll out.
	baseSpec, err := config.LoadSpec(cfg.SpecPath)
	if err != nil {
		log.Fatal("Failed to load deployment spec:", err)
	}

	// Initialize New Relic monitoring
	nrApp, err := newrelic.Initialize(cfg)
	if err != nil {
		log.Printf("Failed to initialize New Relic, continuing without monitoring: %v", err)
	} else {
		log.Println("New Relic initialized successfully")
	}

	// Initialize database
	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()
	log.Println("Database initialized successfully")

	orchestrator := deploy.NewDefault(".")

	// Create and start server
	srv := server.NewServer(cfg, db, baseSpec, orchestrator, nrApp)
	log.Printf("Server starting on port %s", cfg.Port)
	if err := srv.Start(); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
