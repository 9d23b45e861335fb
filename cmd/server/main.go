/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the license simulation engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load YAML settings, apply command-line flag overrides
  2. Initialize SQLite store
  3. Register Prometheus metrics
  4. Start the background run worker
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Settings file path (default: settings.yaml)
  -port    HTTP server port (overrides settings)
  -db      SQLite database path (overrides settings)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Drain the run worker queue
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/license-engine.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run with a settings file
  ./server -config="./settings.yaml"

SEE ALSO:
  - api/server.go: Router configuration
  - api/runner.go: Background run processing
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/license-engine/api"
	"github.com/warp/license-engine/config"
	"github.com/warp/license-engine/obs"
	"github.com/warp/license-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "settings.yaml", "settings file path")
	port := flag.Int("port", 0, "HTTP server port (overrides settings)")
	dbPath := flag.String("db", "", "SQLite database path (overrides settings)")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if *port != 0 {
		settings.Port = *port
	}
	if *dbPath != "" {
		settings.DBPath = *dbPath
	}

	// Initialize store
	store, err := sqlite.New(settings.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Metrics
	obs.Init()

	// Background run worker
	runner := api.NewRunner(store, 64)
	runner.Start()

	// Create router
	handler := api.NewHandler(store, runner)
	router := api.NewRouter(handler, settings.CORSOrigins)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", settings.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", settings.Port)
		log.Printf("API available at http://localhost:%d/api", settings.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Drain pending runs before closing the store.
	runner.Stop()

	log.Println("Server stopped")
}
