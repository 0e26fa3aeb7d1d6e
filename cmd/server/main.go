/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the school fee engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env overlay (if present), parse command-line flags
  2. Initialize SQLite store
  3. Create API handler and the dues summary refresher
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080)
  -db       SQLite database path (default: school.db)
            Use ":memory:" for an in-memory database
  -refresh  Dues summary refresh interval (default: 15m, 0 disables)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the summary refresher
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/school.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

ENVIRONMENT:
  PORT, DB_PATH and SUMMARY_REFRESH override the flag defaults; a .env
  file in the working directory is loaded first.

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
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
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/schoolworks/fee-engine/api"
	"github.com/schoolworks/fee-engine/store/sqlite"
)

func main() {
	// .env is optional; flags beat environment, environment beats defaults.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envString("DB_PATH", "school.db"), "SQLite database path")
	refresh := flag.Duration("refresh", envDuration("SUMMARY_REFRESH", 15*time.Minute), "dues summary refresh interval (0 disables)")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler and the background summary refresher
	handler := api.NewHandler(store)
	refresher := api.NewSummaryRefresher(handler)
	if *refresh > 0 {
		refresher.RefreshInterval = *refresh
	} else {
		refresher.Enabled = false
	}
	refresher.Start()
	defer refresher.Stop()

	// Create router
	router := api.NewRouter(handler, refresher)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
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

	log.Println("Server stopped")
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
