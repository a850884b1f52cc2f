/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the patrol roster engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load calendar/cost parameters (TOML, optional)
  3. Initialize SQLite store, seed the nature catalogue if empty
  4. Wire domain services (ledger, allocator, CPC queue)
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: roster.db)
           Use ":memory:" for an in-memory database
  -config  Optional TOML file with costs, holidays, shift reference date

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/roster.db"

  # Run with custom parameters
  ./server -config=./params.toml

SEE ALSO:
  - api/server.go: Router configuration
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

	"github.com/guardia/roster-engine/api"
	"github.com/guardia/roster-engine/calendar"
	"github.com/guardia/roster-engine/config"
	"github.com/guardia/roster-engine/cpc"
	"github.com/guardia/roster-engine/dispense"
	"github.com/guardia/roster-engine/ledger"
	"github.com/guardia/roster-engine/roster"
	"github.com/guardia/roster-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "roster.db", "SQLite database path")
	configPath := flag.String("config", "", "TOML parameter file (optional)")
	flag.Parse()

	// Parameters
	params := config.DefaultParams()
	if *configPath != "" {
		var err error
		params, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := seedNatures(ctx, store); err != nil {
		log.Fatalf("Failed to seed nature catalogue: %v", err)
	}

	// Wire domain services
	settings := config.NewSettings(params.Campaign)
	oracle := calendar.NewOracle(params, store)
	users := roster.NewService(store)
	led := ledger.NewService(store, store, store, settings)
	alloc := dispense.NewAllocator(store, store, led, oracle, settings)
	queue := cpc.NewQueue(store, settings, led, alloc)

	// Cross-package wiring: audit rejection cascades through the
	// allocator; CPC grants consult the queue.
	led.SetCanceller(alloc)
	alloc.SetTurnChecker(queue)

	handler := api.NewHandler(users, led, alloc, queue, oracle, settings, store, store)
	router := api.NewRouter(handler)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// seedNatures inserts the default incident catalogue on first run.
func seedNatures(ctx context.Context, store *sqlite.Store) error {
	existing, err := store.ListNatures(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, n := range ledger.DefaultNatures() {
		if err := store.InsertNature(ctx, n); err != nil {
			return err
		}
	}
	return nil
}
