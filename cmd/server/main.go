/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the workforce core server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Initialize lease store (Redis when -redis is set, in-memory otherwise)
  4. Wire dispatcher and domain services
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: workforce.db)
           Use ":memory:" for in-memory database
  -redis   Redis address for the check-in debounce lease (default: none;
           falls back to the in-process lease store)
  -log     Log level: debug, info, warn, error (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Drain in-flight audit/notification deliveries
  4. Close database connection
  5. Exit

ENVIRONMENT:
  Flags read their defaults from PORT, DATABASE_PATH, REDIS_ADDR and
  LOG_LEVEL when set (a local .env file is honored).

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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/warp/workforce-core/api"
	"github.com/warp/workforce-core/attendance"
	"github.com/warp/workforce-core/calendar"
	"github.com/warp/workforce-core/dispatch"
	"github.com/warp/workforce-core/lease"
	"github.com/warp/workforce-core/leave"
	"github.com/warp/workforce-core/store/sqlite"
)

func main() {
	// A missing .env is fine; flags below still read the process env.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "workforce.db"), "SQLite database path")
	redisAddr := flag.String("redis", envStr("REDIS_ADDR", ""), "Redis address for the check-in lease")
	logLevel := flag.String("log", envStr("LOG_LEVEL", "info"), "Log level")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(lvl)
	}

	db, err := sqlite.Open(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer db.Close()

	var leases lease.Store
	if *redisAddr != "" {
		leases = lease.NewRedisStore(redis.NewClient(&redis.Options{Addr: *redisAddr}))
		log.WithField("addr", *redisAddr).Info("check-in lease backed by redis")
	} else {
		leases = lease.NewMemoryStore()
		log.Info("check-in lease backed by in-process store")
	}

	dispatcher := dispatch.New(log, &dispatch.LogAudit{Log: log}, &dispatch.LogNotifier{Log: log})

	calendars := calendar.NewService(db.Calendars)
	leaves := leave.NewService(db.Leave, dispatcher)
	attendances := attendance.NewService(db.Attendance, db.Employees, leases, dispatcher, log)

	handler := api.NewHandler(calendars, leaves, attendances, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}
	dispatcher.Wait()

	log.Info("server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}
