package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/meridian-hr/be-pf-requests/internal/client"
	"github.com/meridian-hr/be-pf-requests/internal/config"
	"github.com/meridian-hr/be-pf-requests/internal/database"
	"github.com/meridian-hr/be-pf-requests/internal/handler"
	"github.com/meridian-hr/be-pf-requests/internal/middleware"
	"github.com/meridian-hr/be-pf-requests/internal/repository"
	"github.com/meridian-hr/be-pf-requests/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting PF Requests Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	dbCfg := database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	}

	if err := database.Migrate(dbCfg, cfg.Database.MigrationsPath, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	db, err := database.New(ctx, dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Repositories
	requestRepo := repository.NewRequestRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	// Notification publisher (optional)
	var notifier service.Notifier
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name(cfg.Service.Name))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer nc.Drain()

		publisher, err := client.NewNotificationPublisher(nc, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create notification publisher")
		}
		notifier = publisher
		log.Info().Str("url", cfg.NATS.URL).Msg("NATS notification publisher initialized")
	} else {
		log.Warn().Msg("NATS_URL not set; notifications disabled")
	}

	// Services
	lifecycleService := service.NewLifecycleService(requestRepo, historyRepo, notifier, log)

	// HTTP routes
	httpHandler := handler.NewHTTPHandler(lifecycleService, log)
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/api/v1/requests", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListRequests(w, r)
		case http.MethodPost:
			httpHandler.CreateRequest(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("GET /api/v1/requests/get", httpHandler.GetRequest)
	mux.HandleFunc("GET /api/v1/requests/history", httpHandler.GetHistory)
	mux.HandleFunc("GET /api/v1/requests/access", httpHandler.GetAccess)
	mux.HandleFunc("POST /api/v1/requests/mark-ready", httpHandler.MarkReady)
	mux.HandleFunc("POST /api/v1/requests/mark-incomplete", httpHandler.MarkIncomplete)
	mux.HandleFunc("POST /api/v1/requests/move-to-review", httpHandler.MoveToReview)
	mux.HandleFunc("POST /api/v1/requests/decide", httpHandler.Decide)
	mux.HandleFunc("POST /api/v1/requests/release", httpHandler.Release)
	mux.HandleFunc("POST /api/v1/requests/cancel", httpHandler.Cancel)
	mux.HandleFunc("POST /api/v1/requests/resubmit", httpHandler.Resubmit)

	// Middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(log)(h)
	h = middleware.Recovery(log)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(cfg.Server.RequestTimeout)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Logger()

	if cfg.Service.Environment == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	return logger
}
