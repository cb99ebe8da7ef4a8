// Wallbed Studio - AI-assisted furniture design server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/oakline/wallbed-studio/internal/auth"
	"github.com/oakline/wallbed-studio/internal/chat"
	"github.com/oakline/wallbed-studio/internal/config"
	"github.com/oakline/wallbed-studio/internal/gemini"
	"github.com/oakline/wallbed-studio/internal/imageproxy"
	"github.com/oakline/wallbed-studio/internal/images"
	"github.com/oakline/wallbed-studio/internal/imagestore"
	"github.com/oakline/wallbed-studio/internal/middleware"
	"github.com/oakline/wallbed-studio/internal/store"
	"github.com/oakline/wallbed-studio/internal/wallbed"
	"github.com/oakline/wallbed-studio/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	imgStore, err := imagestore.New(cfg.ImageDir, "/images")
	if err != nil {
		slog.Error("Failed to initialize image store", "error", err)
		os.Exit(1)
	}

	// Initialize services.
	llm := gemini.New(cfg.GoogleAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
	imgGen := images.New(cfg.OpenAIAPIKey, cfg.OpenAIImageURL)
	sessions := auth.NewService(repo, cfg.SessionTTL, !cfg.IsDevelopment())
	chatService := chat.NewService(llm, imgGen, imgStore, repo)

	// Initialize handlers.
	authHandler := auth.NewHandler(sessions)
	chatHandler := chat.NewHandler(chatService)
	wallbedHandler := wallbed.NewHandler(imgGen, imgStore, repo)
	proxyHandler := imageproxy.NewHandler()

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(middleware.AccessGuard(sessions))

	// API routes.
	authHandler.RegisterRoutes(r)
	chatHandler.RegisterRoutes(r)
	wallbedHandler.RegisterRoutes(r)
	proxyHandler.RegisterRoutes(r)

	// Stored image copies.
	r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(cfg.ImageDir))))

	// Static page shell (catch-all).
	r.Handle("/*", web.PageHandler())

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // generation turns can take a while
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sweep expired sessions in the background.
	startSessionSweeper(ctx, repo)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// startSessionSweeper periodically removes expired login sessions.
func startSessionSweeper(ctx context.Context, repo store.Repository) {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := repo.DeleteExpiredSessions(ctx)
				if err != nil {
					slog.Error("Session sweep failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("Expired sessions removed", "count", deleted)
				}
			}
		}
	}()
}
