package main

import (
	"context"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rigwild/raspberry-instock-check/internal/bot"
	"github.com/rigwild/raspberry-instock-check/internal/config"
	"github.com/rigwild/raspberry-instock-check/internal/httpapi"
	"github.com/rigwild/raspberry-instock-check/internal/parser"
	"github.com/rigwild/raspberry-instock-check/internal/repository/sqlite"
	"github.com/rigwild/raspberry-instock-check/internal/services/backoff"
	"github.com/rigwild/raspberry-instock-check/internal/services/checker"
	"github.com/rigwild/raspberry-instock-check/internal/services/diff"
	"github.com/rigwild/raspberry-instock-check/internal/services/lifecycle"
	"github.com/rigwild/raspberry-instock-check/internal/services/validator"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

const shutdownTimeout = 10 * time.Second

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)
	if cfg.Env != envLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	// Diagnostics are optional: without storage, mismatches are only logged.
	var (
		recorder validator.MismatchRecorder
		lister   bot.MismatchLister
	)
	repo, err := sqlite.NewRepository(ctx, logger, cfg.StoragePath, cfg.MismatchKeep)
	if err != nil {
		logger.ErrorContext(ctx, "Diagnostics storage unavailable", "path", cfg.StoragePath, "error", err)
	} else {
		defer repo.Close()
		recorder, lister = repo, repo

		// A lowered RIC_MISMATCH_KEEP takes effect before the first save.
		if removed, trimErr := repo.TrimMismatches(ctx, 0); trimErr != nil {
			logger.ErrorContext(ctx, "Failed to trim stored mismatches", "error", trimErr)
		} else if removed > 0 {
			logger.InfoContext(ctx, "Trimmed stored mismatches", "removed", removed)
		}
	}

	filter := diff.NewFilter(cfg.Check.Models)
	views := checker.NewViewStore()

	stockBot, err := bot.NewBot(logger, cfg.Tg.Token, cfg.Tg.Timeout, bot.Options{
		ChatID:      cfg.Tg.ChatID,
		AdminChatID: cfg.Tg.AdminChatID,
		Models:      filter.Tokens(),
		Views:       views,
		Mismatches:  lister,
	})
	if err != nil {
		log.Fatalf("Failed to init bot: %v", err)
	}

	//nolint:gosec // jitter and skip counts, not security sensitive
	rnd := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(os.Getpid())))

	fetcher := parser.NewParser(logger, cfg.Source.URL, cfg.Source.Format, cfg.Source.Timeout)
	stockChecker := checker.NewChecker(
		logger,
		validator.NewValidator(logger, fetcher, recorder, cfg.Check.ValidationDelay),
		diff.NewEngine(filter),
		lifecycle.NewTracker(
			logger,
			stockBot,
			lifecycle.Renderer{SiteURL: cfg.Source.SiteURL, DirectLink: cfg.Check.DirectLink},
			cfg.Retention,
			nil,
		),
		backoff.NewController(logger, backoff.Settings{
			Window:    cfg.Backoff.Window,
			Threshold: cfg.Backoff.Threshold,
			MinSkip:   cfg.Backoff.MinSkip,
			MaxSkip:   cfg.Backoff.MaxSkip,
		}, rnd, nil),
		stockBot,
		views,
		checker.Settings{Interval: cfg.Check.Interval, Jitter: cfg.Check.Jitter},
		rnd,
	)

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	// Start the bot in a goroutine to allow main to listen for signals.
	go stockBot.Start()

	stockChecker.Announce(ctx, filter)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		stockChecker.Run(ctx)
	}()

	var apiServer *httpapi.Server
	if cfg.API.Enabled {
		router := httpapi.NewRouter(logger, views, httpapi.Options{
			RatePerMinute: cfg.API.RateLimit,
			TrustProxy:    cfg.API.TrustProxy,
		})
		apiServer = httpapi.NewServer(logger, cfg.API.Addr, router)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.ErrorContext(ctx, "API server failed", "error", err)
				stop()
			}
		}()
	}

	// Wait for the context to be canceled (e.g., by Ctrl+C).
	<-ctx.Done()

	// Log that a shutdown signal has been received.
	logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to stop API server", "error", err)
		}
		cancel()
	}

	// Stop the bot gracefully.
	stockBot.Stop()

	// The in-flight cycle observes the canceled context.
	wg.Wait()

	// Log graceful shutdown completion.
	logger.InfoContext(ctx, "Application stopped gracefully.")
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelWarn,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelError,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		log.Error(
			"The env parameter was not specified	 or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
