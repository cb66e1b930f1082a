package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"chunkabank-bot/internal/app"
	"chunkabank-bot/internal/config"
	"chunkabank-bot/internal/permissions"
	"chunkabank-bot/internal/services"
	"chunkabank-bot/pkg/ledgerclient"
	"chunkabank-bot/pkg/telegrambot"
)

func main() {
	// Setup logger
	logger := setupLogger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: ", err)
	}

	// Setup permission controller
	mappings, err := permissions.LoadMappings(cfg.Ledger.UserMappingPath)
	if err != nil {
		logger.Fatal("Failed to load user mappings: ", err)
	}
	permController := permissions.NewController(cfg.Telegram.AdminIDs, mappings, logger)

	// Initialize services
	ledgerClient := ledgerclient.NewClient(cfg.Ledger.URL, logger)
	ledgerService := services.NewLedgerService(ledgerClient, permController, logger)
	store, closeStore := setupBookmarkStore(cfg, logger)

	// Initialize bot
	bot, err := telegrambot.NewBot(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create bot: ", err)
	}

	application, err := app.New(cfg, bot, ledgerService, permController, store, logger)
	if err != nil {
		logger.Fatal("Failed to initialize bot: ", err)
	}

	var statusServer *app.StatusServer
	if cfg.Status.Addr != "" {
		statusServer = app.NewStatusServer(cfg.Status.Addr, application, logger)
		go statusServer.Start()
	}

	// Handle graceful shutdown
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	logger.Infof("Starting %s bot", cfg.Bot.Name)
	runErr := application.Run(context.Background(), signals)

	if statusServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := statusServer.Shutdown(ctx); err != nil {
			logger.Warnf("Failed to stop status endpoint: %v", err)
		}
		cancel()
	}

	closeStore()

	if runErr != nil {
		logger.Fatal("Bot stopped with error: ", runErr)
	}
}

// setupBookmarkStore picks the poll bookmark persistence and returns its cleanup
func setupBookmarkStore(cfg *config.Config, logger *logrus.Logger) (services.BookmarkStore, func()) {
	noop := func() {}

	switch {
	case cfg.Storage.RedisAddr != "":
		store := services.NewRedisBookmarkStore(cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			logger.Fatal("Failed to connect to Redis: ", err)
		}
		logger.Infof("Persisting bookmarks in Redis at %s", cfg.Storage.RedisAddr)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warnf("Failed to close Redis client: %v", err)
			}
		}
	case cfg.Storage.BookmarksPath != "":
		logger.Infof("Persisting bookmarks in %s", cfg.Storage.BookmarksPath)
		return services.NewFileBookmarkStore(cfg.Storage.BookmarksPath, logger), noop
	default:
		logger.Info("Bookmarks are kept in memory only")
		return nil, noop
	}
}

// setupLogger sets up the logger
func setupLogger() *logrus.Logger {
	logger := logrus.New()

	// Set log level from environment variable or default to info
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.Printf("Invalid log level %s, defaulting to info", logLevel)
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)

	// Set formatter
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return logger
}
