package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vigiabot/vigia/internal/bot"
	"github.com/vigiabot/vigia/internal/classifier"
	"github.com/vigiabot/vigia/internal/pipeline"
	"github.com/vigiabot/vigia/internal/storage"
	"github.com/vigiabot/vigia/internal/web"
	"github.com/vigiabot/vigia/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(dbConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Telegram client
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal("Failed to create telegram client", zap.Error(err))
	}

	state := bot.NewConnectionState()

	// Select the message handler variant
	var handler bot.MessageHandler
	switch cfg.Bot.Mode {
	case config.ModeAssistant:
		logger.Info("Using assistant handler")
		handler = bot.NewAssistant(api, cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.Bot.SystemPrompt, store, logger)
	default:
		logger.Info("Using sentinel handler")
		clf := classifier.NewGPTClassifier(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.Model,
			cfg.OpenAI.MaxTokens,
			cfg.OpenAI.Temperature,
			cfg.Classifier.WindowSize,
			time.Duration(cfg.Classifier.TimeoutSeconds)*time.Second,
			logger,
		)
		notifier := bot.NewTelegramNotifier(api, cfg.Bot.MonitorChatID)
		handler = pipeline.New(store, clf, notifier, cfg.Classifier.WindowSize, logger)
	}

	b := bot.New(api, handler, state, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(ctx)
	})
	if cfg.Server.Enabled {
		srv := web.New(store, state, cfg.Server.Port, logger)
		g.Go(func() error {
			return srv.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}
