package main

import (
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/taskpilot/chatbot/internal/audit"
	"github.com/taskpilot/chatbot/internal/classifier"
	"github.com/taskpilot/chatbot/internal/directory"
	"github.com/taskpilot/chatbot/internal/dispatcher"
	"github.com/taskpilot/chatbot/internal/emitter"
	"github.com/taskpilot/chatbot/internal/gateway"
	"github.com/taskpilot/chatbot/internal/guard"
	"github.com/taskpilot/chatbot/internal/session"
	"github.com/taskpilot/chatbot/pkg/config"
	"go.uber.org/zap"
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

	// Initialize the account directory
	var dir directory.Directory
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory directory")
		dir = directory.NewMemoryDirectory()
	} else {
		logger.Info("Using PostgreSQL directory")
		dbConfig := directory.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		dir, err = directory.NewPostgresDirectory(dbConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize directory", zap.Error(err))
		}
	}
	defer dir.Close()

	// Initialize pipeline components
	sessions := session.NewResolver(dir, logger)
	clf := classifier.NewGPTClassifier(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		cfg.OpenAI.Timeout,
		cfg.Workflows,
		logger,
	)
	grd := guard.New(cfg.Workflows)
	signer := dispatcher.NewTokenSigner(cfg.Backend.SigningKey, cfg.Backend.TokenTTL)
	disp := dispatcher.NewBackend(cfg.Backend.BaseURL, cfg.Backend.Namespace, signer, cfg.Backend.Timeout, dir, logger)
	sink := audit.NewSink(dir, logger)

	// Initialize the chat transport
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}
	em := emitter.NewTelegramEmitter(api, logger)

	gw := gateway.New(dir, sessions, clf, grd, disp, em, sink, cfg.App.SignupURL, logger)
	defer sink.Flush()

	if cfg.Telegram.UseWebhook {
		mux := http.NewServeMux()
		mux.Handle(cfg.Telegram.WebhookPath, gw.WebhookHandler())
		logger.Info("Listening for webhook updates",
			zap.String("addr", cfg.Telegram.WebhookListen),
			zap.String("path", cfg.Telegram.WebhookPath))
		if err := http.ListenAndServe(cfg.Telegram.WebhookListen, mux); err != nil {
			logger.Fatal("Webhook server error", zap.Error(err))
		}
		return
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	logger.Info("Listening for updates via long polling")
	gw.Run(api.GetUpdatesChan(u))
}
