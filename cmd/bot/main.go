package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xaenox/shop-bot/internal/bot"
	"github.com/xaenox/shop-bot/internal/conversation"
	"github.com/xaenox/shop-bot/internal/locales"
	"github.com/xaenox/shop-bot/internal/metrics"
	"github.com/xaenox/shop-bot/internal/moderation"
	"github.com/xaenox/shop-bot/internal/photos"
	"github.com/xaenox/shop-bot/internal/reporting"
	"github.com/xaenox/shop-bot/internal/storage"
	"github.com/xaenox/shop-bot/pkg/config"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("Failed to load config", zap.Error(err), zap.String("path", *configPath))
	}

	// Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("Failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid config", zap.Error(err))
	}

	if err := reporting.Initialize(reporting.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     version,
		SampleRate:  cfg.Sentry.SampleRate,
	}); err != nil {
		logger.Warn("Sentry disabled", zap.Error(err))
	}
	defer reporting.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := storage.New(ctx, storage.DatabaseConfig{
		Driver:      cfg.Database.Driver,
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		DBName:      cfg.Database.DBName,
		SSLMode:     cfg.Database.SSLMode,
		Path:        cfg.Database.Path,
		DSN:         cfg.Database.DSN,
		UseInMemory: cfg.Database.UseInMemory,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	if err := store.PromoteAdmins(ctx, cfg.Telegram.AdminIDs); err != nil {
		logger.Error("Failed to promote configured admins", zap.Error(err))
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}
	api.Debug = cfg.Telegram.Debug
	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))

	httpClient := &http.Client{Timeout: 30 * time.Second}
	blob, err := newBlob(ctx, cfg.Photos, httpClient)
	if err != nil {
		logger.Fatal("Failed to initialize photo store", zap.Error(err), zap.String("backend", cfg.Photos.Backend))
	}
	library := photos.NewLibrary(blob, photos.NewTelegramFetcher(api, httpClient), logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	if addr := cfg.Metrics.ListenAddr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, registry, logger); err != nil {
				logger.Error("Metrics server stopped", zap.Error(err))
			}
		}()
	}

	b := bot.New(api, store, library, logger,
		bot.WithConfig(bot.Config{
			AdminIDs:             cfg.Telegram.AdminIDs,
			MaxConcurrentUpdates: cfg.Bot.MaxConcurrentUpdates,
			FeedbackPageSize:     cfg.Bot.FeedbackPageSize,
			Conversation: conversation.Config{
				PromptTimeout:            cfg.Conversation.PromptTimeout,
				PhotoTimeout:             cfg.Conversation.PhotoTimeout,
				PhotoContinuationTimeout: cfg.Conversation.PhotoContinuationTimeout,
			},
		}),
		bot.WithMessages(locales.New(cfg.Bot.Language)),
		bot.WithModerator(newModerator(cfg.Moderation, logger)),
		bot.WithMetrics(m),
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Telegram.PollTimeout
	updates := api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	// Start the bot
	if err := b.Run(ctx, updates); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
	logger.Info("Bot stopped")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}

func newBlob(ctx context.Context, cfg config.PhotosConfig, client *http.Client) (photos.Blob, error) {
	switch cfg.Backend {
	case "s3":
		return photos.NewS3Blob(ctx, photos.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
	case "cloudinary":
		return photos.NewCloudinaryBlob(cfg.Cloudinary.URL, cfg.Cloudinary.Folder, client)
	default:
		return photos.NewFSBlob(afero.NewOsFs(), cfg.Dir), nil
	}
}

func newModerator(cfg config.ModerationConfig, logger *zap.Logger) moderation.Moderator {
	if !cfg.Enabled {
		return moderation.Nop{}
	}
	keywords := moderation.NewKeywordModerator(cfg.BannedWords)
	if cfg.APIKey == "" {
		logger.Info("Using keyword moderation")
		return keywords
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	logger.Info("Using OpenAI moderation", zap.String("model", cfg.Model))
	return moderation.NewOpenAIModerator(openai.NewClientWithConfig(clientConfig), cfg.Model, keywords, logger)
}
