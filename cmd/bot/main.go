package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/postbot/internal/bot"
	"github.com/xaenox/postbot/internal/flow"
	"github.com/xaenox/postbot/internal/normalize"
	"github.com/xaenox/postbot/internal/provider"
	"github.com/xaenox/postbot/internal/session"
	"github.com/xaenox/postbot/internal/storage"
	"github.com/xaenox/postbot/internal/thumbnail"
	"github.com/xaenox/postbot/pkg/config"
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
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize session store
	sessionTTL := time.Duration(cfg.Limits.SessionTTLMinutes) * time.Minute
	var sessions session.Store
	if cfg.Redis.URL != "" {
		sessions, err = session.NewRedisStore(cfg.Redis.URL, sessionTTL)
		if err != nil {
			logger.Warn("Redis unavailable, falling back to in-memory sessions", zap.Error(err))
			sessions = session.NewMemoryStore()
		} else {
			logger.Info("Using Redis session store")
		}
	} else {
		logger.Info("Using in-memory session store")
		sessions = session.NewMemoryStore()
	}
	defer sessions.Close()

	// Initialize content providers
	fetchTimeout := time.Duration(cfg.Providers.FetchTimeoutSeconds) * time.Second
	registry := provider.NewRegistry(
		provider.NewTMDb(cfg.Providers.TMDbBaseURL, cfg.Providers.TMDbAPIKey, fetchTimeout, logger),
		provider.NewJikan(cfg.Providers.JikanBaseURL, cfg.Providers.MaxSearchResults, fetchTimeout, logger),
		provider.NewAniList(cfg.Providers.AniListURL, fetchTimeout, logger),
	)

	normalizer := normalize.New(normalize.Config{
		TMDbPosterBase:   cfg.Providers.TMDbPosterBaseURL,
		TMDbBackdropBase: cfg.Providers.TMDbBackdropBaseURL,
		MaxCandidates:    cfg.Providers.MaxSearchResults,
	})

	// Initialize thumbnail pipeline
	fonts := thumbnail.LoadFonts(cfg.Thumbnail.FontPath, logger)
	compositor := thumbnail.NewCompositor(thumbnail.NewImageFetcher(fetchTimeout), fonts, logger)

	quota := storage.NewQuotaPolicy(store, cfg.Limits.FreePostsPerDay, cfg.Limits.PremiumPostsPerDay)

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, store, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	machine := flow.NewMachine(
		registry,
		normalizer,
		sessions,
		store,
		quota,
		compositor,
		b,
		flow.Config{
			FetchTimeout:    fetchTimeout,
			InactivityBound: sessionTTL,
		},
		logger,
	)
	b.SetMachine(machine)

	// Start the bot
	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}
