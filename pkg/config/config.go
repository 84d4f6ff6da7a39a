package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Thumbnail ThumbnailConfig `mapstructure:"thumbnail"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type ProvidersConfig struct {
	TMDbAPIKey          string `mapstructure:"tmdb_api_key"`
	TMDbBaseURL         string `mapstructure:"tmdb_base_url"`
	TMDbPosterBaseURL   string `mapstructure:"tmdb_poster_base_url"`
	TMDbBackdropBaseURL string `mapstructure:"tmdb_backdrop_base_url"`
	JikanBaseURL        string `mapstructure:"jikan_base_url"`
	AniListURL          string `mapstructure:"anilist_url"`
	FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds"`
	MaxSearchResults    int    `mapstructure:"max_search_results"`
}

type LimitsConfig struct {
	FreePostsPerDay    int `mapstructure:"free_posts_per_day"`
	PremiumPostsPerDay int `mapstructure:"premium_posts_per_day"`
	SessionTTLMinutes  int `mapstructure:"session_ttl_minutes"`
}

type ThumbnailConfig struct {
	FontPath string `mapstructure:"font_path"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("providers.tmdb_base_url", "https://api.themoviedb.org/3")
	v.SetDefault("providers.tmdb_poster_base_url", "https://image.tmdb.org/t/p/w500")
	v.SetDefault("providers.tmdb_backdrop_base_url", "https://image.tmdb.org/t/p/original")
	v.SetDefault("providers.jikan_base_url", "https://api.jikan.moe/v4")
	v.SetDefault("providers.anilist_url", "https://graphql.anilist.co")
	v.SetDefault("providers.fetch_timeout_seconds", 10)
	v.SetDefault("providers.max_search_results", 5)
	v.SetDefault("limits.free_posts_per_day", 10)
	v.SetDefault("limits.premium_posts_per_day", 999)
	v.SetDefault("limits.session_ttl_minutes", 10)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("TMDB_API_KEY"); apiKey != "" {
		config.Providers.TMDbAPIKey = apiKey
	}

	if redisURL := v.GetString("REDIS_URL"); redisURL != "" {
		config.Redis.URL = redisURL
	}

	return &config, nil
}
