package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Photos       PhotosConfig       `mapstructure:"photos"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Bot          BotConfig          `mapstructure:"bot"`
	Moderation   ModerationConfig   `mapstructure:"moderation"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Sentry       SentryConfig       `mapstructure:"sentry"`
	Log          LogConfig          `mapstructure:"log"`
}

type TelegramConfig struct {
	Token       string  `mapstructure:"token"`
	AdminIDs    []int64 `mapstructure:"admin_ids"`
	PollTimeout int     `mapstructure:"poll_timeout"`
	Debug       bool    `mapstructure:"debug"`
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"`
	URL         string `mapstructure:"url"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	Path        string `mapstructure:"path"`
	DSN         string `mapstructure:"dsn"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type PhotosConfig struct {
	Backend    string           `mapstructure:"backend"`
	Dir        string           `mapstructure:"dir"`
	S3         S3Config         `mapstructure:"s3"`
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

type CloudinaryConfig struct {
	URL    string `mapstructure:"url"`
	Folder string `mapstructure:"folder"`
}

type ConversationConfig struct {
	PromptTimeout            time.Duration `mapstructure:"prompt_timeout"`
	PhotoTimeout             time.Duration `mapstructure:"photo_timeout"`
	PhotoContinuationTimeout time.Duration `mapstructure:"photo_continuation_timeout"`
}

type BotConfig struct {
	MaxConcurrentUpdates int    `mapstructure:"max_concurrent_updates"`
	Language             string `mapstructure:"language"`
	FeedbackPageSize     int    `mapstructure:"feedback_page_size"`
}

type ModerationConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	APIKey      string   `mapstructure:"api_key"`
	BaseURL     string   `mapstructure:"base_url"`
	Model       string   `mapstructure:"model"`
	BannedWords []string `mapstructure:"banned_words"`
}

type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

type SentryConfig struct {
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

var defaultPorts = map[string]int{"postgres": 5432, "mysql": 3306}

// parseDatabaseURL understands postgres://, mysql:// and sqlite:// URLs.
func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	driver := strings.ToLower(u.Scheme)
	switch driver {
	case "postgresql":
		driver = "postgres"
	case "file":
		driver = "sqlite"
	}

	if driver == "sqlite" {
		path := u.Opaque
		if path == "" {
			path = u.Host + u.Path
		}
		return DatabaseConfig{Driver: driver, Path: path}, nil
	}

	port, ok := defaultPorts[driver]
	if !ok {
		return DatabaseConfig{}, fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q", p)
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}
	password, _ := u.User.Password()

	return DatabaseConfig{
		Driver:   driver,
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_ids", []int64{})
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("telegram.debug", false)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "shop")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "shop.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.use_in_memory", false)

	v.SetDefault("photos.backend", "fs")
	v.SetDefault("photos.dir", "photos")
	v.SetDefault("photos.s3.endpoint", "")
	v.SetDefault("photos.s3.region", "auto")
	v.SetDefault("photos.s3.access_key_id", "")
	v.SetDefault("photos.s3.secret_access_key", "")
	v.SetDefault("photos.s3.bucket", "")
	v.SetDefault("photos.s3.prefix", "")
	v.SetDefault("photos.s3.use_path_style", false)
	v.SetDefault("photos.cloudinary.url", "")
	v.SetDefault("photos.cloudinary.folder", "shop")

	v.SetDefault("conversation.prompt_timeout", 180*time.Second)
	v.SetDefault("conversation.photo_timeout", 180*time.Second)
	v.SetDefault("conversation.photo_continuation_timeout", time.Second)

	v.SetDefault("bot.max_concurrent_updates", 10)
	v.SetDefault("bot.language", "en")
	v.SetDefault("bot.feedback_page_size", 3)

	v.SetDefault("moderation.enabled", false)
	v.SetDefault("moderation.api_key", "")
	v.SetDefault("moderation.base_url", "")
	v.SetDefault("moderation.model", "omni-moderation-latest")
	v.SetDefault("moderation.banned_words", []string{})

	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.sample_rate", 1.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// LoadConfig reads path (optional), then .env and the environment.
// SHOPBOT_SECTION_KEY overrides section.key; TELEGRAM_TOKEN, DATABASE_URL
// and OPENAI_API_KEY are honoured as well.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SHOPBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("telegram.token", "SHOPBOT_TELEGRAM_TOKEN", "TELEGRAM_TOKEN")
	_ = v.BindEnv("database.url", "SHOPBOT_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("moderation.api_key", "SHOPBOT_MODERATION_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("sentry.dsn", "SHOPBOT_SENTRY_DSN", "SENTRY_DSN")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if config.Database.URL != "" {
		dbConfig, err := parseDatabaseURL(config.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbConfig.URL = config.Database.URL
		dbConfig.UseInMemory = config.Database.UseInMemory
		config.Database = dbConfig
	}

	return &config, nil
}

// Validate reports the first setting the bot cannot start with.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram.token is required")
	}
	if !c.Database.UseInMemory {
		switch c.Database.Driver {
		case "postgres", "mysql", "sqlite":
		default:
			return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
		}
	}
	switch c.Photos.Backend {
	case "fs":
	case "s3":
		if c.Photos.S3.Bucket == "" {
			return errors.New("photos.s3.bucket is required for the s3 backend")
		}
	case "cloudinary":
		if c.Photos.Cloudinary.URL == "" {
			return errors.New("photos.cloudinary.url is required for the cloudinary backend")
		}
	default:
		return fmt.Errorf("unsupported photos.backend %q", c.Photos.Backend)
	}
	if c.Conversation.PromptTimeout <= 0 || c.Conversation.PhotoTimeout <= 0 || c.Conversation.PhotoContinuationTimeout <= 0 {
		return errors.New("conversation timeouts must be positive")
	}
	if c.Bot.MaxConcurrentUpdates <= 0 {
		return errors.New("bot.max_concurrent_updates must be positive")
	}
	if c.Bot.FeedbackPageSize <= 0 {
		return errors.New("bot.feedback_page_size must be positive")
	}
	return nil
}
