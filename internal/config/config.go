package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"LensInventory/internal/platform"
)

const (
	configPathEnv      = "LENS_INVENTORY_CONFIG"
	logLevelEnv        = "LOG_LEVEL"
	portEnv            = "PORT"
	databaseDSNEnv     = "DATABASE_DSN"
	detectionURLEnv    = "DETECTION_ENDPOINT"
	detectionAPIKeyEnv = "DETECTION_API_KEY"
	serpAPIKeyEnv      = "SERPAPI_API_KEY"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Detection     DetectionConfig    `yaml:"detection"`
	VisualSearch  VisualSearchConfig `yaml:"visualSearch"`
	Enrichment    EnrichmentConfig   `yaml:"enrichment"`
	Notifications NotificationConfig `yaml:"notifications"`
	Refinement    RefinementConfig   `yaml:"refinement"`
	Rules         RulesConfig        `yaml:"rules"`
	Platforms     PlatformsConfig    `yaml:"platforms"`
}

// LoggingConfig selects the slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxImageBytes   int64         `yaml:"maxImageBytes"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN
// disables persistence.
type DatabaseConfig struct {
	DSN           string        `yaml:"dsn"`
	Retention     time.Duration `yaml:"retention"`
	PurgeInterval time.Duration `yaml:"purgeInterval"`
}

// DetectionConfig describes the object-detection service.
type DetectionConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	APIKey        string        `yaml:"apiKey"`
	MinConfidence float64       `yaml:"minConfidence"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxAttempts   int           `yaml:"maxAttempts"`
	RetryDelay    time.Duration `yaml:"retryDelay"`
}

// VisualSearchConfig describes the SerpAPI Google Lens integration.
type VisualSearchConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	APIKey            string        `yaml:"apiKey"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
	CacheTTL          time.Duration `yaml:"cacheTtl"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxAttempts       int           `yaml:"maxAttempts"`
	RetryDelay        time.Duration `yaml:"retryDelay"`
}

// EnrichmentConfig toggles product-page scraping of visual matches.
type EnrichmentConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// RefinementConfig bounds the audit and repair loop.
type RefinementConfig struct {
	MaxIterations  int     `yaml:"maxIterations"`
	ScoreThreshold float64 `yaml:"scoreThreshold"`
}

// RulesConfig points at an optional rule-book file.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// PlatformsConfig lists the platforms targeted when a request names none.
type PlatformsConfig struct {
	Default []string `yaml:"default"`
}

// Load reads .env and the YAML configuration (if present) and applies
// environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := defaultConfig()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalise()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(portEnv); v != "" {
		c.Server.Addr = ":" + v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(detectionURLEnv); v != "" {
		c.Detection.Endpoint = v
	}

	if v := os.Getenv(detectionAPIKeyEnv); v != "" {
		c.Detection.APIKey = v
	}

	if v := os.Getenv(serpAPIKeyEnv); v != "" {
		c.VisualSearch.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) normalise() {
	def := defaultConfig()

	if c.Refinement.MaxIterations < 1 {
		log.Printf("config: refinement.maxIterations %d is invalid, reverting to %d",
			c.Refinement.MaxIterations, def.Refinement.MaxIterations)
		c.Refinement.MaxIterations = def.Refinement.MaxIterations
	}
	if c.Refinement.ScoreThreshold <= 0 || c.Refinement.ScoreThreshold > 1 {
		c.Refinement.ScoreThreshold = def.Refinement.ScoreThreshold
	}

	platforms := make([]string, 0, len(c.Platforms.Default))
	for _, p := range c.Platforms.Default {
		if key := platform.Key(p); key != "" {
			platforms = append(platforms, key)
		}
	}
	if len(platforms) == 0 {
		platforms = def.Platforms.Default
	}
	c.Platforms.Default = platforms

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxImageBytes:   10 << 20,
		},
		Database: DatabaseConfig{
			DSN:           "",
			Retention:     30 * 24 * time.Hour,
			PurgeInterval: 24 * time.Hour,
		},
		Detection: DetectionConfig{
			Endpoint:      "",
			MinConfidence: 0.5,
			Timeout:       15 * time.Second,
			MaxAttempts:   3,
			RetryDelay:    500 * time.Millisecond,
		},
		VisualSearch: VisualSearchConfig{
			Endpoint:          "https://serpapi.com/search.json",
			RequestsPerMinute: 30,
			CacheTTL:          time.Hour,
			Timeout:           20 * time.Second,
			MaxAttempts:       2,
			RetryDelay:        time.Second,
		},
		Enrichment: EnrichmentConfig{Enabled: false, Timeout: 10 * time.Second},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
		Refinement: RefinementConfig{MaxIterations: 3, ScoreThreshold: 1.0},
		Platforms: PlatformsConfig{
			Default: []string{platform.Facebook, platform.Instagram, platform.Leboncoin},
		},
	}
}
