package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from an optional
// YAML file; environment variables take precedence over file values.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	API      APIConfig      `yaml:"api"`
	Coach    CoachConfig    `yaml:"coach"`
	Telegram TelegramConfig `yaml:"telegram"`
	Backup   BackupConfig   `yaml:"backup"`
}

type ServerConfig struct {
	Port      string `yaml:"port"`
	PublicURL string `yaml:"public_url"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SessionConfig struct {
	Secret string `yaml:"secret"`
}

// APIConfig configures the simulated service boundary.
type APIConfig struct {
	LatencyMS int `yaml:"latency_ms"`
}

// CoachConfig configures the generative-AI coach. An empty key disables the
// remote call; the coach then always answers with its fallback payload.
type CoachConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// TelegramConfig configures the admin settlement bot. An empty token
// disables the bot.
type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	AdminChatID int64  `yaml:"admin_chat_id"`
}

type BackupConfig struct {
	Dir string `yaml:"dir"`
}

// Load builds the configuration: defaults, then the YAML file if given,
// then environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server:   ServerConfig{Port: "8080", PublicURL: "http://localhost:8080"},
		Database: DatabaseConfig{Path: "earnpulse.db"},
		Session:  SessionConfig{Secret: ""},
		API:      APIConfig{LatencyMS: 400},
		Coach: CoachConfig{
			Model:   "gemini-3-flash-preview",
			BaseURL: "https://generativelanguage.googleapis.com",
		},
		Backup: BackupConfig{Dir: "backups"},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	overrideFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		cfg.Server.PublicURL = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Session.Secret = v
	}
	if v := os.Getenv("API_LATENCY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.API.LatencyMS = ms
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Coach.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Coach.Model = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_ADMIN_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.AdminChatID = id
		}
	}
	if v := os.Getenv("BACKUP_DIR"); v != "" {
		cfg.Backup.Dir = v
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.API.LatencyMS < 0 {
		return fmt.Errorf("api latency cannot be negative")
	}
	return nil
}
