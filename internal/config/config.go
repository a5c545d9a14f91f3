package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultModel         = "gpt-4o-mini"
	DefaultImageModel    = "dall-e-3"
	DefaultAudioModel    = "whisper-1"
	DefaultTimeoutSec    = 60
	DefaultBufSize       = 100
	DefaultTokenLimit    = 3500
	DefaultBotName       = "Bot"
	DefaultPrompt        = "你是一名AI助手，尽可能解决用户问题"
	DefaultGreetingMinMs = 10_000
	DefaultGreetingMaxMs = 11_000
)

type Config struct {
	Bot      BotConfig      `json:"bot"`
	Provider ProviderConfig `json:"provider"`
	Channels ChannelsConfig `json:"channels"`
	Greeting GreetingConfig `json:"greeting"`
	Store    StoreConfig    `json:"store"`
}

type BotConfig struct {
	Name                string   `json:"name"`
	TriggerKeyword      string   `json:"triggerKeyword,omitempty"` // private trigger keyword
	TriggerRule         string   `json:"triggerRule,omitempty"`    // custom trigger regex
	BlockWords          []string `json:"blockWords,omitempty"`
	ModelBlockWords     []string `json:"modelBlockWords,omitempty"`
	DisableGroupMessage bool     `json:"disableGroupMessage"`
	DefaultPrompt       string   `json:"defaultPrompt"`
	PersonaPath         string   `json:"personaPath"`
	MediaDir            string   `json:"mediaDir"`
}

type ProviderConfig struct {
	APIKey     string `json:"apiKey"`
	BaseURL    string `json:"baseUrl,omitempty"`
	Model      string `json:"model"`
	ImageModel string `json:"imageModel"`
	AudioModel string `json:"audioModel"`
	TimeoutSec int    `json:"timeoutSec"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
	Proxy     string   `json:"proxy,omitempty"`
}

type GreetingConfig struct {
	MinDelayMs int64    `json:"minDelayMs"`
	MaxDelayMs int64    `json:"maxDelayMs"`
	Sweeps     []string `json:"sweeps,omitempty"` // cron expressions that re-arm all known conversations
}

type StoreConfig struct {
	Path       string `json:"path"`
	TokenLimit int    `json:"tokenLimit"`
}

func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Name:          DefaultBotName,
			DefaultPrompt: DefaultPrompt,
			PersonaPath:   filepath.Join(ConfigDir(), "persona.json"),
			MediaDir:      filepath.Join(ConfigDir(), "media"),
		},
		Provider: ProviderConfig{
			Model:      DefaultModel,
			ImageModel: DefaultImageModel,
			AudioModel: DefaultAudioModel,
			TimeoutSec: DefaultTimeoutSec,
		},
		Channels: ChannelsConfig{},
		Greeting: GreetingConfig{
			MinDelayMs: DefaultGreetingMinMs,
			MaxDelayMs: DefaultGreetingMaxMs,
		},
		Store: StoreConfig{
			Path:       filepath.Join(ConfigDir(), "data", "history.json"),
			TokenLimit: DefaultTokenLimit,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".chatpal")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if key := os.Getenv("CHATPAL_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("CHATPAL_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if token := os.Getenv("CHATPAL_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if name := os.Getenv("CHATPAL_BOT_NAME"); name != "" {
		cfg.Bot.Name = name
	}
	if kw := os.Getenv("CHATPAL_TRIGGER_KEYWORD"); kw != "" {
		cfg.Bot.TriggerKeyword = kw
	}
	if disabled := os.Getenv("CHATPAL_DISABLE_GROUP"); disabled != "" {
		if parsed, err := strconv.ParseBool(disabled); err == nil {
			cfg.Bot.DisableGroupMessage = parsed
		}
	}

	if cfg.Bot.Name == "" {
		cfg.Bot.Name = DefaultBotName
	}
	if cfg.Bot.DefaultPrompt == "" {
		cfg.Bot.DefaultPrompt = DefaultPrompt
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultModel
	}
	if cfg.Provider.ImageModel == "" {
		cfg.Provider.ImageModel = DefaultImageModel
	}
	if cfg.Provider.AudioModel == "" {
		cfg.Provider.AudioModel = DefaultAudioModel
	}
	if cfg.Provider.TimeoutSec <= 0 {
		cfg.Provider.TimeoutSec = DefaultTimeoutSec
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultConfig().Store.Path
	}
	if cfg.Store.TokenLimit <= 0 {
		cfg.Store.TokenLimit = DefaultTokenLimit
	}
	if cfg.Greeting.MinDelayMs <= 0 {
		cfg.Greeting.MinDelayMs = DefaultGreetingMinMs
	}
	if cfg.Greeting.MaxDelayMs < cfg.Greeting.MinDelayMs {
		cfg.Greeting.MaxDelayMs = cfg.Greeting.MinDelayMs
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
