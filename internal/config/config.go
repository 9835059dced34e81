package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath         = "config.toml"
	DefaultHTTPAddr           = ":3000"
	DefaultOpenAIBaseURL      = "https://api.openai.com/v1"
	DefaultChatModel          = "gpt-5"
	DefaultMaxTokens          = 2000
	DefaultOpenAITimeout      = 120
	DefaultOpenAIMaxRetries   = 3
	DefaultRateLimitRequests  = 10
	DefaultRateLimitWindow    = "1m"
	DefaultRateLimitSweep     = "5m"
	DefaultConversationLimit  = 20
	DefaultConversationMaxAge = "30m"
	DefaultConversationSweep  = "5m"
	DefaultMaxMessageLength   = 800
	DefaultMaxCharsPerChunk   = 8000
	DefaultMaxMessages        = 1000
	DefaultReduceMaxWords     = 700
	DefaultModelConfigPath    = "data/model-config.yaml"
)

// DefaultSupportedModels is the model allow-list used when none is configured.
var DefaultSupportedModels = []string{"gpt-5", "gpt-5-mini", "gpt-5-nano"}

type Config struct {
	Log          LogConfig          `toml:"log"`
	Server       ServerConfig       `toml:"server"`
	Discord      DiscordConfig      `toml:"discord"`
	OpenAI       OpenAIConfig       `toml:"openai"`
	RateLimit    RateLimitConfig    `toml:"rate_limit"`
	Conversation ConversationConfig `toml:"conversation"`
	Summarize    SummarizeConfig    `toml:"summarize"`
	Models       ModelsConfig       `toml:"models"`
}

type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type DiscordConfig struct {
	BotToken string `toml:"bot_token" validate:"required"`
	AppID    string `toml:"app_id" validate:"required"`
	// GuildID registers commands on a single guild instead of globally.
	GuildID string `toml:"guild_id"`
}

type OpenAIConfig struct {
	APIKey         string `toml:"api_key" validate:"required"`
	BaseURL        string `toml:"base_url" validate:"required,url"`
	MaxTokens      int    `toml:"max_tokens" validate:"gt=0"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gt=0"`
	MaxRetries     int    `toml:"max_retries" validate:"gte=0"`
}

func (c OpenAIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type RateLimitConfig struct {
	MaxRequests   int    `toml:"max_requests" validate:"gt=0"`
	Window        string `toml:"window" validate:"required"`
	SweepInterval string `toml:"sweep_interval" validate:"required"`
}

type ConversationConfig struct {
	MaxMessages   int    `toml:"max_messages" validate:"gt=0"`
	MaxAge        string `toml:"max_age" validate:"required"`
	SweepInterval string `toml:"sweep_interval" validate:"required"`
	SystemPrompt  string `toml:"system_prompt"`
}

type SummarizeConfig struct {
	MaxMessageLength   int `toml:"max_message_length" validate:"gt=0"`
	MaxCharsPerChunk   int `toml:"max_chars_per_chunk" validate:"gt=0"`
	DefaultMaxMessages int `toml:"default_max_messages" validate:"gte=100,lte=5000"`
	ReduceMaxWords     int `toml:"reduce_max_words" validate:"gt=0"`
}

type ModelsConfig struct {
	Path      string   `toml:"path" validate:"required"`
	Default   string   `toml:"default" validate:"required"`
	Supported []string `toml:"supported" validate:"required,min=1,dive,required"`
}

// Durations holds the parsed duration fields of a Config.
type Durations struct {
	RateLimitWindow   time.Duration
	RateLimitSweep    time.Duration
	ConversationTTL   time.Duration
	ConversationSweep time.Duration
}

// ParseDurations parses every duration string in the config.
func (c Config) ParseDurations() (Durations, error) {
	var d Durations
	fields := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"rate_limit.window", c.RateLimit.Window, &d.RateLimitWindow},
		{"rate_limit.sweep_interval", c.RateLimit.SweepInterval, &d.RateLimitSweep},
		{"conversation.max_age", c.Conversation.MaxAge, &d.ConversationTTL},
		{"conversation.sweep_interval", c.Conversation.SweepInterval, &d.ConversationSweep},
	}
	for _, f := range fields {
		v, err := time.ParseDuration(strings.TrimSpace(f.value))
		if err != nil {
			return Durations{}, fmt.Errorf("invalid %s: %w", f.name, err)
		}
		if v <= 0 {
			return Durations{}, fmt.Errorf("invalid %s: must be positive", f.name)
		}
		*f.dst = v
	}
	return d, nil
}

// Validate checks required credentials and numeric bounds.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	supported := false
	for _, m := range c.Models.Supported {
		if m == c.Models.Default {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("invalid config: default model %q is not in models.supported", c.Models.Default)
	}
	if _, err := c.ParseDurations(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func defaults() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		OpenAI: OpenAIConfig{
			BaseURL:        DefaultOpenAIBaseURL,
			MaxTokens:      DefaultMaxTokens,
			TimeoutSeconds: DefaultOpenAITimeout,
			MaxRetries:     DefaultOpenAIMaxRetries,
		},
		RateLimit: RateLimitConfig{
			MaxRequests:   DefaultRateLimitRequests,
			Window:        DefaultRateLimitWindow,
			SweepInterval: DefaultRateLimitSweep,
		},
		Conversation: ConversationConfig{
			MaxMessages:   DefaultConversationLimit,
			MaxAge:        DefaultConversationMaxAge,
			SweepInterval: DefaultConversationSweep,
		},
		Summarize: SummarizeConfig{
			MaxMessageLength:   DefaultMaxMessageLength,
			MaxCharsPerChunk:   DefaultMaxCharsPerChunk,
			DefaultMaxMessages: DefaultMaxMessages,
			ReduceMaxWords:     DefaultReduceMaxWords,
		},
		Models: ModelsConfig{
			Path:      DefaultModelConfigPath,
			Default:   DefaultChatModel,
			Supported: append([]string(nil), DefaultSupportedModels...),
		},
	}
}

// Load reads the TOML file at path over the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg, os.LookupEnv)
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get("DISCORD_BOT_TOKEN"); ok {
		cfg.Discord.BotToken = v
	}
	if v, ok := get("DISCORD_APP_ID"); ok {
		cfg.Discord.AppID = v
	}
	if v, ok := get("DISCORD_GUILD_ID"); ok {
		cfg.Discord.GuildID = v
	}
	if v, ok := get("OPENAI_API_KEY"); ok {
		cfg.OpenAI.APIKey = v
	}
	if v, ok := get("OPENAI_BASE_URL"); ok {
		cfg.OpenAI.BaseURL = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := get("PORT"); ok {
		cfg.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v, ok := get("HTTP_ADDR"); ok {
		cfg.Server.Addr = v
	}
}
