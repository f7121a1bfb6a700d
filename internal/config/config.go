package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSUrl          string
	EventChannelBase string
	JWTSecret        string
	RoadmapCacheTTL  time.Duration
	AIProvider       string
	AIModel          string
	OpenAIAPIKey     string
	AnthropicAPIKey  string
	ChatRelayURL     string
	ChatRelayAPIKey  string
	ChatPublicURL    string
	ChatTimeout      time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PATHLIGHT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Pathlight API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.channel_base", "pathlight")
	v.SetDefault("roadmap.cache_ttl", "2m")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("chat.timeout_ms", 15000)

	ttlString := v.GetString("roadmap.cache_ttl")
	if ttlString == "" {
		ttlString = "2m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid roadmap cache ttl: %w", err)
	}

	chatTimeoutMs := v.GetInt("chat.timeout_ms")
	if chatTimeoutMs <= 0 {
		chatTimeoutMs = 15000
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSUrl:          v.GetString("nats.url"),
		EventChannelBase: v.GetString("events.channel_base"),
		JWTSecret:        v.GetString("jwt.secret"),
		RoadmapCacheTTL:  ttl,
		AIProvider:       strings.ToLower(v.GetString("ai.provider")),
		AIModel:          v.GetString("ai.model"),
		OpenAIAPIKey:     v.GetString("openai_api_key"),
		AnthropicAPIKey:  v.GetString("anthropic_api_key"),
		ChatRelayURL:     v.GetString("chat.relay_url"),
		ChatRelayAPIKey:  v.GetString("chat.relay_api_key"),
		ChatPublicURL:    v.GetString("chat.public_url"),
		ChatTimeout:      time.Duration(chatTimeoutMs) * time.Millisecond,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.ChatRelayURL == "" {
		return Config{}, fmt.Errorf("chat relay url must be provided")
	}

	return cfg, nil
}
