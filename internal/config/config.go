// Package config loads the LeadScout configuration: a YAML file for the
// stable shape, a .env file for local secrets, and environment variable
// overrides for everything that differs between deployments.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Reddit   RedditConfig   `yaml:"reddit"`
	LLM      LLMConfig      `yaml:"llm"`
	Email    EmailConfig    `yaml:"email"`
	Polling  PollingConfig  `yaml:"polling"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection.
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the optional Redis settings used for distributed
// locking. An empty URL disables Redis; locks fall back to PG advisory.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// RedditConfig selects and configures the Reddit content provider.
type RedditConfig struct {
	// Provider is "scraper" (Apify actor) or "direct" (RapidAPI).
	Provider string         `yaml:"provider"`
	Apify    ApifyConfig    `yaml:"apify"`
	RapidAPI RapidAPIConfig `yaml:"rapidapi"`
}

// ApifyConfig holds the scraper-actor provider settings.
type ApifyConfig struct {
	Token               string `yaml:"token"`
	BaseURL             string `yaml:"base_url"`
	SearchActorID       string `yaml:"search_actor_id"`
	ScrapeActorID       string `yaml:"scrape_actor_id"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
}

// PollInterval returns the actor-run poll interval as a duration.
func (c ApifyConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Timeout returns the overall actor-run timeout as a duration.
func (c ApifyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RapidAPIConfig holds the direct Reddit API provider settings.
type RapidAPIConfig struct {
	Host           string `yaml:"host"`
	Key            string `yaml:"key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// SleepMillis is an optional pause between paginated requests;
	// the upstream allows 100 requests/minute.
	SleepMillis int `yaml:"sleep_millis"`
}

// Timeout returns the configured timeout as a duration.
func (c RapidAPIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LLMConfig selects and configures the LLM adapter.
type LLMConfig struct {
	// Provider is "openai", "gemini", or "bedrock".
	Provider string        `yaml:"provider"`
	OpenAI   OpenAIConfig  `yaml:"openai"`
	Gemini   GeminiConfig  `yaml:"gemini"`
	Bedrock  BedrockConfig `yaml:"bedrock"`
}

// OpenAIConfig holds OpenAI API configuration.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// GeminiConfig holds Google Gemini API configuration.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// BedrockConfig holds AWS Bedrock configuration.
type BedrockConfig struct {
	Region    string `yaml:"region"`
	ModelID   string `yaml:"model_id"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// EmailConfig holds the SES digest-email settings.
type EmailConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	FromName  string `yaml:"from_name"`
	FromEmail string `yaml:"from_email"`
}

// PollingConfig holds the poll pipeline and scheduler settings.
type PollingConfig struct {
	EnableScheduled         bool   `yaml:"enable_scheduled"`
	PollTimesStarter        string `yaml:"poll_times_starter"` // comma-separated UTC hours
	PollTimesPremium        string `yaml:"poll_times_premium"`
	DefaultBatchSize        int    `yaml:"default_batch_size"`
	MaxConcurrent           int    `yaml:"max_concurrent"`
	MinRelevancyScore       int    `yaml:"min_relevancy_score"`
	AutoSuggestionThreshold int    `yaml:"auto_suggestion_threshold"`
}

// StarterHours parses PollTimesStarter into UTC hours.
func (c PollingConfig) StarterHours() []int { return parseHours(c.PollTimesStarter) }

// PremiumHours parses PollTimesPremium into UTC hours.
func (c PollingConfig) PremiumHours() []int { return parseHours(c.PollTimesPremium) }

func parseHours(s string) []int {
	if s == "" {
		return nil
	}
	var hours []int
	for _, part := range strings.Split(s, ",") {
		h, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || h < 0 || h > 23 {
			continue
		}
		hours = append(hours, h)
	}
	return hours
}

// Load reads and parses the configuration file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Reddit.Provider == "" {
		cfg.Reddit.Provider = "direct"
	}
	if cfg.Reddit.Apify.BaseURL == "" {
		cfg.Reddit.Apify.BaseURL = "https://api.apify.com"
	}
	if cfg.Reddit.Apify.PollIntervalSeconds == 0 {
		cfg.Reddit.Apify.PollIntervalSeconds = 5
	}
	if cfg.Reddit.Apify.TimeoutSeconds == 0 {
		cfg.Reddit.Apify.TimeoutSeconds = 300
	}
	if cfg.Reddit.RapidAPI.TimeoutSeconds == 0 {
		cfg.Reddit.RapidAPI.TimeoutSeconds = 30
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "gemini"
	}
	if cfg.LLM.OpenAI.Model == "" {
		cfg.LLM.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.LLM.Gemini.Model == "" {
		cfg.LLM.Gemini.Model = "gemini-2.0-flash"
	}
	if cfg.LLM.Bedrock.Region == "" {
		cfg.LLM.Bedrock.Region = "us-east-1"
	}
	if cfg.Email.Region == "" {
		cfg.Email.Region = "us-east-1"
	}
	if cfg.Polling.DefaultBatchSize == 0 {
		cfg.Polling.DefaultBatchSize = 20
	}
	if cfg.Polling.MaxConcurrent == 0 {
		cfg.Polling.MaxConcurrent = 5
	}
	if cfg.Polling.MinRelevancyScore == 0 {
		cfg.Polling.MinRelevancyScore = 50
	}
	if cfg.Polling.AutoSuggestionThreshold == 0 {
		cfg.Polling.AutoSuggestionThreshold = 90
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) first, so secrets can live in .env
// locally and in real env vars in production. A missing config file is
// not fatal; the defaults plus env vars are enough to run.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		cfg.applyDefaults()
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("REDDIT_API_PROVIDER"); v != "" {
		cfg.Reddit.Provider = v
	}
	if v := os.Getenv("APIFY_TOKEN"); v != "" {
		cfg.Reddit.Apify.Token = v
	}
	if v := os.Getenv("RAPIDAPI_HOST"); v != "" {
		cfg.Reddit.RapidAPI.Host = v
	}
	if v := os.Getenv("RAPIDAPI_KEY"); v != "" {
		cfg.Reddit.RapidAPI.Key = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.LLM.Gemini.APIKey = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Email.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Email.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Email.Region = v
	}
	if v := os.Getenv("ENABLE_SCHEDULED_POLLING"); v != "" {
		cfg.Polling.EnableScheduled = parseBool(v)
	}
	if v := os.Getenv("POLL_TIMES_STARTER"); v != "" {
		cfg.Polling.PollTimesStarter = v
	}
	if v := os.Getenv("POLL_TIMES_PREMIUM"); v != "" {
		cfg.Polling.PollTimesPremium = v
	}
	if v := os.Getenv("DEFAULT_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Polling.DefaultBatchSize = n
		}
	}
	if v := os.Getenv("MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Polling.MaxConcurrent = n
		}
	}
	if v := os.Getenv("MIN_RELEVANCY_SCORE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Polling.MinRelevancyScore = n
		}
	}
	if v := os.Getenv("AUTO_SUGGESTION_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Polling.AutoSuggestionThreshold = n
		}
	}

	return cfg, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
