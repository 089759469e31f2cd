package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PathEnv names the environment variable that points at the YAML config file.
const PathEnv = "NEWS_ANALYZER_CONFIG"

const (
	defaultTimezone    = "UTC"
	databaseURLEnv     = "DATABASE_URL"
	newsAPIKeyEnv      = "NEWS_API_KEY"
	hfTokenEnv         = "HF_API_TOKEN"
	sentimentModelEnv  = "SENTIMENT_MODEL"
	fakeNewsModelEnv   = "FAKE_NEWS_MODEL"
	chatGPTAPIKeyEnv   = "CHATGPT_API_KEY"
	chatGPTModelEnv    = "CHATGPT_MODEL"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	logLevelEnv        = "LOG_LEVEL"
	httpAddrEnv        = "HTTP_ADDR"
	pipelineWorkersEnv = "PIPELINE_CONCURRENCY"
)

// Config holds high-level settings required across the application.
type Config struct {
	ProjectName   string             `yaml:"projectName"`
	Database      DatabaseConfig     `yaml:"database"`
	NewsAPI       NewsAPIConfig      `yaml:"newsApi"`
	Scoring       ScoringConfig      `yaml:"scoring"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Server        ServerConfig       `yaml:"server"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// DatabaseConfig selects the backing store by URL scheme (postgres:// or sqlite://).
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// NewsAPIConfig describes the upstream article provider.
type NewsAPIConfig struct {
	BaseURL           string   `yaml:"baseUrl"`
	APIKey            string   `yaml:"apiKey"`
	Language          string   `yaml:"language"`
	SortBy            string   `yaml:"sortBy"`
	PageSize          int      `yaml:"pageSize"`
	MaxPages          int      `yaml:"maxPages"`
	MaxWindowDays     int      `yaml:"maxWindowDays"`
	RequestsPerSecond float64  `yaml:"requestsPerSecond"`
	Timeout           Duration `yaml:"timeout"`
}

// ScoringConfig describes the classification capabilities behind the scorer.
type ScoringConfig struct {
	// ReliabilityBackend is "huggingface" (default) or "chatgpt".
	ReliabilityBackend string   `yaml:"reliabilityBackend"`
	InferenceURL       string   `yaml:"inferenceUrl"`
	APIToken           string   `yaml:"apiToken"`
	SentimentModel     string   `yaml:"sentimentModel"`
	ReliabilityModel   string   `yaml:"reliabilityModel"`
	MaxInputRunes      int      `yaml:"maxInputRunes"`
	Timeout            Duration `yaml:"timeout"`
}

// PipelineConfig bounds per-article fan-out and external call timeouts.
type PipelineConfig struct {
	Concurrency           int      `yaml:"concurrency"`
	FetchTimeout          Duration `yaml:"fetchTimeout"`
	ScoreTimeout          Duration `yaml:"scoreTimeout"`
	SaveTimeout           Duration `yaml:"saveTimeout"`
	StoreFailureThreshold int      `yaml:"storeFailureThreshold"`
	RetryMaxElapsed       Duration `yaml:"retryMaxElapsed"`
}

// ServerConfig configures the HTTP trigger surface.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	APIPrefix    string `yaml:"apiPrefix"`
	DefaultLimit int    `yaml:"defaultLimit"`
	MaxLimit     int    `yaml:"maxLimit"`
}

// SchedulerConfig defines when recurring ingestion runs.
type SchedulerConfig struct {
	Enabled        bool           `yaml:"enabled"`
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	WindowDays     int            `yaml:"windowDays"`
	Queries        []string       `yaml:"queries"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	Endpoint string `yaml:"endpoint"`
}

// ChatGPTConfig defines how to contact an OpenAI-compatible chat API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration lets YAML carry values like "15s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Load reads .env, the YAML configuration (if present) and applies environment overrides.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(PathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseURLEnv); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv(newsAPIKeyEnv); v != "" {
		c.NewsAPI.APIKey = v
	}
	if v := os.Getenv(hfTokenEnv); v != "" {
		c.Scoring.APIToken = v
	}
	if v := os.Getenv(sentimentModelEnv); v != "" {
		c.Scoring.SentimentModel = v
	}
	if v := os.Getenv(fakeNewsModelEnv); v != "" {
		c.Scoring.ReliabilityModel = v
	}
	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(pipelineWorkersEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pipeline.Concurrency = n
		} else {
			log.Printf("config: ignoring %s=%q", pipelineWorkersEnv, v)
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.ProjectName != "" {
		base.ProjectName = override.ProjectName
	}
	if override.Database.URL != "" {
		base.Database = override.Database
	}

	mergeString(&base.NewsAPI.BaseURL, override.NewsAPI.BaseURL)
	mergeString(&base.NewsAPI.APIKey, override.NewsAPI.APIKey)
	mergeString(&base.NewsAPI.Language, override.NewsAPI.Language)
	mergeString(&base.NewsAPI.SortBy, override.NewsAPI.SortBy)
	mergeInt(&base.NewsAPI.PageSize, override.NewsAPI.PageSize)
	mergeInt(&base.NewsAPI.MaxPages, override.NewsAPI.MaxPages)
	mergeInt(&base.NewsAPI.MaxWindowDays, override.NewsAPI.MaxWindowDays)
	if override.NewsAPI.RequestsPerSecond > 0 {
		base.NewsAPI.RequestsPerSecond = override.NewsAPI.RequestsPerSecond
	}
	mergeDuration(&base.NewsAPI.Timeout, override.NewsAPI.Timeout)

	mergeString(&base.Scoring.ReliabilityBackend, override.Scoring.ReliabilityBackend)
	mergeString(&base.Scoring.InferenceURL, override.Scoring.InferenceURL)
	mergeString(&base.Scoring.APIToken, override.Scoring.APIToken)
	mergeString(&base.Scoring.SentimentModel, override.Scoring.SentimentModel)
	mergeString(&base.Scoring.ReliabilityModel, override.Scoring.ReliabilityModel)
	mergeInt(&base.Scoring.MaxInputRunes, override.Scoring.MaxInputRunes)
	mergeDuration(&base.Scoring.Timeout, override.Scoring.Timeout)

	mergeInt(&base.Pipeline.Concurrency, override.Pipeline.Concurrency)
	mergeDuration(&base.Pipeline.FetchTimeout, override.Pipeline.FetchTimeout)
	mergeDuration(&base.Pipeline.ScoreTimeout, override.Pipeline.ScoreTimeout)
	mergeDuration(&base.Pipeline.SaveTimeout, override.Pipeline.SaveTimeout)
	mergeInt(&base.Pipeline.StoreFailureThreshold, override.Pipeline.StoreFailureThreshold)
	mergeDuration(&base.Pipeline.RetryMaxElapsed, override.Pipeline.RetryMaxElapsed)

	mergeString(&base.Server.Addr, override.Server.Addr)
	mergeString(&base.Server.APIPrefix, override.Server.APIPrefix)
	mergeInt(&base.Server.DefaultLimit, override.Server.DefaultLimit)
	mergeInt(&base.Server.MaxLimit, override.Server.MaxLimit)

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	mergeString(&base.Scheduler.CronExpression, override.Scheduler.CronExpression)
	mergeString(&base.Scheduler.Timezone, override.Scheduler.Timezone)
	mergeInt(&base.Scheduler.WindowDays, override.Scheduler.WindowDays)
	if len(override.Scheduler.Queries) > 0 {
		base.Scheduler.Queries = override.Scheduler.Queries
	}

	mergeString(&base.Notifications.Telegram.BotToken, override.Notifications.Telegram.BotToken)
	mergeString(&base.Notifications.Telegram.ChatID, override.Notifications.Telegram.ChatID)
	mergeString(&base.Notifications.Telegram.Endpoint, override.Notifications.Telegram.Endpoint)

	mergeString(&base.ChatGPT.Endpoint, override.ChatGPT.Endpoint)
	mergeString(&base.ChatGPT.Model, override.ChatGPT.Model)
	mergeString(&base.ChatGPT.APIKey, override.ChatGPT.APIKey)
	mergeString(&base.ChatGPT.SystemPrompt, override.ChatGPT.SystemPrompt)

	mergeString(&base.Logging.Level, override.Logging.Level)
	mergeString(&base.Logging.Format, override.Logging.Format)

	return base
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func mergeDuration(dst *Duration, v Duration) {
	if v.Duration > 0 {
		*dst = v
	}
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		ProjectName: "News Analyzer",
		Database:    DatabaseConfig{URL: "sqlite://news.db"},
		NewsAPI: NewsAPIConfig{
			BaseURL:           "https://newsapi.org",
			Language:          "en",
			SortBy:            "publishedAt",
			PageSize:          100,
			MaxPages:          1,
			MaxWindowDays:     30,
			RequestsPerSecond: 1,
			Timeout:           Duration{20 * time.Second},
		},
		Scoring: ScoringConfig{
			ReliabilityBackend: "huggingface",
			InferenceURL:       "https://api-inference.huggingface.co/models",
			SentimentModel:     "distilbert-base-uncased-finetuned-sst-2-english",
			ReliabilityModel:   "facebook/bart-large-mnli",
			MaxInputRunes:      2000,
			Timeout:            Duration{30 * time.Second},
		},
		Pipeline: PipelineConfig{
			Concurrency:           4,
			FetchTimeout:          Duration{30 * time.Second},
			ScoreTimeout:          Duration{30 * time.Second},
			SaveTimeout:           Duration{5 * time.Second},
			StoreFailureThreshold: 3,
			RetryMaxElapsed:       Duration{5 * time.Minute},
		},
		Server: ServerConfig{
			Addr:         ":8000",
			APIPrefix:    "/api/v1",
			DefaultLimit: 10,
			MaxLimit:     100,
		},
		Scheduler: SchedulerConfig{
			Enabled:        false,
			CronExpression: "0 * * * *",
			Timezone:       defaultTimezone,
			WindowDays:     1,
			Queries:        []string{""},
			location:       tz,
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: "", Endpoint: ""},
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			APIKey:       "",
			SystemPrompt: "",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
