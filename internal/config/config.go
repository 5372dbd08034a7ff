package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Anthropic   AnthropicConfig `mapstructure:"anthropic"`
	NewsAPI     NewsAPIConfig   `mapstructure:"newsapi"`
	Serper      SerperConfig    `mapstructure:"serper"`
	Partner     PartnerConfig   `mapstructure:"partner"`
	Collector   CollectorConfig `mapstructure:"collector"`
	Analyzer    AnalyzerConfig  `mapstructure:"analyzer"`
	Report      ReportConfig    `mapstructure:"report"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
	Cleanup     CleanupConfig   `mapstructure:"cleanup"`
	Security    SecurityConfig  `mapstructure:"security"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	DatabaseURL  string `mapstructure:"database_url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AnthropicConfig configures the model backend for the agent stages.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	Timeout   string `mapstructure:"timeout"`
}

// SerperConfig configures the Google search proxy used by publisher
// discovery.
type SerperConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type NewsAPIConfig struct {
	APIKey          string `mapstructure:"api_key"`
	BaseURL         string `mapstructure:"base_url"`
	DailyLimit      int    `mapstructure:"daily_limit"`
	MinRequestGapMs int    `mapstructure:"min_request_gap_ms"`
	CacheTTL        string `mapstructure:"cache_ttl"`
}

// PartnerConfig configures the partner roster client and resolver.
type PartnerConfig struct {
	GraphQLURL     string  `mapstructure:"graphql_url"`
	GraphQLToken   string  `mapstructure:"graphql_token"`
	MatchThreshold float64 `mapstructure:"match_threshold"`
	CacheTTL       string  `mapstructure:"cache_ttl"`
	MaxPages       int     `mapstructure:"max_pages"`
	PageSize       int     `mapstructure:"page_size"`
}

type CollectorConfig struct {
	MaxIterations          int `mapstructure:"max_iterations"`
	MinSearches            int `mapstructure:"min_searches"`
	DefaultDays            int `mapstructure:"default_days"`
	PublisherMaxIterations int `mapstructure:"publisher_max_iterations"`
	PublisherLimit         int `mapstructure:"publisher_limit"`
}

type AnalyzerConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
	BatchSize     int `mapstructure:"batch_size"`
}

type ReportConfig struct {
	RecipientEmails []string `mapstructure:"recipient_emails"`
	FromAddress     string   `mapstructure:"from_address"`
	ResendAPIKey    string   `mapstructure:"resend_api_key"`
	ResendBaseURL   string   `mapstructure:"resend_base_url"`
	CycleDays       int      `mapstructure:"cycle_days"`
	MaxIterations   int      `mapstructure:"max_iterations"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type CleanupConfig struct {
	SignalRetentionDays    int `mapstructure:"signal_retention_days"`
	CleanupIntervalMinutes int `mapstructure:"cleanup_interval_minutes"`
}

type SecurityConfig struct {
	AdminAPIKey string `mapstructure:"admin_api_key" json:"-" yaml:"-"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Secrets come from the environment, never the config file.
	for key, env := range map[string]string{
		"anthropic.api_key":      "ANTHROPIC_API_KEY",
		"newsapi.api_key":        "NEWS_API_KEY",
		"serper.api_key":         "SERPER_API_KEY",
		"partner.graphql_token":  "E2_GRAPHQL_TOKEN",
		"report.resend_api_key":  "RESEND_API_KEY",
		"telegram.bot_token":     "TELEGRAM_BOT_TOKEN",
		"security.admin_api_key": "ADMIN_API_KEY",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if config.Environment != "development" && config.Security.AdminAPIKey == "" {
		return nil, errors.New("ADMIN_API_KEY environment variable is required in non-development environments")
	}

	for _, d := range []string{config.Anthropic.Timeout, config.Partner.CacheTTL, config.NewsAPI.CacheTTL} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return nil, err
		}
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "e2_outreach")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_open_conns", 25)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.base_url", "https://api.anthropic.com")
	viper.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	viper.SetDefault("anthropic.max_tokens", 4096)
	viper.SetDefault("anthropic.timeout", "120s")

	viper.SetDefault("newsapi.api_key", "")
	viper.SetDefault("newsapi.base_url", "https://newsapi.org/v2")
	viper.SetDefault("newsapi.daily_limit", 50)
	viper.SetDefault("newsapi.min_request_gap_ms", 2000)
	viper.SetDefault("newsapi.cache_ttl", "1h")

	viper.SetDefault("serper.api_key", "")

	viper.SetDefault("partner.graphql_url", "https://e2api.odds.team/graphql")
	viper.SetDefault("partner.graphql_token", "")
	viper.SetDefault("partner.match_threshold", 0.7)
	viper.SetDefault("partner.cache_ttl", "1h")
	viper.SetDefault("partner.max_pages", 15)
	viper.SetDefault("partner.page_size", 100)

	viper.SetDefault("collector.max_iterations", 10)
	viper.SetDefault("collector.min_searches", 3)
	viper.SetDefault("collector.default_days", 7)
	viper.SetDefault("collector.publisher_max_iterations", 20)
	viper.SetDefault("collector.publisher_limit", 30)

	viper.SetDefault("analyzer.max_iterations", 10)
	viper.SetDefault("analyzer.batch_size", 10)

	viper.SetDefault("report.recipient_emails", []string{"team@e-2.at"})
	viper.SetDefault("report.from_address", "intel@e-2.at")
	viper.SetDefault("report.resend_api_key", "")
	viper.SetDefault("report.resend_base_url", "https://api.resend.com")
	viper.SetDefault("report.cycle_days", 14)
	viper.SetDefault("report.max_iterations", 5)

	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", "")

	viper.SetDefault("cleanup.signal_retention_days", 30)
	viper.SetDefault("cleanup.cleanup_interval_minutes", 60)

	viper.SetDefault("security.admin_api_key", "")
}
