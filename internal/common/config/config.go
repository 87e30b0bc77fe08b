// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	GenAI    GenAIConfig    `mapstructure:"genai"`
	Mail     MailConfig     `mapstructure:"mail"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	// Domain is the public hostname used in confirmation, unsubscribe and
	// feedback links.
	Domain string `mapstructure:"domain"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CatalogConfig holds settings for the external launch-catalog feed.
type CatalogConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
	// PageDelay is the inter-page pacing delay in milliseconds.
	PageDelay int `mapstructure:"page_delay"`
	// MaxRateLimitWait caps the server-advised rate-limit wait, milliseconds.
	MaxRateLimitWait int `mapstructure:"max_rate_limit_wait"`
	Timeout          int `mapstructure:"timeout"` // milliseconds
	WeeklyPages      int `mapstructure:"weekly_pages"`
	WeeklyPageSize   int `mapstructure:"weekly_page_size"`
	DailyPages       int `mapstructure:"daily_pages"`
	DailyPageSize    int `mapstructure:"daily_page_size"`
}

// GenAIConfig holds settings for the generative text service.
type GenAIConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxRetries  int     `mapstructure:"max_retries"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	// PacingDelay throttles back-to-back generation calls, milliseconds.
	PacingDelay int `mapstructure:"pacing_delay"`
}

// MailConfig holds outbound email settings.
type MailConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
	// Workers bounds concurrent sends within one dispatch invocation.
	Workers int `mapstructure:"workers"`
	Timeout int `mapstructure:"timeout"` // milliseconds per send
}

// AdminConfig guards the generation/dispatch endpoints.
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type DispatchConfig struct {
	// RespectSendDay defaults dispatch to the subscriber weekday cohort.
	RespectSendDay bool `mapstructure:"respect_send_day"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
