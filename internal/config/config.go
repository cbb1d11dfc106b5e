package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/garyjia/expensewise/internal/analytics"
	"github.com/garyjia/expensewise/internal/ingestion"
	"github.com/garyjia/expensewise/internal/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Extraction providers
const (
	ProviderOpenAI = "openai"
	ProviderRemote = "remote"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Summary    SummaryConfig    `mapstructure:"summary"`
	Profile    models.Profile   `mapstructure:"profile"`
	Budget     BudgetConfig     `mapstructure:"budget"`
	Export     ExportConfig     `mapstructure:"export"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Mode          string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	MaxUploadMB   int64         `mapstructure:"max_upload_mb"`
	AllowOrigins  []string      `mapstructure:"allow_origins"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"` // empty uses the bundled schema
}

// ExtractionConfig holds receipt extraction configuration
type ExtractionConfig struct {
	Provider       string        `mapstructure:"provider"`
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	Mode           string        `mapstructure:"mode"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxPages       int           `mapstructure:"max_pages"`
	Categories     []string      `mapstructure:"categories"`
}

// SummaryConfig holds narrative summary configuration
type SummaryConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PromptsPath string        `mapstructure:"prompts_path"`
}

// BudgetConfig holds per-category budget alert settings
type BudgetConfig struct {
	Limit         float64 `mapstructure:"limit"`
	Threshold     float64 `mapstructure:"threshold"`
	OnlyTriggered bool    `mapstructure:"only_triggered"`
}

// Policy converts the settings to an analytics.BudgetPolicy
func (b BudgetConfig) Policy() analytics.BudgetPolicy {
	return analytics.BudgetPolicy{
		Limit:         decimal.NewFromFloat(b.Limit),
		Threshold:     b.Threshold,
		OnlyTriggered: b.OnlyTriggered,
	}
}

// ExportConfig holds report export configuration
type ExportConfig struct {
	Currency  string `mapstructure:"currency"`
	OutputDir string `mapstructure:"output_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := gotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads configuration from a YAML file (optional) and the environment.
// Environment variables use the EXPENSEWISE_ prefix, e.g. EXPENSEWISE_SERVER_PORT.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EXPENSEWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("server.shutdown_grace", 10*time.Second)

	v.SetDefault("database.path", "data/expensewise.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)
	v.SetDefault("database.migrations_dir", "")

	v.SetDefault("extraction.provider", ProviderOpenAI)
	v.SetDefault("extraction.model", "gpt-4o")
	v.SetDefault("extraction.max_concurrency", 4)
	v.SetDefault("extraction.mode", string(ingestion.ModeAllOrNothing))
	v.SetDefault("extraction.timeout", 90*time.Second)
	v.SetDefault("extraction.max_pages", 2)

	v.SetDefault("summary.enabled", true)
	v.SetDefault("summary.model", "gpt-4o-mini")
	v.SetDefault("summary.timeout", 30*time.Second)
	v.SetDefault("summary.prompts_path", "")

	v.SetDefault("profile.country", "Malaysia")
	v.SetDefault("profile.business_type", "Consultant")

	v.SetDefault("budget.limit", 500)
	v.SetDefault("budget.threshold", analytics.DefaultAlertThreshold)
	v.SetDefault("budget.only_triggered", true)

	v.SetDefault("export.currency", "RM")
	v.SetDefault("export.output_dir", "reports")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds credentials to their conventional variable names
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("extraction.api_key", "EXPENSEWISE_EXTRACTION_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("extraction.base_url", "EXPENSEWISE_EXTRACTION_BASE_URL", "OPENAI_BASE_URL")
	_ = v.BindEnv("summary.api_key", "EXPENSEWISE_SUMMARY_API_KEY", "DASHSCOPE_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("summary.base_url", "EXPENSEWISE_SUMMARY_BASE_URL", "DASHSCOPE_BASE_URL")
	_ = v.BindEnv("database.path", "EXPENSEWISE_DATABASE_PATH", "DATABASE_PATH")
	_ = v.BindEnv("server.port", "EXPENSEWISE_SERVER_PORT", "PORT")
}

// Validate validates the configuration. API keys are optional here: without
// them the dashboard and reports still work and extraction fails per request.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Extraction.Provider {
	case ProviderOpenAI:
	case ProviderRemote:
		if c.Extraction.BaseURL == "" {
			return fmt.Errorf("extraction.base_url is required for the remote provider")
		}
	default:
		return fmt.Errorf("extraction.provider must be %q or %q, got %q", ProviderOpenAI, ProviderRemote, c.Extraction.Provider)
	}
	switch ingestion.Mode(c.Extraction.Mode) {
	case ingestion.ModeAllOrNothing, ingestion.ModePartial:
	default:
		return fmt.Errorf("extraction.mode must be %q or %q, got %q", ingestion.ModeAllOrNothing, ingestion.ModePartial, c.Extraction.Mode)
	}
	if c.Extraction.MaxConcurrency < 0 {
		return fmt.Errorf("extraction.max_concurrency must not be negative")
	}

	if c.Budget.Limit <= 0 {
		return fmt.Errorf("budget.limit must be positive")
	}
	if c.Budget.Threshold < 0 {
		return fmt.Errorf("budget.threshold must not be negative")
	}

	if strings.TrimSpace(c.Export.Currency) == "" {
		return fmt.Errorf("export.currency is required")
	}

	return nil
}

// SummaryAPIKey returns the summary credential, falling back to the extraction key
func (c *Config) SummaryAPIKey() string {
	if c.Summary.APIKey != "" {
		return c.Summary.APIKey
	}
	return c.Extraction.APIKey
}
