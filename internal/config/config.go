package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	AI       AI       `mapstructure:"ai"`
	Catalog  Catalog  `mapstructure:"catalog"`
	Database Database `mapstructure:"database"`
	Queue    Queue    `mapstructure:"queue"`
	Vault    Vault    `mapstructure:"vault"`
	Worker   Worker   `mapstructure:"worker"`
	Retry    Retry    `mapstructure:"retry"`
	Crawl    Crawl    `mapstructure:"crawl"`
	Logging  Logging  `mapstructure:"logging"`
	CLI      CLI      `mapstructure:"cli"`
	Ingress  Ingress  `mapstructure:"ingress"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// AI holds summarizer provider configuration
type AI struct {
	Provider    string        `mapstructure:"provider"` // openai, anthropic
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     string        `mapstructure:"timeout"`
	OpenAI      OpenAIConfig  `mapstructure:"openai"`
	Anthropic   ClaudeConfig  `mapstructure:"anthropic"`
}

// OpenAIConfig holds OpenAI summarizer configuration
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// ClaudeConfig holds Anthropic summarizer configuration
type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// Catalog holds the citation catalog client configuration (C1).
type Catalog struct {
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Timeout           string  `mapstructure:"timeout"`
}

// Database holds graph store configuration (C4).
type Database struct {
	ConnectionString string `mapstructure:"connection_string"`
	MaxConnections   int    `mapstructure:"max_connections"`
	IdleConnections  int    `mapstructure:"idle_connections"`
	ConnMaxLifetime  string `mapstructure:"conn_max_lifetime"`
}

// Queue holds processing queue tuning (C5).
type Queue struct {
	LeaseDuration string `mapstructure:"lease_duration"`
	BatchSize     int    `mapstructure:"batch_size"`
	Retention     string `mapstructure:"retention"`
}

// Vault holds the output Markdown vault location (C10 / render).
type Vault struct {
	Path     string `mapstructure:"path"`
	Viewer   string `mapstructure:"viewer"`
}

// Worker holds per-stage concurrency (C6-C8).
type Worker struct {
	ConcurrencyCrawl     int `mapstructure:"concurrency_crawl"`
	ConcurrencySummarize int `mapstructure:"concurrency_summarize"`
	ConcurrencyGenerate  int `mapstructure:"concurrency_generate"`
}

// Retry holds the default RetryPolicy parameters shared by all stages.
type Retry struct {
	MaxAttempts   int    `mapstructure:"max_attempts"`
	BackoffBaseMs int    `mapstructure:"backoff_base_ms"`
	BackoffMaxMs  int    `mapstructure:"backoff_max_ms"`
}

// Crawl holds crawl-fanout tuning.
type Crawl struct {
	MaxDepth      int `mapstructure:"max_depth"`
	DelaySeconds  int `mapstructure:"delay_seconds"`
	MaxPapers     int `mapstructure:"max_papers"`
	StalenessDays int `mapstructure:"staleness_days"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// CLI holds CLI-specific configuration
type CLI struct {
	DefaultFormat string `mapstructure:"default_format"`
}

// Ingress holds the thin HTTP collaborator's listen address and auth (C10).
type Ingress struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	BearerToken  string `mapstructure:"bearer_token"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".refnet")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".refnet-cache")

	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.model", "gpt-4o-mini")
	viper.SetDefault("ai.max_tokens", 1024)
	viper.SetDefault("ai.temperature", 0.2)
	viper.SetDefault("ai.timeout", "60s")
	viper.SetDefault("ai.openai.base_url", "https://api.openai.com/v1")

	viper.SetDefault("catalog.base_url", "https://api.semanticscholar.org/graph/v1")
	viper.SetDefault("catalog.requests_per_second", 1.0)
	viper.SetDefault("catalog.timeout", "15s")

	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.idle_connections", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")

	viper.SetDefault("queue.lease_duration", "10m")
	viper.SetDefault("queue.batch_size", 10)
	viper.SetDefault("queue.retention", "720h")

	viper.SetDefault("vault.path", "./vault")
	viper.SetDefault("vault.viewer", "obsidian")

	viper.SetDefault("worker.concurrency_crawl", 4)
	viper.SetDefault("worker.concurrency_summarize", 2)
	viper.SetDefault("worker.concurrency_generate", 2)

	viper.SetDefault("retry.max_attempts", 5)
	viper.SetDefault("retry.backoff_base_ms", 1000)
	viper.SetDefault("retry.backoff_max_ms", 60000)

	viper.SetDefault("crawl.max_depth", 3)
	viper.SetDefault("crawl.delay_seconds", 1)
	viper.SetDefault("crawl.max_papers", 500)
	viper.SetDefault("crawl.staleness_days", 30)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	viper.SetDefault("cli.default_format", "standard")

	viper.SetDefault("ingress.host", "0.0.0.0")
	viper.SetDefault("ingress.port", 8090)
	viper.SetDefault("ingress.read_timeout", "15s")
	viper.SetDefault("ingress.write_timeout", "15s")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.openai.api_key", []string{"OPENAI_API_KEY", "LLM_API_KEY"})
	bindEnvKeys("ai.anthropic.api_key", []string{"ANTHROPIC_API_KEY", "LLM_API_KEY"})
	bindEnvKeys("ai.provider", []string{"AI_PROVIDER"})
	bindEnvKeys("ai.model", []string{"AI_MODEL"})
	bindEnvKeys("ai.max_tokens", []string{"AI_MAX_TOKENS"})
	bindEnvKeys("ai.temperature", []string{"AI_TEMPERATURE"})

	bindEnvKeys("catalog.api_key", []string{"CATALOG_API_KEY"})

	bindEnvKeys("database.connection_string", []string{"DB_URL", "DATABASE_URL"})
	bindEnvKeys("queue.url", []string{"QUEUE_URL"})
	bindEnvKeys("vault.path", []string{"VAULT_PATH"})

	bindEnvKeys("worker.concurrency_crawl", []string{"WORKER_CONCURRENCY_CRAWL"})
	bindEnvKeys("worker.concurrency_summarize", []string{"WORKER_CONCURRENCY_SUMMARIZE"})
	bindEnvKeys("worker.concurrency_generate", []string{"WORKER_CONCURRENCY_GENERATE"})

	bindEnvKeys("retry.max_attempts", []string{"RETRY_MAX"})
	bindEnvKeys("retry.backoff_base_ms", []string{"BACKOFF_BASE_MS"})
	bindEnvKeys("retry.backoff_max_ms", []string{"BACKOFF_MAX_MS"})

	bindEnvKeys("crawl.max_depth", []string{"MAX_CRAWL_DEPTH"})
	bindEnvKeys("crawl.delay_seconds", []string{"CRAWL_DELAY_SECONDS"})

	bindEnvKeys("app.debug", []string{"DEBUG", "REFNET_DEBUG"})

	bindEnvKeys("ingress.bearer_token", []string{"INGRESS_BEARER_TOKEN"})
	bindEnvKeys("ingress.port", []string{"INGRESS_PORT"})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.Vault.Path != "" {
		config.Vault.Path = expandPath(config.Vault.Path)
	}
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}

	durations := map[string]string{
		"ai.timeout":              config.AI.Timeout,
		"catalog.timeout":         config.Catalog.Timeout,
		"database.conn_max_lifetime": config.Database.ConnMaxLifetime,
		"queue.lease_duration":    config.Queue.LeaseDuration,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures required configuration is present
func validateConfig(config *Config) error {
	var errs []string

	switch config.AI.Provider {
	case "openai":
		if config.AI.OpenAI.APIKey == "" {
			errs = append(errs, "OpenAI API key is required when ai.provider=openai. Set OPENAI_API_KEY or LLM_API_KEY")
		}
	case "anthropic":
		if config.AI.Anthropic.APIKey == "" {
			errs = append(errs, "Anthropic API key is required when ai.provider=anthropic. Set ANTHROPIC_API_KEY or LLM_API_KEY")
		}
	default:
		errs = append(errs, fmt.Sprintf("Unknown AI provider: %s. Supported: openai, anthropic", config.AI.Provider))
	}

	if config.Database.ConnectionString == "" {
		errs = append(errs, "database connection string is required. Set DB_URL or database.connection_string")
	}

	if config.Crawl.MaxDepth < 1 {
		errs = append(errs, "crawl.max_depth must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

// Convenience getters for commonly used configuration values
func GetApp() App           { return Get().App }
func GetAI() AI             { return Get().AI }
func GetCatalog() Catalog   { return Get().Catalog }
func GetDatabase() Database { return Get().Database }
func GetQueue() Queue       { return Get().Queue }
func GetVault() Vault       { return Get().Vault }
func GetWorker() Worker     { return Get().Worker }
func GetRetry() Retry       { return Get().Retry }
func GetCrawl() Crawl       { return Get().Crawl }
func GetLogging() Logging   { return Get().Logging }
func GetCLI() CLI           { return Get().CLI }
func GetIngress() Ingress   { return Get().Ingress }

func IsDebugMode() bool { return Get().App.Debug }

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
