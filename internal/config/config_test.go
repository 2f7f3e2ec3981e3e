package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func resetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	Reset()
}

func TestLoadDefaults(t *testing.T) {
	resetEnv(t, "OPENAI_API_KEY", "DB_URL")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DB_URL", "postgres://localhost/refnet")
	Reset()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AI.Provider != "openai" {
		t.Errorf("expected default provider 'openai', got %s", cfg.AI.Provider)
	}
	if cfg.Crawl.MaxDepth != 3 {
		t.Errorf("expected default max depth 3, got %d", cfg.Crawl.MaxDepth)
	}
	if cfg.Worker.ConcurrencyCrawl != 4 {
		t.Errorf("expected default crawl concurrency 4, got %d", cfg.Worker.ConcurrencyCrawl)
	}
}

func TestLoadMissingAPIKeyFails(t *testing.T) {
	resetEnv(t, "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "LLM_API_KEY", "DB_URL")
	t.Setenv("DB_URL", "postgres://localhost/refnet")
	Reset()

	if _, err := Load(""); err == nil {
		t.Errorf("expected error when no AI API key is configured")
	}
}

func TestLoadMissingDatabaseFails(t *testing.T) {
	resetEnv(t, "OPENAI_API_KEY", "DB_URL")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	Reset()

	if _, err := Load(""); err == nil {
		t.Errorf("expected error when database connection string is missing")
	}
}

func TestBindEnvKeysPrefersFirstPresent(t *testing.T) {
	resetEnv(t, "A_KEY", "B_KEY")
	t.Setenv("B_KEY", "fallback")

	bindEnvKeys("test.key", []string{"A_KEY", "B_KEY"})
	if got := viper.GetString("test.key"); got != "fallback" {
		t.Errorf("expected test.key bound from B_KEY as 'fallback', got %s", got)
	}
}
