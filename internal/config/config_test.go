package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Pricing.DefaultMarket != "jita" {
		t.Errorf("DefaultMarket = %q, want jita", cfg.Pricing.DefaultMarket)
	}
	if len(cfg.Pricing.Markets) != 5 {
		t.Errorf("Markets = %d, want the 5 trade hubs", len(cfg.Pricing.Markets))
	}
	if cfg.ESI.RateLimit != 20 {
		t.Errorf("RateLimit = %d, want 20", cfg.ESI.RateLimit)
	}
	if cfg.Pricing.BatchSize != 10 || cfg.Pricing.BatchDelay != 500*time.Millisecond {
		t.Errorf("Batch settings = %d/%s", cfg.Pricing.BatchSize, cfg.Pricing.BatchDelay)
	}

	jita := cfg.Pricing.Markets["jita"]
	if jita.RegionID != 10000002 || len(jita.SystemIDs) != 1 || jita.SystemIDs[0] != 30000142 {
		t.Errorf("Jita market = %+v", jita)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: "9090"
pricing:
  default_market: amarr
  history_retention_days: 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want file override 9090", cfg.Port)
	}
	if cfg.Pricing.DefaultMarket != "amarr" {
		t.Errorf("DefaultMarket = %q, want amarr", cfg.Pricing.DefaultMarket)
	}
	if cfg.Pricing.HistoryRetentionDays != 30 {
		t.Errorf("HistoryRetentionDays = %d, want 30", cfg.Pricing.HistoryRetentionDays)
	}
	// Untouched values keep their defaults
	if cfg.ESI.MaxPages != 10 {
		t.Errorf("MaxPages = %d, want default 10", cfg.ESI.MaxPages)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("DEFAULT_MARKET", "rens")
	t.Setenv("PRICE_UPDATE_FREQUENCY_MINUTES", "15")
	t.Setenv("HISTORY_RETENTION_DAYS", "45")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "7000" {
		t.Errorf("Port = %q, want env override 7000", cfg.Port)
	}
	if cfg.Pricing.DefaultMarket != "rens" {
		t.Errorf("DefaultMarket = %q, want rens", cfg.Pricing.DefaultMarket)
	}
	if cfg.Pricing.UpdateFrequency != 15*time.Minute {
		t.Errorf("UpdateFrequency = %s, want 15m", cfg.Pricing.UpdateFrequency)
	}
	if cfg.Pricing.HistoryRetentionDays != 45 {
		t.Errorf("HistoryRetentionDays = %d, want 45", cfg.Pricing.HistoryRetentionDays)
	}
}

func TestLoadRejectsUnknownDefaultMarket(t *testing.T) {
	t.Setenv("DEFAULT_MARKET", "perimeter")

	if _, err := Load(""); err == nil {
		t.Error("Expected error for default market not in the market set")
	}
}

func TestLoadMissingFileIsFine(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Errorf("Missing config file should fall back to defaults, got %v", err)
	}
}
