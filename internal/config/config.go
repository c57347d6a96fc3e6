package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Market identifies a trading hub: a region plus an optional system filter.
// An empty SystemIDs list means orders from the whole region count.
type Market struct {
	Name      string  `yaml:"name"`
	RegionID  int32   `yaml:"region_id"`
	SystemIDs []int32 `yaml:"system_ids"`
}

// Config holds all application configuration.
type Config struct {
	Port   string `yaml:"port"`
	DBPath string `yaml:"db_path"`

	ESI struct {
		BaseURL   string        `yaml:"base_url"`
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit int           `yaml:"rate_limit"` // requests per second
		MaxPages  int           `yaml:"max_pages"`  // hard cap per type, bounds memory
	} `yaml:"esi"`

	Pricing struct {
		DefaultMarket   string            `yaml:"default_market"`
		Markets         map[string]Market `yaml:"markets"`
		UpdateFrequency time.Duration     `yaml:"update_frequency"`
		BatchSize       int               `yaml:"batch_size"`
		BatchDelay      time.Duration     `yaml:"batch_delay"`
		// Configured percentiles per side. Note the statistics engine
		// currently computes a fixed 5th percentile for both sides; these
		// values are carried for compatibility with the settings store.
		BuyPercentile        float64 `yaml:"buy_percentile"`
		SellPercentile       float64 `yaml:"sell_percentile"`
		MinOrderVolume       int64   `yaml:"min_order_volume"`
		HistoryRetentionDays int     `yaml:"history_retention_days"`
	} `yaml:"pricing"`

	Cache struct {
		PriceTTL time.Duration `yaml:"price_ttl"`
	} `yaml:"cache"`

	Appraisal struct {
		DefaultPercentage float64 `yaml:"default_percentage"`
		RetentionDays     int     `yaml:"retention_days"` // 0 = keep forever
		MaxItems          int     `yaml:"max_items"`
	} `yaml:"appraisal"`
}

// DefaultMarkets are the trade hubs known out of the box. A markets file can
// replace or extend this set.
func DefaultMarkets() map[string]Market {
	return map[string]Market{
		"jita":    {Name: "Jita", RegionID: 10000002, SystemIDs: []int32{30000142}},
		"amarr":   {Name: "Amarr", RegionID: 10000043, SystemIDs: []int32{30002187}},
		"dodixie": {Name: "Dodixie", RegionID: 10000032, SystemIDs: []int32{30002659}},
		"hek":     {Name: "Hek", RegionID: 10000042, SystemIDs: []int32{30002053}},
		"rens":    {Name: "Rens", RegionID: 10000030, SystemIDs: []int32{30002510}},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variable overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Port = "8080"
	cfg.DBPath = "./pricing_core.db"

	cfg.ESI.BaseURL = "https://esi.evetech.net/latest"
	cfg.ESI.Timeout = 30 * time.Second
	cfg.ESI.RateLimit = 20
	cfg.ESI.MaxPages = 10

	cfg.Pricing.DefaultMarket = "jita"
	cfg.Pricing.Markets = DefaultMarkets()
	cfg.Pricing.UpdateFrequency = 4 * time.Hour
	cfg.Pricing.BatchSize = 10
	cfg.Pricing.BatchDelay = 500 * time.Millisecond
	cfg.Pricing.BuyPercentile = 0.99
	cfg.Pricing.SellPercentile = 0.01
	cfg.Pricing.MinOrderVolume = 2
	cfg.Pricing.HistoryRetentionDays = 90

	cfg.Cache.PriceTTL = time.Minute

	cfg.Appraisal.DefaultPercentage = 100
	cfg.Appraisal.RetentionDays = 30
	cfg.Appraisal.MaxItems = 1000

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if cfg.Pricing.Markets == nil || len(cfg.Pricing.Markets) == 0 {
		cfg.Pricing.Markets = DefaultMarkets()
	}

	// Environment variable overrides
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("ESI_BASE_URL"); v != "" {
		cfg.ESI.BaseURL = v
	}
	if v := os.Getenv("DEFAULT_MARKET"); v != "" {
		cfg.Pricing.DefaultMarket = v
	}
	if v := os.Getenv("PRICE_UPDATE_FREQUENCY_MINUTES"); v != "" {
		if mins, err := strconv.Atoi(v); err == nil && mins > 0 {
			cfg.Pricing.UpdateFrequency = time.Duration(mins) * time.Minute
		}
	}
	if v := os.Getenv("APPRAISAL_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days >= 0 {
			cfg.Appraisal.RetentionDays = days
		}
	}
	if v := os.Getenv("HISTORY_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.Pricing.HistoryRetentionDays = days
		}
	}

	if _, ok := cfg.Pricing.Markets[cfg.Pricing.DefaultMarket]; !ok {
		return nil, fmt.Errorf("default market %q is not a configured market", cfg.Pricing.DefaultMarket)
	}

	return cfg, nil
}
