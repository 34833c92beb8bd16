package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harbibet/harbi/internal/pkg/models"
)

type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Matching  MatchingConfig  `yaml:"matching"`
	Arbitrage ArbitrageConfig `yaml:"arbitrage"`
	Sources   []SourceConfig  `yaml:"sources"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`    // "debug", "info", "warn", "error"
	LogFile string `yaml:"log_file"` // optional JSON log sink
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // snapshot lifetime, default 1h
}

type TelegramConfig struct {
	BotToken string  `yaml:"bot_token"`
	ChatIDs  []int64 `yaml:"chat_ids"`
	Cooldown time.Duration `yaml:"cooldown"` // min time before re-announcing the same opportunity
}

type PipelineConfig struct {
	// Cycle interval is randomized between min and max so the external
	// fetchers are not hit on a fixed beat.
	IntervalMin time.Duration `yaml:"interval_min"`
	IntervalMax time.Duration `yaml:"interval_max"`
	RunOnce     bool          `yaml:"run_once"`
}

type MatchingConfig struct {
	// MinConfidence gates automatic matching. Double-confirmed import
	// paths pass 100 explicitly; there is deliberately no single global
	// policy.
	MinConfidence int `yaml:"min_confidence"`
}

type ArbitrageConfig struct {
	// MinEdge is the minimum spread (e.g. "0.001") before an opportunity
	// is flagged, filtering quoting-increment noise.
	MinEdge string `yaml:"min_edge"`
}

type SourceConfig struct {
	Name          models.SourceID   `yaml:"name"`
	PriceModel    models.PriceModel `yaml:"price_model"`
	Authoritative bool              `yaml:"authoritative"`
	EventsFile    string            `yaml:"events_file"`
	StatusFile    string            `yaml:"status_file"`
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) validate() error {
	auth := 0
	for _, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("source with empty name")
		}
		if len(s.PriceModel.Outcomes()) == 0 {
			return fmt.Errorf("source %s: unknown price_model %q", s.Name, s.PriceModel)
		}
		if s.Authoritative {
			if !s.PriceModel.IsLay() {
				return fmt.Errorf("source %s: authoritative source must quote lay prices", s.Name)
			}
			auth++
		}
	}
	if len(c.Sources) > 0 && auth != 1 {
		return fmt.Errorf("exactly one authoritative source required, got %d", auth)
	}
	// The evaluator pairs prices by outcome name, so a source whose model
	// shares no outcomes with the anchor would correlate but never yield
	// an opportunity. Reject the config instead of running dead sources.
	if anchor, ok := c.Authoritative(); ok {
		for _, s := range c.Sources {
			if len(s.PriceModel.Outcomes()) != len(anchor.PriceModel.Outcomes()) {
				return fmt.Errorf("source %s: price_model %q shares no outcomes with authoritative %q",
					s.Name, s.PriceModel, anchor.PriceModel)
			}
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Matching.MinConfidence == 0 {
		c.Matching.MinConfidence = 60
	}
	if c.Arbitrage.MinEdge == "" {
		c.Arbitrage.MinEdge = "0.001"
	}
	if c.Pipeline.IntervalMin == 0 {
		c.Pipeline.IntervalMin = 3 * time.Minute
	}
	if c.Pipeline.IntervalMax < c.Pipeline.IntervalMin {
		c.Pipeline.IntervalMax = c.Pipeline.IntervalMin + 2*time.Minute
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = time.Hour
	}
	if c.Telegram.Cooldown == 0 {
		c.Telegram.Cooldown = time.Hour
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Authoritative returns the configured authoritative source.
func (c *Config) Authoritative() (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Authoritative {
			return s, true
		}
	}
	return SourceConfig{}, false
}
