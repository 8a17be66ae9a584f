package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Request RequestConfig `yaml:"request"`
	Query   QueryConfig   `yaml:"query"`
	Contact ContactConfig `yaml:"contact"`
	Log     LogConfig     `yaml:"log"`
	DB      DBConfig      `yaml:"db"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries  int           `yaml:"retries"`
	Timeout  Duration      `yaml:"timeout"`
	Backoff  BackoffConfig `yaml:"backoff"`
	CacheTTL Duration      `yaml:"cache_ttl"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// QueryConfig holds defaults applied to new queries.
type QueryConfig struct {
	TargetLangs        []string `yaml:"target_langs"`
	DurationDays       int      `yaml:"duration_days"` // Revision/pageview window length
	Granularity        string   `yaml:"granularity"`
	BacklinksLimit     int      `yaml:"backlinks_limit"`
	ContributionsLimit int      `yaml:"contributions_limit"`
	Workers            int      `yaml:"workers"`
}

// ContactConfig identifies this client to the Wikimedia APIs.
// The APIs ask for a descriptive User-Agent and a reachable contact address.
type ContactConfig struct {
	UserAgent string `yaml:"user_agent"`
	From      string `yaml:"from"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(60 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(30 * time.Second),
			},
			CacheTTL: Duration(7 * Day),
		},
		Query: QueryConfig{
			TargetLangs:        []string{"de", "en", "fr"},
			DurationDays:       730, // Two years of revisions and pageviews
			Granularity:        "daily",
			BacklinksLimit:     500,
			ContributionsLimit: 500,
			Workers:            4,
		},
		Contact: ContactConfig{
			UserAgent: "WikiStats",
			From:      "noreply@example.org",
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/wikistats.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/wikistats.db",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it is created with default values.
// A .env file next to the working directory may override the contact fields,
// so deployments don't have to edit the YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to save config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables (and a .env file if present) on top
// of the loaded configuration.
func applyEnv(cfg *Config) {
	_ = godotenv.Load() // Missing .env is fine

	if ua := os.Getenv("WIKISTATS_USER_AGENT"); ua != "" {
		cfg.Contact.UserAgent = ua
	}
	if from := os.Getenv("WIKISTATS_FROM"); from != "" {
		cfg.Contact.From = from
	}
}

func (c *Config) validate() error {
	if len(c.Query.TargetLangs) == 0 {
		return fmt.Errorf("query.target_langs must not be empty")
	}
	if c.Query.DurationDays <= 0 {
		return fmt.Errorf("query.duration_days must be positive, got %d", c.Query.DurationDays)
	}
	if c.Query.Workers <= 0 {
		c.Query.Workers = 1
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# WikiStats Configuration
# ----------------------
# Durations accept: ns, us, ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
