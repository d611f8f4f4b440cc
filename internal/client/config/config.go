package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the client.
type Config struct {
	APIBaseURL       string
	PageSize         int
	Debounce         time.Duration
	RetrievalCeiling int
	RequestTimeout   time.Duration
	LogLevel         string
}

func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:4000"
	c.PageSize = 10
	c.Debounce = 300 * time.Millisecond
	c.RetrievalCeiling = 1000
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "warn"
}

func (c *Config) Validate() error {
	switch {
	case c.APIBaseURL == "":
		return fmt.Errorf("api base url is empty")
	case c.PageSize <= 0:
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	case c.RetrievalCeiling < c.PageSize:
		return fmt.Errorf("retrieval ceiling %d is below page size %d", c.RetrievalCeiling, c.PageSize)
	case c.Debounce < 0:
		return fmt.Errorf("debounce must not be negative")
	}
	return nil
}

// LoadConfig builds a Config from defaults, the JSON file named by -c or
// -config, the environment and command-line flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	parseEnv(cfg)
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}
