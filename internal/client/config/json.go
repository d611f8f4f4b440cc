package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fastsearch/internal/flagx"
	"github.com/dmitrijs2005/fastsearch/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "300ms" or
// integer nanoseconds.
type JsonConfig struct {
	APIBaseURL       string         `json:"api_base_url"`
	PageSize         int            `json:"page_size"`
	Debounce         timex.Duration `json:"debounce"`
	RetrievalCeiling int            `json:"retrieval_ceiling"`
	RequestTimeout   timex.Duration `json:"request_timeout"`
	LogLevel         string         `json:"log_level"`
}

func parseJson(config *Config) error {
	path := flagx.ConfigPath()
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var c JsonConfig
	if err := json.Unmarshal(b, &c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if c.APIBaseURL != "" {
		config.APIBaseURL = c.APIBaseURL
	}
	if c.PageSize != 0 {
		config.PageSize = c.PageSize
	}
	if c.Debounce.Duration != 0 {
		config.Debounce = c.Debounce.Duration
	}
	if c.RetrievalCeiling != 0 {
		config.RetrievalCeiling = c.RetrievalCeiling
	}
	if c.RequestTimeout.Duration != 0 {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
	return nil
}
