package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fastsearch/internal/flagx"
	"github.com/dmitrijs2005/fastsearch/internal/timex"
)

// JsonConfig is the on-disk form of Config. Absent fields keep the value
// set by earlier layers.
type JsonConfig struct {
	DatabaseDriver    string         `json:"database_driver"`
	DatabaseDSN       string         `json:"database_dsn"`
	SearchBackend     string         `json:"search_backend"`
	MeiliHost         string         `json:"meili_host"`
	MeiliAPIKey       string         `json:"meili_api_key"`
	IndexName         string         `json:"index_name"`
	Count             int            `json:"count"`
	BatchSize         int            `json:"batch_size"`
	Workers           int            `json:"workers"`
	Seed              uint64         `json:"seed"`
	PaginationCeiling int64          `json:"pagination_ceiling"`
	BatchesPerSecond  float64        `json:"batches_per_second"`
	TaskPollInterval  timex.Duration `json:"task_poll_interval"`
	SnapshotPath      string         `json:"snapshot_path"`
	LogLevel          string         `json:"log_level"`
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

	c := &JsonConfig{}
	if err := json.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SearchBackend, c.SearchBackend)
	setString(&config.MeiliHost, c.MeiliHost)
	setString(&config.MeiliAPIKey, c.MeiliAPIKey)
	setString(&config.IndexName, c.IndexName)
	setString(&config.SnapshotPath, c.SnapshotPath)
	setString(&config.LogLevel, c.LogLevel)
	if c.Count != 0 {
		config.Count = c.Count
	}
	if c.BatchSize != 0 {
		config.BatchSize = c.BatchSize
	}
	if c.Workers != 0 {
		config.Workers = c.Workers
	}
	if c.Seed != 0 {
		config.Seed = c.Seed
	}
	if c.PaginationCeiling != 0 {
		config.PaginationCeiling = c.PaginationCeiling
	}
	if c.BatchesPerSecond != 0 {
		config.BatchesPerSecond = c.BatchesPerSecond
	}
	if c.TaskPollInterval.Duration != 0 {
		config.TaskPollInterval = c.TaskPollInterval.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
