package config

import "os"

// Environment variables recognised by the seeder.
const (
	EnvMeiliDSN       = "MEILI_DSN"
	EnvMeiliMasterKey = "MEILI_MASTER_KEY"
	EnvDatabaseDSN    = "DATABASE_DSN"
	EnvDatabaseDriver = "DATABASE_DRIVER"
)

// lookupEnv is a seam for tests.
var lookupEnv = os.LookupEnv

func parseEnv(config *Config) {
	if v, ok := lookupEnv(EnvMeiliDSN); ok && v != "" {
		config.MeiliHost = v
	}
	if v, ok := lookupEnv(EnvMeiliMasterKey); ok {
		config.MeiliAPIKey = v
	}
	if v, ok := lookupEnv(EnvDatabaseDSN); ok && v != "" {
		config.DatabaseDSN = v
	}
	if v, ok := lookupEnv(EnvDatabaseDriver); ok && v != "" {
		config.DatabaseDriver = v
	}
}
