package config

import (
	"flag"
	"io"
	"os"

	"github.com/dmitrijs2005/fastsearch/internal/flagx"
)

var knownFlags = []string{
	"-driver", "-dsn", "-backend", "-meili-host", "-meili-key", "-index",
	"-count", "-batch", "-workers", "-seed", "-ceiling", "-rate",
	"-snapshot", "-reseed", "-reconcile-since", "-log-level",
}

// parseFlags overlays Config with command-line flags. Arguments that belong
// to other layers (such as -c) are filtered out first.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("seeder", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver: pgx or sqlite")
	fs.StringVar(&config.DatabaseDSN, "dsn", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SearchBackend, "backend", config.SearchBackend, "search backend: meilisearch or memory")
	fs.StringVar(&config.MeiliHost, "meili-host", config.MeiliHost, "Meilisearch URL")
	fs.StringVar(&config.MeiliAPIKey, "meili-key", config.MeiliAPIKey, "Meilisearch API key")
	fs.StringVar(&config.IndexName, "index", config.IndexName, "search index name")
	fs.IntVar(&config.Count, "count", config.Count, "number of records to seed")
	fs.IntVar(&config.BatchSize, "batch", config.BatchSize, "records per batch")
	fs.IntVar(&config.Workers, "workers", config.Workers, "generator workers")
	fs.Uint64Var(&config.Seed, "seed", config.Seed, "generator seed, 0 for random")
	fs.Int64Var(&config.PaginationCeiling, "ceiling", config.PaginationCeiling, "pagination ceiling of the index")
	fs.Float64Var(&config.BatchesPerSecond, "rate", config.BatchesPerSecond, "batches per second, 0 for unlimited")
	fs.StringVar(&config.SnapshotPath, "snapshot", config.SnapshotPath, "write generated records to this zstd snapshot")
	fs.StringVar(&config.ReseedPath, "reseed", config.ReseedPath, "replay records from this snapshot")
	fs.StringVar(&config.ReconcileSince, "reconcile-since", config.ReconcileSince, "copy store rows changed after this RFC 3339 time into the index")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	return fs.Parse(args)
}
