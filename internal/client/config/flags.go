package config

import (
	"flag"
	"io"
	"os"

	"github.com/dmitrijs2005/fastsearch/internal/flagx"
)

// EnvAPIBaseURL overrides the API location.
const EnvAPIBaseURL = "API_BASE_URL"

var lookupEnv = os.LookupEnv

func parseEnv(config *Config) {
	if v, ok := lookupEnv(EnvAPIBaseURL); ok && v != "" {
		config.APIBaseURL = v
	}
}

// parseFlags populates Config from command-line flags:
//
//	-a string         API base URL
//	-page-size int    results per page
//	-debounce dur     quiet period before a search is sent
//	-ceiling int      maximum number of results retrieved per term
//	-timeout dur      per-request timeout
//	-log-level string
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-page-size", "-debounce", "-ceiling", "-timeout", "-log-level"})

	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.APIBaseURL, "a", config.APIBaseURL, "API base URL")
	fs.IntVar(&config.PageSize, "page-size", config.PageSize, "results per page")
	fs.DurationVar(&config.Debounce, "debounce", config.Debounce, "debounce delay")
	fs.IntVar(&config.RetrievalCeiling, "ceiling", config.RetrievalCeiling, "retrieval ceiling")
	fs.DurationVar(&config.RequestTimeout, "timeout", config.RequestTimeout, "request timeout")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	return fs.Parse(args)
}
