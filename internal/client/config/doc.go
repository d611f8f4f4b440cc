// Package config loads runtime configuration for the search CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. The API_BASE_URL environment variable.
//  4. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "300ms" or
// integer nanoseconds:
//
//	{
//	  "api_base_url": "http://localhost:4000",
//	  "page_size": 10,
//	  "debounce": "300ms",
//	  "retrieval_ceiling": 1000,
//	  "request_timeout": "10s"
//	}
package config
