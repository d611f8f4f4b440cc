// Package cli provides the interactive search client.
//
// It wires configuration, the users API client and the incremental search
// engine behind a small REPL. Lines starting with "/" set the search term,
// "more" asks for the next page and "show" prints the accumulated results.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
