// Package buildinfo reports version data injected at link time:
//
//	go build -ldflags "-X github.com/dmitrijs2005/fastsearch/internal/buildinfo.buildVersion=v1.0.0"
package buildinfo

import (
	"fmt"
	"io"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// PrintBuildData writes the version, date and commit, using "N/A" for
// values that were not set.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", orNA(buildVersion))
	fmt.Fprintf(w, "Build date: %s\n", orNA(buildDate))
	fmt.Fprintf(w, "Build commit: %s\n", orNA(buildCommit))
}
