// Package flagx contains helpers for parsing command-line flags that belong to
// different configuration layers of the same binary.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the flags listed in allowed (plus their values) from
// args, preserving order. Both "-f value" and "-f=value" forms are recognised;
// a following argument is treated as the value unless it starts with "-".
func FilterArgs(args []string, allowed []string) []string {
	known := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		known[f] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if known[name] {
				out = append(out, arg)
			}
			continue
		}

		if !known[arg] {
			continue
		}
		out = append(out, arg)
		if next := i + 1; next < len(args) && !strings.HasPrefix(args[next], "-") {
			out = append(out, args[next])
			i = next
		}
	}

	return out
}

// ConfigPath returns the JSON config file named by -c or -config, or "" when
// neither flag is present.
func ConfigPath() string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(discard{})
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(os.Args[1:], []string{"-c", "-config", "--c", "--config"}))

	return path
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
