package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Search(ctx context.Context, term string) error
	More(ctx context.Context) error
	Show(ctx context.Context) error
	Status(ctx context.Context) error
}

const helpText = `Commands:
  /<term>          set the search term ("/" alone clears it)
  search <term>    same as /<term>
  more | m         load the next page
  show | s         print the results
  status           print the engine state
  exit | quit      leave the program`

// runREPL reads commands from scanner and dispatches them to a until the
// input ends or the user types "exit" or "quit". Command errors are printed
// and the loop continues.
func runREPL(ctx context.Context, a execIface, promptFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(promptFn())
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		if term, ok := strings.CutPrefix(line, "/"); ok {
			err = a.Search(ctx, term)
		} else {
			cmd, rest, _ := strings.Cut(line, " ")
			switch cmd {
			case "help":
				printlnFn(helpText)

			case "search":
				err = a.Search(ctx, strings.TrimSpace(rest))

			case "m", "more":
				err = a.More(ctx)

			case "s", "show":
				err = a.Show(ctx)

			case "status":
				err = a.Status(ctx)

			case "exit", "quit":
				printlnFn("Bye!")
				return

			default:
				printlnFn("Unknown command:", cmd)
			}
		}

		if err != nil {
			printlnFn("Error:", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
