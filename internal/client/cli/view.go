package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/dmitrijs2005/fastsearch/internal/client/engine"
)

const (
	emOpen  = "<em>"
	emClose = "</em>"

	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"

	defaultWidth = 120
	minCellWidth = 6
)

// Test seams for terminal detection.
var (
	isTerminal = term.IsTerminal
	getSize    = term.GetSize
)

// view prints search state. Highlights become ANSI bold on a terminal and
// [brackets] elsewhere.
type view struct {
	w     io.Writer
	ansi  bool
	width int
}

func newView(f *os.File) *view {
	v := &view{w: f, width: defaultWidth}
	fd := int(f.Fd())
	if isTerminal(fd) {
		v.ansi = true
		if w, _, err := getSize(fd); err == nil && w > 0 {
			v.width = w
		}
	}
	return v
}

func (v *view) status(s engine.State) {
	latency := "-"
	if s.LastLatency != nil {
		latency = s.LastLatency.String()
	}
	fmt.Fprintf(v.w, "term=%q phase=%s page=%d shown=%d total=%d more=%t latency=%s\n",
		s.SearchTerm, s.Phase, s.CurrentPage, len(s.Results), s.TotalReported, s.HasMore, latency)
	if s.LastError != nil {
		fmt.Fprintf(v.w, "last error: %v\n", s.LastError)
	}
}

func (v *view) table(s engine.State, fields []string) {
	if s.LastError != nil {
		fmt.Fprintf(v.w, "error: %v\n", s.LastError)
	}
	if len(s.Results) == 0 {
		fmt.Fprintln(v.w, "No results.")
		return
	}

	cellWidth := v.width/len(fields) - 2
	if cellWidth < minCellWidth {
		cellWidth = minCellWidth
	}

	rows := make([][]cell, 0, len(s.Results)+1)
	header := make([]cell, len(fields))
	for i, f := range fields {
		header[i] = v.cell(f, cellWidth)
	}
	rows = append(rows, header)
	for _, hit := range s.Results {
		values := engine.Render(hit, fields)
		row := make([]cell, len(values))
		for i, val := range values {
			row[i] = v.cell(val, cellWidth)
		}
		rows = append(rows, row)
	}

	widths := make([]int, len(fields))
	for _, row := range rows {
		for i, c := range row {
			widths[i] = max(widths[i], c.width)
		}
	}

	for _, row := range rows {
		var b strings.Builder
		for i, c := range row {
			b.WriteString(c.text)
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-c.width+2))
			}
		}
		fmt.Fprintln(v.w, b.String())
	}

	more := ""
	if s.HasMore {
		more = ", 'more' for next page"
	}
	fmt.Fprintf(v.w, "%d of %d shown%s\n", len(s.Results), s.TotalReported, more)
}

type cell struct {
	text  string
	width int
}

type segment struct {
	text string
	em   bool
}

// split breaks highlighted markup into plain and emphasized runs.
func split(s string) []segment {
	var out []segment
	for s != "" {
		open := strings.Index(s, emOpen)
		if open < 0 {
			out = append(out, segment{text: s})
			break
		}
		if open > 0 {
			out = append(out, segment{text: s[:open]})
		}
		s = s[open+len(emOpen):]
		end := strings.Index(s, emClose)
		if end < 0 {
			out = append(out, segment{text: s, em: true})
			break
		}
		out = append(out, segment{text: s[:end], em: true})
		s = s[end+len(emClose):]
	}
	return out
}

// cell styles s and truncates it to limit visible runes.
func (v *view) cell(s string, limit int) cell {
	var b strings.Builder
	width := 0
	for _, seg := range split(s) {
		text := seg.text
		if n := utf8.RuneCountInString(text); width+n > limit {
			text = truncate(text, limit-width-1) + "…"
		}
		n := utf8.RuneCountInString(text)

		switch {
		case seg.em && v.ansi:
			b.WriteString(ansiBold + text + ansiReset)
		case seg.em:
			b.WriteString("[" + text + "]")
			n += 2
		default:
			b.WriteString(text)
		}
		width += n
		if width >= limit {
			break
		}
	}
	return cell{text: b.String(), width: width}
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
