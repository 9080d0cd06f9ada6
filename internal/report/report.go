// Package report renders a profile summary for people and machines.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"csvprofiler/internal/profile"
)

// Format is an output layout.
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
)

// ParseFormat maps a user supplied name to a Format. "md" is accepted for
// markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatMarkdown, FormatHTML, FormatJSON:
		return f, nil
	case "", "text":
		return FormatTable, nil
	case "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Options tweaks rendering. The zero value renders without color and with
// the current time as the generated timestamp.
type Options struct {
	// Timestamp is printed as "Generated" by the human readable formats.
	Timestamp time.Time
	// Color styles the table title for terminals.
	Color bool
}

// Render writes s to w in format f.
func Render(w io.Writer, s *profile.Summary, f Format, opt Options) error {
	if s == nil {
		return fmt.Errorf("report: nil summary")
	}
	if opt.Timestamp.IsZero() {
		opt.Timestamp = time.Now()
	}

	switch f {
	case FormatTable:
		return renderTable(w, s, opt)
	case FormatMarkdown:
		return renderMarkdown(w, s, opt)
	case FormatHTML:
		return renderHTML(w, s, opt)
	case FormatJSON:
		return renderJSON(w, s)
	}
	return fmt.Errorf("report: unknown format %q", f)
}

const timestampLayout = "2006-01-02 15:04:05"

var printer = message.NewPrinter(language.English)

// count formats n with thousands separators.
func count(n int) string {
	return printer.Sprintf("%d", n)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// stat renders an optional statistic rounded to places decimals.
func stat(p *float64, places int) string {
	if p == nil {
		return "-"
	}
	if places < 0 {
		return num(*p)
	}
	return num(roundTo(*p, places))
}

func percentOf(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// quoted renders a sample value the way it would be typed in code.
func quoted(v string) string {
	return strconv.Quote(v)
}
