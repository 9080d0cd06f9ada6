package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"csvprofiler/internal/profile"
)

func renderMarkdown(w io.Writer, s *profile.Summary, opt Options) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Data Profile: %s\n\n", s.Source)
	fmt.Fprintf(&b, "- Generated: %s\n", opt.Timestamp.Format(timestampLayout))
	fmt.Fprintf(&b, "- Total rows: %s\n", count(s.TotalRows))
	fmt.Fprintf(&b, "- Total columns: %d\n", s.TotalColumns)
	fmt.Fprintf(&b, "- Duplicate records: %s\n", count(s.DuplicateRecords))
	if pii := piiColumns(s); pii != "" {
		fmt.Fprintf(&b, "- Possible PII: %s\n", pii)
	}
	b.WriteString("\n## Columns\n\n")

	overview := table.NewWriter()
	overview.AppendHeader(table.Row{"Column", "Type", "Nulls %", "Distinct", "Min", "Max", "Mean"})
	for _, c := range s.Columns {
		overview.AppendRow(table.Row{
			c.Name, string(c.Type), num(c.NullPercentage), count(c.DistinctValues),
			stat(c.Min, -1), stat(c.Max, -1), stat(c.Mean, statPlaces),
		})
	}
	b.WriteString(overview.RenderMarkdown())
	b.WriteString("\n")

	for _, c := range s.Columns {
		fmt.Fprintf(&b, "\n### %s (%s)\n\n", c.Name, c.Type)
		b.WriteString(columnTable(c).RenderMarkdown())
		b.WriteString("\n")
		if len(c.MostFrequent) > 0 {
			b.WriteString("\n")
			b.WriteString(frequentTable(c).RenderMarkdown())
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
