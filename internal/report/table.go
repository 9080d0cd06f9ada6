package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"csvprofiler/internal/profile"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

const rule = 100

func renderTable(w io.Writer, s *profile.Summary, opt Options) error {
	title := "DATA PROFILE REPORT"
	pii := piiColumns(s)
	if pii != "" {
		pii = "Possible PII:      " + pii
	}
	if opt.Color {
		title = titleStyle.Render(title)
		if pii != "" {
			pii = warnStyle.Render(pii)
		}
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("=", rule) + "\n")
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", rule) + "\n")
	fmt.Fprintf(&b, "Source:            %s\n", s.Source)
	fmt.Fprintf(&b, "Generated:         %s\n", opt.Timestamp.Format(timestampLayout))
	fmt.Fprintf(&b, "Total Rows:        %s\n", count(s.TotalRows))
	fmt.Fprintf(&b, "Total Columns:     %d\n", s.TotalColumns)
	fmt.Fprintf(&b, "Duplicate Records: %s\n", count(s.DuplicateRecords))
	if pii != "" {
		b.WriteString(pii + "\n")
	}
	b.WriteString("\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	for _, c := range s.Columns {
		// The heading stays outside the table so a long name or type is
		// never wrapped to the table width.
		heading := fmt.Sprintf("Column: %s | Type: %s", c.Name, c.Type)
		if opt.Color {
			heading = titleStyle.Render(heading)
		}
		if _, err := io.WriteString(w, heading+"\n"); err != nil {
			return err
		}

		t := columnTable(c)
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.Render()

		if len(c.MostFrequent) > 0 {
			ft := frequentTable(c)
			ft.SetOutputMirror(w)
			ft.SetStyle(table.StyleLight)
			ft.Render()
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// columnTable lays out one column's metrics as metric/value rows.
func columnTable(c profile.ColumnProfile) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Total Rows", count(c.TotalRows)},
		{"Null Count", fmt.Sprintf("%s (%s%%)", count(c.NullCount), num(c.NullPercentage))},
		{"Distinct Values", count(c.DistinctValues)},
		{"Duplicate Rows", count(c.DuplicateRows)},
	})
	if c.Cardinality != "" {
		t.AppendRow(table.Row{"Cardinality", string(c.Cardinality)})
	}
	if len(c.PII) > 0 {
		t.AppendRow(table.Row{"PII", joinFlags(c.PII)})
	}
	if c.HasNumericStats() {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Min", stat(c.Min, -1)},
			{"Max", stat(c.Max, -1)},
			{"Mean", stat(c.Mean, statPlaces)},
			{"Median", stat(c.Median, statPlaces)},
			{"Std Dev", stat(c.StdDev, statPlaces)},
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	return t
}

func frequentTable(c profile.ColumnProfile) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Most Frequent", "Count", "%"})
	for i, vc := range c.MostFrequent {
		t.AppendRow(table.Row{
			i + 1,
			quoted(vc.Value),
			count(vc.Count),
			fmt.Sprintf("%.2f", percentOf(vc.Count, c.TotalRows)),
		})
	}
	return t
}

// piiColumns lists flagged columns in column order, e.g. "email (email)".
func piiColumns(s *profile.Summary) string {
	if len(s.PIIFlags) == 0 {
		return ""
	}
	parts := make([]string, 0, len(s.PIIFlags))
	for _, c := range s.Columns {
		if flags, ok := s.PIIFlags[c.Name]; ok {
			parts = append(parts, c.Name+" ("+joinFlags(flags)+")")
		}
	}
	return strings.Join(parts, ", ")
}

func joinFlags(flags []profile.PIIFlag) string {
	ss := make([]string, len(flags))
	for i, f := range flags {
		ss[i] = string(f)
	}
	return strings.Join(ss, ", ")
}
