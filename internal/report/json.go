package report

import (
	"encoding/json"
	"io"

	"csvprofiler/internal/profile"
)

// renderJSON writes the summary with mean, median and std_dev rounded to four
// decimals. Min and max are written as observed.
func renderJSON(w io.Writer, s *profile.Summary) error {
	out := *s
	out.Columns = make([]profile.ColumnProfile, len(s.Columns))
	for i, c := range s.Columns {
		c.Mean = roundPtr(c.Mean, statPlaces)
		c.Median = roundPtr(c.Median, statPlaces)
		c.StdDev = roundPtr(c.StdDev, statPlaces)
		out.Columns[i] = c
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&out)
}
