package profile

import "context"

// Row is one data row, positionally aligned to the source's column list.
// An empty string is an absent value. Values may be reused by the source
// after the next call to Next.
type Row struct {
	Values []string
	Line   int
}

// RowSource is a tabular input. Columns fixes the column set before any row
// is read; Next returns io.EOF after the last row.
type RowSource interface {
	Name() string
	Columns(ctx context.Context) ([]string, error)
	Next(ctx context.Context) (Row, error)
}

func valueAt(vals []string, i int) string {
	if i < len(vals) {
		return vals[i]
	}
	return ""
}
