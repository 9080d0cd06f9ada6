package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"csvprofiler/internal/profile"
)

// CSVOptions controls how delimited text is parsed.
type CSVOptions struct {
	// Delimiter defaults to ','.
	Delimiter rune
	// TrimSpace trims leading and trailing whitespace from every value.
	TrimSpace bool
	// LazyQuotes tolerates bare quotes inside unquoted fields.
	LazyQuotes bool
	// Encoding names the input charset (WHATWG label, e.g. "windows-1252").
	// Empty means UTF-8.
	Encoding string
}

// CSV streams rows from delimited text. The first record is the header.
//
// Edge cases:
//   - a leading UTF-8 BOM on the header is stripped
//   - blank header names become column_<n> (1-based position)
//   - repeated header names collapse into one column; the last occurrence wins
//   - short records leave the missing columns absent, extra fields are ignored
//   - UTF-8 input with an invalid byte sequence fails with ErrInvalidUTF8
type CSV struct {
	name string
	src  io.Closer
	cr   *csv.Reader
	trim bool

	cols  []string
	colIx []int
	vals  []string
}

// NewCSV wraps r. The returned source owns r and closes it on Close.
func NewCSV(name string, r io.ReadCloser, opt CSVOptions) (*CSV, error) {
	dr, err := decodeCharset(r, opt.Encoding)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("%w: %s: %w", profile.ErrSourceUnreadable, name, err)
	}

	cr := csv.NewReader(dr)
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1

	return &CSV{name: name, src: r, cr: cr, trim: opt.TrimSpace}, nil
}

func (c *CSV) Name() string { return c.name }

func (c *CSV) Close() error { return c.src.Close() }

// Columns reads the header record on first use.
func (c *CSV) Columns(ctx context.Context) ([]string, error) {
	if c.cols != nil {
		return c.cols, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hdr, err := c.cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: no header row", profile.ErrNotTabular, c.name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read header: %w", profile.ErrSourceUnreadable, c.name, err)
	}

	pos := make(map[string]int, len(hdr))
	cols := make([]string, 0, len(hdr))
	var srcIx []int
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		if at, ok := pos[h]; ok {
			srcIx[at] = i
			continue
		}
		pos[h] = len(cols)
		cols = append(cols, h)
		srcIx = append(srcIx, i)
	}

	c.cols = cols
	c.colIx = srcIx
	c.vals = make([]string, len(cols))
	return c.cols, nil
}

// Next returns the next data row. The returned Values slice is reused.
func (c *CSV) Next(ctx context.Context) (profile.Row, error) {
	if c.cols == nil {
		if _, err := c.Columns(ctx); err != nil {
			return profile.Row{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return profile.Row{}, err
	}

	rec, err := c.cr.Read()
	if errors.Is(err, io.EOF) {
		return profile.Row{}, io.EOF
	}
	if err != nil {
		return profile.Row{}, fmt.Errorf("%w: %s: %w", profile.ErrSourceUnreadable, c.name, err)
	}

	for t, si := range c.colIx {
		if si >= len(rec) {
			c.vals[t] = ""
			continue
		}
		v := rec[si]
		if c.trim && hasEdgeSpace(v) {
			v = strings.TrimSpace(v)
		}
		c.vals[t] = v
	}

	line, _ := c.cr.FieldPos(0)
	return profile.Row{Values: c.vals, Line: line}, nil
}

func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return s[0] == ' ' || s[len(s)-1] == ' ' || s[0] == '\t' || s[len(s)-1] == '\t'
}
