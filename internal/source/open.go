package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"csvprofiler/internal/profile"
)

// Source is a row source that holds an open resource.
type Source interface {
	profile.RowSource
	io.Closer
}

// Format names an input layout.
type Format string

const (
	FormatAuto    Format = ""
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
	FormatJSON    Format = "json"
	FormatNDJSON  Format = "ndjson"
	FormatParquet Format = "parquet"
	FormatSQL     Format = "sql"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatCSV, FormatTSV, FormatJSON, FormatNDJSON, FormatParquet, FormatSQL:
		return f, nil
	case "auto":
		return FormatAuto, nil
	case "jsonl":
		return FormatNDJSON, nil
	}
	return "", fmt.Errorf("unknown input format %q", s)
}

// Spec describes what to open.
type Spec struct {
	// Location is a local path, a file:// URL or an http(s):// URL.
	// Ignored for FormatSQL.
	Location string
	Format   Format

	CSV  CSVOptions
	JSON JSONOptions

	// SQL source settings (FormatSQL).
	Driver string
	DSN    string
	Query  string

	// HTTPClient is used for http(s) locations; nil means http.DefaultClient.
	HTTPClient *http.Client
}

// Open resolves spec into a ready row source. Failures to reach the input
// are reported as profile.ErrSourceUnreadable.
func Open(ctx context.Context, spec Spec) (Source, error) {
	switch spec.Format {
	case FormatSQL:
		if spec.Driver == "" || spec.Query == "" {
			return nil, fmt.Errorf("%w: sql source needs a driver and a query", profile.ErrSourceUnreadable)
		}
		s, err := OpenSQL(ctx, spec.Driver, spec.DSN, spec.Query)
		if err != nil {
			return nil, err
		}
		return s, nil
	case FormatParquet:
		return openParquet(ctx, spec.Location)
	}

	format := spec.Format
	if format == FormatAuto {
		format = formatFromExt(spec.Location)
	}
	if format == FormatParquet {
		return openParquet(ctx, spec.Location)
	}

	rc, err := openLocation(ctx, spec.Location, spec.HTTPClient)
	if err != nil {
		return nil, err
	}

	if format == FormatAuto {
		br := bufio.NewReader(rc)
		format = sniffFormat(br)
		rc = readCloser{Reader: br, Closer: rc}
	}

	name := displayName(spec.Location)
	switch format {
	case FormatJSON, FormatNDJSON:
		opt := spec.JSON
		opt.Lines = opt.Lines || format == FormatNDJSON
		return NewJSON(name, rc, opt), nil
	default:
		opt := spec.CSV
		if format == FormatTSV && opt.Delimiter == 0 {
			opt.Delimiter = '\t'
		}
		c, err := NewCSV(name, rc, opt)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

func openLocation(ctx context.Context, loc string, client *http.Client) (io.ReadCloser, error) {
	if loc == "" || loc == "-" {
		return io.NopCloser(os.Stdin), nil
	}

	u, err := url.Parse(loc)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return openHTTP(ctx, loc, client)
		case "file":
			loc = u.Path
		}
	}

	f, err := os.Open(loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", profile.ErrSourceUnreadable, err)
	}
	return f, nil
}

func openHTTP(ctx context.Context, loc string, client *http.Client) (io.ReadCloser, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", profile.ErrSourceUnreadable, loc, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", profile.ErrSourceUnreadable, loc, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s: http status %s", profile.ErrSourceUnreadable, loc, resp.Status)
	}
	return resp.Body, nil
}

func formatFromExt(loc string) Format {
	p := loc
	if u, err := url.Parse(loc); err == nil && u.Scheme != "" {
		p = u.Path
	}
	switch strings.ToLower(filepath.Ext(p)) {
	case ".csv", ".txt":
		return FormatCSV
	case ".tsv", ".tab":
		return FormatTSV
	case ".json":
		return FormatJSON
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	case ".parquet", ".pq":
		return FormatParquet
	}
	return FormatAuto
}

// sniffFormat looks at the first non-space byte: '{' or '[' means JSON,
// anything else is treated as delimited text.
func sniffFormat(br *bufio.Reader) Format {
	b, _ := br.Peek(512)
	b = bytes.TrimPrefix(b, []byte("\xEF\xBB\xBF"))
	b = bytes.TrimLeft(b, " \t\r\n")
	if len(b) > 0 && (b[0] == '{' || b[0] == '[') {
		return FormatJSON
	}
	return FormatCSV
}

func displayName(loc string) string {
	if loc == "" || loc == "-" {
		return "stdin"
	}
	return loc
}
