package config

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found by Validate. Path is the config key.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

var (
	reportFormats = []string{"table", "text", "markdown", "md", "html", "json"}
	inputFormats  = []string{"", "auto", "csv", "tsv", "json", "ndjson", "jsonl", "parquet", "sql"}
	storeKinds    = []string{"", "sqlite", "postgres", "mssql"}
	logFormats    = []string{"text", "json"}
	metricsKinds  = []string{"", "none", "datadog"}
)

// Validate reports every problem at once rather than stopping at the first.
func (c *Config) Validate() []Issue {
	var out []Issue
	add := func(sev Severity, path, format string, args ...any) {
		out = append(out, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if !slices.Contains(reportFormats, c.Format) {
		add(SeverityError, "format", "unknown report format %q", c.Format)
	}
	if c.Workers < 1 {
		add(SeverityError, "workers", "must be at least 1, got %d", c.Workers)
	}
	if c.BatchSize < 1 {
		add(SeverityError, "batch_size", "must be at least 1, got %d", c.BatchSize)
	}
	if c.TopN < 1 {
		add(SeverityError, "top_n", "must be at least 1, got %d", c.TopN)
	}
	if c.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(c.Delimiter)
		switch {
		case size != len(c.Delimiter):
			add(SeverityError, "delimiter", "must be a single character, got %q", c.Delimiter)
		case r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError:
			add(SeverityError, "delimiter", "%q cannot be used as a delimiter", c.Delimiter)
		}
	}
	if c.Encoding != "" {
		if _, err := htmlindex.Get(c.Encoding); err != nil {
			add(SeverityError, "encoding", "unknown character set %q", c.Encoding)
		}
	}
	if !slices.Contains(logFormats, c.LogFormat) {
		add(SeverityError, "log_format", "unknown log format %q", c.LogFormat)
	}

	if !slices.Contains(inputFormats, c.Source.Format) {
		add(SeverityError, "source.format", "unknown input format %q", c.Source.Format)
	}
	if c.Source.Format == "sql" {
		if c.SQL.Driver == "" {
			add(SeverityError, "sql.driver", "required for the sql input format")
		}
		if c.SQL.Query == "" {
			add(SeverityError, "sql.query", "required for the sql input format")
		}
	} else if c.SQL.Query != "" {
		add(SeverityWarning, "sql.query", "ignored unless source.format is sql")
	}

	if !slices.Contains(storeKinds, c.Store.Kind) {
		add(SeverityError, "store.kind", "unknown store %q", c.Store.Kind)
	}
	if c.Store.Kind != "" && c.Store.DSN == "" {
		add(SeverityError, "store.dsn", "required when store.kind is set")
	}

	if !slices.Contains(metricsKinds, c.Metrics.Backend) {
		add(SeverityWarning, "metrics.backend", "unknown backend %q; metrics disabled", c.Metrics.Backend)
	}
	if c.Metrics.Backend == "datadog" && c.Metrics.FlushEvery <= 0 {
		add(SeverityWarning, "metrics.flush_every", "not positive; the backend default applies")
	}
	return out
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
