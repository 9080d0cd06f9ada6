package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "table", cfg.Format)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 10000, cfg.BatchSize)
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, ",", cfg.Delimiter)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "none", cfg.Metrics.Backend)
	assert.Equal(t, time.Minute, cfg.Metrics.FlushEvery)
	assert.Empty(t, cfg.File)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "p.yaml", `
format: markdown
workers: 2
top_n: 3
sql:
  driver: sqlite
store:
  kind: sqlite
  dsn: file.db
metrics:
  flush_every: 5s
`)
	t.Setenv("CSVPROFILER_WORKERS", "4")
	t.Setenv("CSVPROFILER_STORE_DSN", "env.db")
	t.Setenv("CSVPROFILER_METRICS_FLUSH_EVERY", "10s")

	fs := newFlags(t, "--workers=8", "--sql-driver", "pgx")
	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "markdown", cfg.Format, "file beats default")
	assert.Equal(t, 3, cfg.TopN, "unset flag keeps file value")
	assert.Equal(t, 8, cfg.Workers, "flag beats env and file")
	assert.Equal(t, "env.db", cfg.Store.DSN, "env beats file")
	assert.Equal(t, "sqlite", cfg.Store.Kind)
	assert.Equal(t, "pgx", cfg.SQL.Driver)
	assert.Equal(t, 10*time.Second, cfg.Metrics.FlushEvery)
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "csvprofiler.yaml", "pii: true\n")
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.True(t, cfg.PII)
	assert.Equal(t, "csvprofiler.yaml", cfg.File)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestFlagAndEnvKeys(t *testing.T) {
	tests := map[string]string{
		"top-n":               "top_n",
		"input-format":        "source.format",
		"sql-dsn":             "sql.dsn",
		"metrics-flush-every": "metrics.flush_every",
		"format":              "format",
	}
	for in, want := range tests {
		assert.Equal(t, want, flagKey(in), in)
	}

	assert.Equal(t, "batch_size", envKey("CSVPROFILER_BATCH_SIZE"))
	assert.Equal(t, "sql.query", envKey("CSVPROFILER_SQL_QUERY"))
	assert.Equal(t, "source.format", envKey("CSVPROFILER_SOURCE_FORMAT"))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Format: "table", Workers: 1, BatchSize: 1, TopN: 1, Delimiter: ",", LogFormat: "text"}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
		sev    Severity
	}{
		{"bad format", func(c *Config) { c.Format = "pdf" }, "format", SeverityError},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers", SeverityError},
		{"zero top_n", func(c *Config) { c.TopN = 0 }, "top_n", SeverityError},
		{"long delimiter", func(c *Config) { c.Delimiter = ";;" }, "delimiter", SeverityError},
		{"quote delimiter", func(c *Config) { c.Delimiter = `"` }, "delimiter", SeverityError},
		{"unknown encoding", func(c *Config) { c.Encoding = "klingon-8" }, "encoding", SeverityError},
		{"sql without driver", func(c *Config) { c.Source.Format = "sql"; c.SQL.Query = "select 1" }, "sql.driver", SeverityError},
		{"stray query", func(c *Config) { c.SQL.Query = "select 1" }, "sql.query", SeverityWarning},
		{"store without dsn", func(c *Config) { c.Store.Kind = "sqlite" }, "store.dsn", SeverityError},
		{"unknown store", func(c *Config) { c.Store.Kind = "redis"; c.Store.DSN = "x" }, "store.kind", SeverityError},
		{"unknown metrics", func(c *Config) { c.Metrics.Backend = "statsd" }, "metrics.backend", SeverityWarning},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			issues := c.Validate()
			require.Len(t, issues, 1, "%v", issues)
			assert.Equal(t, tc.path, issues[0].Path)
			assert.Equal(t, tc.sev, issues[0].Severity)
			assert.Equal(t, tc.sev == SeverityError, HasErrors(issues))
		})
	}

	c := base()
	c.Encoding = "latin1"
	c.Delimiter = "\t"
	assert.Empty(t, c.Validate())
}
