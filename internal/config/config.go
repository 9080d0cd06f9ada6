// Package config loads csvprofiler settings from defaults, an optional YAML
// file, CSVPROFILER_* environment variables and command line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "CSVPROFILER_"

// FileNames are looked up in the working directory when no --config is given.
var FileNames = []string{"csvprofiler.yaml", "csvprofiler.yml"}

type Config struct {
	Format     string `koanf:"format"`
	Output     string `koanf:"output"`
	Workers    int    `koanf:"workers"`
	BatchSize  int    `koanf:"batch_size"`
	TopN       int    `koanf:"top_n"`
	Delimiter  string `koanf:"delimiter"`
	Encoding   string `koanf:"encoding"`
	TrimSpace  bool   `koanf:"trim_space"`
	LazyQuotes bool   `koanf:"lazy_quotes"`
	PII        bool   `koanf:"pii"`
	Schema     string `koanf:"schema"`
	LogFormat  string `koanf:"log_format"`
	Verbose    bool   `koanf:"verbose"`

	Source  SourceConfig  `koanf:"source"`
	SQL     SQLConfig     `koanf:"sql"`
	Store   StoreConfig   `koanf:"store"`
	Metrics MetricsConfig `koanf:"metrics"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

type SourceConfig struct {
	Format string `koanf:"format"`
}

type SQLConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
	Query  string `koanf:"query"`
}

type StoreConfig struct {
	Kind string `koanf:"kind"`
	DSN  string `koanf:"dsn"`
}

type MetricsConfig struct {
	Backend    string        `koanf:"backend"`
	Job        string        `koanf:"job"`
	Tags       string        `koanf:"tags"`
	FlushEvery time.Duration `koanf:"flush_every"`
}

// Defaults returns the lowest-precedence layer.
func Defaults() map[string]any {
	return map[string]any{
		"format":              "table",
		"workers":             1,
		"batch_size":          10000,
		"top_n":               5,
		"delimiter":           ",",
		"log_format":          "text",
		"metrics.backend":     "none",
		"metrics.job":         "csvprofiler",
		"metrics.flush_every": "60s",
	}
}

// sections are nested keys; their env and flag names use "_" or "-" where
// the config key uses ".".
var sections = []string{"source", "sql", "store", "metrics"}

// envKey maps CSVPROFILER_SQL_DSN to sql.dsn and CSVPROFILER_TOP_N to top_n.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, sec := range sections {
		if rest, ok := strings.CutPrefix(key, sec+"_"); ok {
			return sec + "." + rest
		}
	}
	return key
}

// flagKeys maps flag names whose config key is not the snake_case form.
var flagKeys = map[string]string{
	"input-format": "source.format",
}

func flagKey(name string) string {
	if k, ok := flagKeys[name]; ok {
		return k
	}
	for _, sec := range sections {
		if rest, ok := strings.CutPrefix(name, sec+"-"); ok {
			return sec + "." + strings.ReplaceAll(rest, "-", "_")
		}
	}
	return strings.ReplaceAll(name, "-", "_")
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range FileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds a Config. Precedence, highest first: flags that were set
// explicitly, environment, config file, defaults. An explicit cfgFile that
// cannot be read is an error; a missing default file is not.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	return &cfg, nil
}

// BindFlags registers every config key as a flag on fs. Defaults shown in
// help come from Defaults; only flags the user sets override other layers.
func BindFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("config", "", "config file (default ./csvprofiler.yaml if present)")
	fs.StringP("format", "f", d["format"].(string), "report format: table, markdown, html, json")
	fs.StringP("output", "o", "", "write the report to this file instead of stdout")
	fs.Int("workers", d["workers"].(int), "goroutines profiling columns in parallel")
	fs.Int("batch-size", d["batch_size"].(int), "rows handed to workers per batch")
	fs.Int("top-n", d["top_n"].(int), "most frequent values kept per column")
	fs.String("delimiter", d["delimiter"].(string), "field delimiter for delimited text")
	fs.String("encoding", "", "input character set, e.g. latin1, windows-1252 (default utf-8)")
	fs.Bool("trim-space", false, "trim surrounding whitespace from field values")
	fs.Bool("lazy-quotes", false, "accept malformed quotes in delimited text")
	fs.Bool("pii", false, "flag columns that look like personal data")
	fs.String("schema", "", "expected schema YAML to validate against")
	fs.String("log-format", d["log_format"].(string), "log format: text or json")
	fs.BoolP("verbose", "v", false, "debug logging")
	fs.String("input-format", "", "input format: csv, tsv, json, ndjson, parquet, sql (default from extension)")
	fs.String("sql-driver", "", "database/sql driver for the sql input format: pgx, sqlserver, sqlite, duckdb")
	fs.String("sql-dsn", "", "data source name for the sql input format")
	fs.String("sql-query", "", "query whose result set is profiled")
	fs.String("store-kind", "", "persist the summary: sqlite, postgres, mssql")
	fs.String("store-dsn", "", "data source name for the summary store")
	fs.String("metrics-backend", d["metrics.backend"].(string), "metrics backend: none or datadog")
	fs.String("metrics-job", d["metrics.job"].(string), "job tag for metrics")
	fs.String("metrics-tags", "", "extra comma separated metric tags")
	fs.Duration("metrics-flush-every", time.Minute, "metrics flush interval")
}
