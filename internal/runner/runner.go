// Package runner wires a configured profiling run end to end: open the
// input, profile it, check it against an expected schema, persist it and
// render the report.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"csvprofiler/internal/config"
	"csvprofiler/internal/metrics"
	"csvprofiler/internal/profile"
	"csvprofiler/internal/report"
	"csvprofiler/internal/schema"
	"csvprofiler/internal/source"
	"csvprofiler/internal/storage"
)

// ErrSchemaMismatch is returned, together with a full Result, when the
// profiled data violates the expected schema.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Deps are external seams. Zero values fall back to the process defaults.
type Deps struct {
	Stdout     io.Writer
	Logger     *slog.Logger
	HTTPClient *http.Client
	Now        func() time.Time
	// Color enables terminal styling when the report goes to Stdout.
	Color bool
}

func (d Deps) withDefaults() Deps {
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Result is everything a run produced.
type Result struct {
	Summary *profile.Summary
	Issues  []schema.Issue
	// RunID is set when the summary was stored.
	RunID string
	// ReportPath is the file the report was written to; empty for Stdout.
	ReportPath string
}

// Run profiles target according to cfg. Bad report formats and schema files
// fail before any input is read. Schema errors return the Result together
// with ErrSchemaMismatch.
func Run(ctx context.Context, cfg *config.Config, target string, d Deps) (*Result, error) {
	d = d.withDefaults()
	log := d.Logger.With("target", displayTarget(cfg, target))

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	var expected *schema.Expected
	if cfg.Schema != "" {
		if expected, err = schema.Load(cfg.Schema); err != nil {
			return nil, err
		}
	}

	spec, err := sourceSpec(cfg, target, d.HTTPClient)
	if err != nil {
		return nil, err
	}

	log.Info("profile started", "format", spec.Format, "workers", cfg.Workers)
	start := d.Now()
	sum, err := profileSource(ctx, spec, cfg, log)
	elapsed := d.Now().Sub(start)
	recordMetrics(sum, err, elapsed)
	if err != nil {
		log.Error("profile failed", "err", err, "elapsed", elapsed)
		return nil, err
	}
	log.Info("profile finished",
		"rows", sum.TotalRows,
		"columns", sum.TotalColumns,
		"duplicate_records", sum.DuplicateRecords,
		"elapsed", elapsed)

	res := &Result{Summary: sum}

	if expected != nil {
		res.Issues = schema.Validate(expected, sum)
		for _, iss := range res.Issues {
			log.Warn("schema", "severity", iss.Severity, "column", iss.Column, "message", iss.Message)
		}
	}

	if cfg.Store.Kind != "" {
		if res.RunID, err = store(ctx, cfg.Store, sum); err != nil {
			return res, err
		}
		log.Info("summary stored", "store", cfg.Store.Kind, "run_id", res.RunID)
	}

	if res.ReportPath, err = writeReport(cfg.Output, d, sum, format); err != nil {
		return res, err
	}
	if res.ReportPath != "" {
		log.Info("report written", "path", res.ReportPath, "format", format)
	}

	if schema.HasErrors(res.Issues) {
		return res, ErrSchemaMismatch
	}
	return res, nil
}

func displayTarget(cfg *config.Config, target string) string {
	if cfg.Source.Format == string(source.FormatSQL) {
		return cfg.SQL.Driver + ":query"
	}
	if target == "" {
		return "stdin"
	}
	return target
}

func sourceSpec(cfg *config.Config, target string, client *http.Client) (source.Spec, error) {
	format, err := source.ParseFormat(cfg.Source.Format)
	if err != nil {
		return source.Spec{}, err
	}

	var delim rune
	if cfg.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(cfg.Delimiter)
		if size != len(cfg.Delimiter) {
			return source.Spec{}, fmt.Errorf("delimiter must be a single character, got %q", cfg.Delimiter)
		}
		delim = r
	}
	if format == source.FormatTSV {
		delim = '\t'
	}

	return source.Spec{
		Location: target,
		Format:   format,
		CSV: source.CSVOptions{
			Delimiter:  delim,
			TrimSpace:  cfg.TrimSpace,
			LazyQuotes: cfg.LazyQuotes,
			Encoding:   cfg.Encoding,
		},
		Driver:     cfg.SQL.Driver,
		DSN:        cfg.SQL.DSN,
		Query:      cfg.SQL.Query,
		HTTPClient: client,
	}, nil
}

func profileSource(ctx context.Context, spec source.Spec, cfg *config.Config, log *slog.Logger) (*profile.Summary, error) {
	src, err := source.Open(ctx, spec)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			log.Warn("close source", "err", cerr)
		}
	}()

	return profile.Run(ctx, src, profile.Options{
		Workers:   cfg.Workers,
		BatchSize: cfg.BatchSize,
		TopN:      cfg.TopN,
		DetectPII: cfg.PII,
		Logger:    log,
	})
}

// Status classifies a run outcome for metrics labels.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, profile.ErrSourceUnreadable):
		return "unreadable"
	case errors.Is(err, profile.ErrNotTabular):
		return "not_tabular"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "error"
}

func recordMetrics(sum *profile.Summary, err error, elapsed time.Duration) {
	var (
		rows  int
		types map[string]int
	)
	if sum != nil {
		rows = sum.TotalRows
		types = make(map[string]int)
		for _, c := range sum.Columns {
			types[string(c.Type)]++
		}
	}
	metrics.RecordRun(Status(err), rows, types, elapsed)
}

func store(ctx context.Context, sc config.StoreConfig, sum *profile.Summary) (string, error) {
	repo, err := storage.New(ctx, storage.Config{Kind: sc.Kind, DSN: sc.DSN})
	if err != nil {
		return "", fmt.Errorf("open store: %w", err)
	}
	defer repo.Close()

	if err := repo.EnsureTables(ctx); err != nil {
		return "", fmt.Errorf("ensure store tables: %w", err)
	}
	id, err := repo.SaveSummary(ctx, "", sum)
	if err != nil {
		return "", fmt.Errorf("save summary: %w", err)
	}
	return id, nil
}

// writeReport renders to path, creating parent directories, or to Stdout
// when path is empty.
func writeReport(path string, d Deps, sum *profile.Summary, format report.Format) (string, error) {
	opt := report.Options{Timestamp: d.Now()}
	if path == "" {
		opt.Color = d.Color
		return "", report.Render(d.Stdout, sum, format, opt)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := report.Render(f, sum, format, opt); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return path, nil
}
