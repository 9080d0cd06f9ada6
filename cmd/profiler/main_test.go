package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"csvprofiler/internal/config"
	"csvprofiler/internal/metrics"
	"csvprofiler/internal/metrics/datadog"
	"csvprofiler/internal/profile"
	"csvprofiler/internal/runner"
	"csvprofiler/internal/schema"
)

// fakeRun records what the CLI passed to the runner and returns a canned
// result.
type fakeRun struct {
	res *runner.Result
	err error

	calls atomic.Int64

	mu         sync.Mutex
	lastCfg    config.Config
	lastTarget string
	lastColor  bool
}

func (f *fakeRun) run(ctx context.Context, cfg *config.Config, target string, d runner.Deps) (*runner.Result, error) {
	_ = ctx
	f.calls.Add(1)
	f.mu.Lock()
	f.lastCfg = *cfg
	f.lastTarget = target
	f.lastColor = d.Color
	f.mu.Unlock()
	if f.res != nil && d.Stdout != nil {
		fmt.Fprintln(d.Stdout, "report")
	}
	return f.res, f.err
}

func testDeps(fr *fakeRun) appDeps {
	return appDeps{
		run: fr.run,
		initMetrics: func(context.Context, config.MetricsConfig, *slog.Logger) (func(), error) {
			return func() {}, nil
		},
		isTerminal: func(io.Writer) bool { return false },
	}
}

func okResult() *runner.Result {
	return &runner.Result{Summary: &profile.Summary{
		Source:       "people.csv",
		TotalRows:    2,
		TotalColumns: 2,
		Columns: []profile.ColumnProfile{
			{Name: "id", Type: profile.TypeInteger, TotalRows: 2},
			{Name: "name", Type: profile.TypeString, TotalRows: 2},
		},
	}}
}

func TestRunMain_UsageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		args          []string
		wantStderrSub string
	}{
		{"unknown_flag", []string{"--nope", "x.csv"}, "unknown flag"},
		{"too_many_args", []string{"a.csv", "b.csv"}, "accepts at most 1 arg"},
		{"validate_without_schema", []string{"validate", "a.csv"}, "validate needs --schema"},
		{"invalid_config", []string{"--workers", "0", "a.csv"}, "workers"},
		{"bad_report_format", []string{"--format", "pdf", "a.csv"}, "format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			fr := &fakeRun{}
			code := runMain(context.Background(), tc.args, &stdout, &stderr, testDeps(fr))

			if code != exitUsage {
				t.Fatalf("exit code=%d, want %d; stderr=%q", code, exitUsage, stderr.String())
			}
			if !strings.Contains(stderr.String(), tc.wantStderrSub) {
				t.Fatalf("stderr=%q, want contains %q", stderr.String(), tc.wantStderrSub)
			}
			if stdout.Len() != 0 {
				t.Fatalf("stdout=%q, want empty", stdout.String())
			}
			if got := fr.calls.Load(); got != 0 {
				t.Fatalf("runner calls=%d, want 0", got)
			}
		})
	}
}

func TestRunMain_ExitCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		res           *runner.Result
		err           error
		wantCode      int
		wantStderrSub string
	}{
		{name: "success", res: okResult(), wantCode: exitOK},
		{
			name:          "unreadable",
			err:           fmt.Errorf("%w: open x.csv", profile.ErrSourceUnreadable),
			wantCode:      exitUnreadable,
			wantStderrSub: "source unreadable",
		},
		{
			name:          "not_tabular",
			err:           profile.ErrNotTabular,
			wantCode:      exitNotTabular,
			wantStderrSub: "error:",
		},
		{
			name: "schema_mismatch_prints_issues",
			res: &runner.Result{
				Summary: okResult().Summary,
				Issues:  []schema.Issue{{Severity: schema.SeverityError, Column: "id", Message: "expected float, got string"}},
			},
			err:           runner.ErrSchemaMismatch,
			wantCode:      exitSchemaError,
			wantStderrSub: "schema error: id: expected float, got string",
		},
		{
			name:          "other_error",
			err:           errors.New("store down"),
			wantCode:      exitFailure,
			wantStderrSub: "store down",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			fr := &fakeRun{res: tc.res, err: tc.err}
			code := runMain(context.Background(), []string{"data.csv"}, &stdout, &stderr, testDeps(fr))

			if code != tc.wantCode {
				t.Fatalf("exit code=%d, want %d; stderr=%q", code, tc.wantCode, stderr.String())
			}
			if tc.wantStderrSub != "" && !strings.Contains(stderr.String(), tc.wantStderrSub) {
				t.Fatalf("stderr=%q, want contains %q", stderr.String(), tc.wantStderrSub)
			}
			if got := fr.calls.Load(); got != 1 {
				t.Fatalf("runner calls=%d, want 1", got)
			}
		})
	}
}

func TestRunMain_FlagsReachRunner(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	fr := &fakeRun{res: okResult()}
	code := runMain(context.Background(),
		[]string{"profile", "--format", "md", "--top-n", "3", "--workers", "4", "--pii", "people.csv"},
		&stdout, &stderr, testDeps(fr))
	if code != exitOK {
		t.Fatalf("exit code=%d; stderr=%q", code, stderr.String())
	}

	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fr.lastTarget != "people.csv" {
		t.Fatalf("target=%q, want people.csv", fr.lastTarget)
	}
	if fr.lastCfg.Format != "md" || fr.lastCfg.TopN != 3 || fr.lastCfg.Workers != 4 || !fr.lastCfg.PII {
		t.Fatalf("cfg=%+v, flags not applied", fr.lastCfg)
	}
	if fr.lastCfg.BatchSize != 10000 {
		t.Fatalf("batch_size=%d, want default 10000", fr.lastCfg.BatchSize)
	}
	if stdout.String() != "report\n" {
		t.Fatalf("stdout=%q, want report", stdout.String())
	}
}

func TestRunMain_ColorOnlyForTerminals(t *testing.T) {
	t.Parallel()

	fr := &fakeRun{res: okResult()}
	deps := testDeps(fr)
	deps.isTerminal = func(io.Writer) bool { return true }

	var stdout, stderr bytes.Buffer
	if code := runMain(context.Background(), []string{"x.csv"}, &stdout, &stderr, deps); code != exitOK {
		t.Fatalf("exit code=%d; stderr=%q", code, stderr.String())
	}
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if !fr.lastColor {
		t.Fatalf("color=false, want true for a terminal")
	}
}

func TestRunMain_Version(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	fr := &fakeRun{}
	if code := runMain(context.Background(), []string{"version"}, &stdout, &stderr, testDeps(fr)); code != exitOK {
		t.Fatalf("exit code=%d", code)
	}
	if got := stdout.String(); got != "csvprofiler "+version+"\n" {
		t.Fatalf("stdout=%q", got)
	}
	if fr.calls.Load() != 0 {
		t.Fatalf("version must not profile")
	}
}

func TestRunMain_InferSchema(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	fr := &fakeRun{res: okResult()}
	code := runMain(context.Background(), []string{"infer-schema", "--format", "html", "people.csv"}, &stdout, &stderr, testDeps(fr))
	if code != exitOK {
		t.Fatalf("exit code=%d; stderr=%q", code, stderr.String())
	}

	want := "columns:\n  id: integer\n  name: string\n"
	if got := stdout.String(); got != want {
		t.Fatalf("stdout=%q, want %q", got, want)
	}
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fr.lastCfg.Schema != "" || fr.lastCfg.Output != "" {
		t.Fatalf("infer-schema must not validate or write a report file: %+v", fr.lastCfg)
	}
}

func TestRunMain_InitMetricsErrorSkipsRun(t *testing.T) {
	t.Parallel()

	fr := &fakeRun{res: okResult()}
	deps := testDeps(fr)
	deps.initMetrics = func(context.Context, config.MetricsConfig, *slog.Logger) (func(), error) {
		return nil, errors.New("metrics unavailable")
	}

	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(), []string{"x.csv"}, &stdout, &stderr, deps)
	if code != exitFailure {
		t.Fatalf("exit code=%d, want %d", code, exitFailure)
	}
	if !strings.Contains(stderr.String(), "init metrics:") {
		t.Fatalf("stderr=%q", stderr.String())
	}
	if fr.calls.Load() != 0 {
		t.Fatalf("runner must not run when metrics init fails")
	}
}

func TestRunMain_CleanupRunsOnce(t *testing.T) {
	t.Parallel()

	var cleanups atomic.Int64
	fr := &fakeRun{err: errors.New("boom")}
	deps := testDeps(fr)
	deps.initMetrics = func(_ context.Context, mc config.MetricsConfig, _ *slog.Logger) (func(), error) {
		if mc.Job != "nightly" {
			t.Errorf("metrics job=%q, want nightly", mc.Job)
		}
		return func() { cleanups.Add(1) }, nil
	}

	var stdout, stderr bytes.Buffer
	runMain(context.Background(), []string{"--metrics-job", "nightly", "x.csv"}, &stdout, &stderr, deps)
	if got := cleanups.Load(); got != 1 {
		t.Fatalf("cleanup calls=%d, want 1", got)
	}
}

// fakeMetricsBackend is a metricsBackend that only counts Close calls.
type fakeMetricsBackend struct {
	closed atomic.Int64
}

func (b *fakeMetricsBackend) IncCounter(string, float64, metrics.Labels)       {}
func (b *fakeMetricsBackend) ObserveHistogram(string, float64, metrics.Labels) {}
func (b *fakeMetricsBackend) Flush() error                                     { return nil }
func (b *fakeMetricsBackend) Close() error {
	b.closed.Add(1)
	return nil
}

// The initMetrics tests swap package seams and so do not run in parallel.

func TestInitMetrics_None_DoesNotMutateGlobalState(t *testing.T) {
	oldSet := setMetricsBackend
	defer func() { setMetricsBackend = oldSet }()
	setMetricsBackend = func(metrics.Backend) {
		t.Fatalf("setMetricsBackend must not be called for none")
	}

	cleanup, err := initMetrics(context.Background(), config.MetricsConfig{Backend: "none"}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("initMetrics err=%v, want nil", err)
	}
	if cleanup == nil {
		t.Fatalf("cleanup=nil, want non-nil")
	}
	cleanup()
}

func TestInitMetrics_Datadog_WiresBackendAndCloses(t *testing.T) {
	b := &fakeMetricsBackend{}

	var (
		setCalls atomic.Int64
		gotOpts  datadog.Options
	)
	oldNew, oldSet := newDatadogBackend, setMetricsBackend
	defer func() { newDatadogBackend, setMetricsBackend = oldNew, oldSet }()

	newDatadogBackend = func(_ context.Context, opts datadog.Options) (metricsBackend, error) {
		gotOpts = opts
		return b, nil
	}
	setMetricsBackend = func(metrics.Backend) { setCalls.Add(1) }

	cleanup, err := initMetrics(context.Background(), config.MetricsConfig{
		Backend:    "datadog",
		Job:        "nightly",
		Tags:       "team:data, env:prod",
		FlushEvery: 5 * time.Second,
	}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("initMetrics err=%v", err)
	}
	if gotOpts.JobName != "nightly" || gotOpts.FlushEvery != 5*time.Second {
		t.Fatalf("opts=%+v", gotOpts)
	}
	if len(gotOpts.Tags) != 2 {
		t.Fatalf("tags=%v, want 2", gotOpts.Tags)
	}
	if setCalls.Load() != 1 {
		t.Fatalf("set calls=%d, want 1 before cleanup", setCalls.Load())
	}

	cleanup()
	if got := b.closed.Load(); got != 1 {
		t.Fatalf("close calls=%d, want 1", got)
	}
	if setCalls.Load() != 2 {
		t.Fatalf("set calls=%d, want 2 after cleanup resets the backend", setCalls.Load())
	}
}

func TestInitMetrics_DatadogInitError(t *testing.T) {
	oldNew := newDatadogBackend
	defer func() { newDatadogBackend = oldNew }()
	newDatadogBackend = func(context.Context, datadog.Options) (metricsBackend, error) {
		return nil, errors.New("no api key")
	}

	cleanup, err := initMetrics(context.Background(), config.MetricsConfig{Backend: "datadog"}, slog.New(slog.DiscardHandler))
	if err == nil {
		t.Fatalf("err=nil, want init failure")
	}
	cleanup()
}
