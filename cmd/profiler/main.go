package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"csvprofiler/internal/config"
	"csvprofiler/internal/logging"
	"csvprofiler/internal/metrics"
	"csvprofiler/internal/metrics/datadog"
	"csvprofiler/internal/profile"
	"csvprofiler/internal/runner"
	"csvprofiler/internal/schema"

	// register all backends with the storage factory.
	// config picks one at run time.
	_ "csvprofiler/internal/storage/all"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitUnreadable  = 3
	exitNotTabular  = 4
	exitSchemaError = 5
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()
	os.Exit(code)
}

// appDeps are the seams runMain needs; tests swap them for fakes.
type appDeps struct {
	run         func(context.Context, *config.Config, string, runner.Deps) (*runner.Result, error)
	initMetrics func(context.Context, config.MetricsConfig, *slog.Logger) (func(), error)
	isTerminal  func(io.Writer) bool
}

func defaultDeps() appDeps {
	return appDeps{
		run:         runner.Run,
		initMetrics: initMetrics,
		isTerminal:  isTerminal,
	}
}

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error { return &exitError{code: code, err: err} }

// runMain executes the CLI and returns the process exit code.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	root := newRootCmd(stdout, stderr, deps)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		// Schema issues were already printed one per line.
		if ee.code != exitSchemaError {
			fmt.Fprintf(stderr, "error: %v\n", ee.err)
		}
		return ee.code
	}
	// Anything cobra returns on its own is a usage problem.
	fmt.Fprintf(stderr, "error: %v\n", err)
	fmt.Fprintf(stderr, "run '%s --help' for usage\n", root.Name())
	return exitUsage
}

func newRootCmd(stdout, stderr io.Writer, deps appDeps) *cobra.Command {
	root := &cobra.Command{
		Use:   "csvprofiler [path|url]",
		Short: "Profile tabular data in one streaming pass",
		Long: `csvprofiler reads a CSV, TSV, JSON, NDJSON or Parquet file (local or over
HTTP) or a SQL result set, and reports per-column types, null counts,
distinct and duplicate counts, most frequent values and numeric statistics.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return profileAction(cmd, args, stdout, stderr, deps, false)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "profile [path|url]",
			Short: "Profile a dataset and render a report (default command)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return profileAction(cmd, args, stdout, stderr, deps, false)
			},
		},
		&cobra.Command{
			Use:   "validate <path|url> --schema expected.yaml",
			Short: "Profile a dataset and check its column types against a schema",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return profileAction(cmd, args, stdout, stderr, deps, true)
			},
		},
		&cobra.Command{
			Use:   "infer-schema [path|url]",
			Short: "Profile a dataset and print its column types as a schema file",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return inferAction(cmd, args, stdout, stderr, deps)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(stdout, "csvprofiler %s\n", version)
			},
		},
	)
	return root
}

// setup loads and validates config, then builds the logger and metrics
// backend. cleanup is always non-nil.
func setup(cmd *cobra.Command, stderr io.Writer, deps appDeps) (cfg *config.Config, log *slog.Logger, cleanup func(), err error) {
	cleanup = func() {}
	cfgFile, _ := cmd.Flags().GetString("config")

	cfg, err = config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, cleanup, withCode(exitUsage, err)
	}

	issues := cfg.Validate()
	for _, iss := range issues {
		fmt.Fprintln(stderr, iss.String())
	}
	if config.HasErrors(issues) {
		return nil, nil, cleanup, withCode(exitUsage, errors.New("configuration is invalid"))
	}

	log = logging.New(stderr, cfg.LogFormat, cfg.Verbose)
	if cfg.File != "" {
		log.Debug("config loaded", "file", cfg.File)
	}

	cleanup, err = deps.initMetrics(cmd.Context(), cfg.Metrics, log)
	if err != nil {
		return nil, nil, func() {}, withCode(exitFailure, fmt.Errorf("init metrics: %w", err))
	}
	return cfg, log, cleanup, nil
}

func profileAction(cmd *cobra.Command, args []string, stdout, stderr io.Writer, deps appDeps, requireSchema bool) error {
	cfg, log, cleanup, err := setup(cmd, stderr, deps)
	defer cleanup()
	if err != nil {
		return err
	}
	if requireSchema && cfg.Schema == "" {
		return withCode(exitUsage, errors.New("validate needs --schema"))
	}

	target := targetArg(args)
	res, err := deps.run(cmd.Context(), cfg, target, runner.Deps{
		Stdout: stdout,
		Logger: log,
		Color:  deps.isTerminal(stdout),
	})
	if res != nil {
		printIssues(stderr, res.Issues)
	}
	return classify(err)
}

func inferAction(cmd *cobra.Command, args []string, stdout, stderr io.Writer, deps appDeps) error {
	cfg, log, cleanup, err := setup(cmd, stderr, deps)
	defer cleanup()
	if err != nil {
		return err
	}
	// The inferred schema is the only thing written to stdout.
	cfg.Format = "json"
	cfg.Output = ""
	cfg.Schema = ""

	res, err := deps.run(cmd.Context(), cfg, targetArg(args), runner.Deps{
		Stdout: io.Discard,
		Logger: log,
	})
	if err != nil {
		return classify(err)
	}

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(schema.FromSummary(res.Summary)); err != nil {
		return withCode(exitFailure, fmt.Errorf("encode schema: %w", err))
	}
	if err := enc.Close(); err != nil {
		return withCode(exitFailure, fmt.Errorf("encode schema: %w", err))
	}
	return nil
}

func targetArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func printIssues(w io.Writer, issues []schema.Issue) {
	for _, iss := range issues {
		fmt.Fprintf(w, "schema %s\n", iss.String())
	}
}

// classify maps a run error to its exit code.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, runner.ErrSchemaMismatch):
		return withCode(exitSchemaError, err)
	case errors.Is(err, profile.ErrSourceUnreadable):
		return withCode(exitUnreadable, err)
	case errors.Is(err, profile.ErrNotTabular):
		return withCode(exitNotTabular, err)
	}
	return withCode(exitFailure, err)
}

// Seams for initMetrics tests.
type metricsBackend interface {
	metrics.Backend
	Close() error
}

var (
	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (metricsBackend, error) {
		b, err := datadog.NewBackend(ctx, opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	setMetricsBackend = metrics.SetBackend
)

// initMetrics wires the configured backend into the metrics package.
// The returned cleanup is always non-nil and flushes pending points.
func initMetrics(ctx context.Context, mc config.MetricsConfig, log *slog.Logger) (func(), error) {
	switch mc.Backend {
	case "", "none":
		log.Debug("metrics disabled")
		return func() {}, nil

	case "datadog":
		tags := datadog.ParseTagsCSV(mc.Tags)
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName:    mc.Job,
			Tags:       tags,
			FlushEvery: mc.FlushEvery,
		})
		if err != nil {
			return func() {}, err
		}
		log.Debug("metrics enabled", "backend", mc.Backend, "job", mc.Job, "tags", tags)
		setMetricsBackend(b)
		return func() {
			setMetricsBackend(nil)
			if err := b.Close(); err != nil {
				log.Warn("metrics: datadog close/flush error", "err", err)
			}
		}, nil
	}

	log.Warn("metrics: unknown backend; metrics disabled", "backend", mc.Backend)
	return func() {}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
