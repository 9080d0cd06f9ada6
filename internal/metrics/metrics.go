// Package metrics is the small metrics facade used by the profiler.
//
// Core code calls the package-level helpers; the process installs a concrete
// Backend once at startup with SetBackend. Until then every call is a no-op.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by the profiler.
const (
	RunsTotal          = "profile_runs_total"
	RowsTotal          = "profile_rows_total"
	ColumnsTotal       = "profile_columns_total"
	RunDurationSeconds = "profile_run_duration_seconds"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric events. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend. A nil b restores the
// no-op backend.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush pushes buffered metrics through the installed backend.
func Flush() error {
	return current().Flush()
}

// RecordRun emits the per-run metrics. status is "ok" or an error class.
// typeCounts maps resolved column types to how many columns had them.
func RecordRun(status string, rows int, typeCounts map[string]int, elapsed time.Duration) {
	b := current()
	b.IncCounter(RunsTotal, 1, Labels{"status": status})
	if rows > 0 {
		b.IncCounter(RowsTotal, float64(rows), nil)
	}
	for typ, n := range typeCounts {
		b.IncCounter(ColumnsTotal, float64(n), Labels{"type": typ})
	}
	b.ObserveHistogram(RunDurationSeconds, elapsed.Seconds(), Labels{"status": status})
}
