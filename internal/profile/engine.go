package profile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of rows handed to column workers at once.
const DefaultBatchSize = 10000

// Options configures an Engine. The zero value profiles on one goroutine
// with the default top-N and without PII detection.
type Options struct {
	// Workers > 1 partitions columns across that many goroutines. Results
	// are identical to the single goroutine path.
	Workers int

	// BatchSize is the number of rows per hand-off in the parallel path.
	BatchSize int

	// TopN is the length of each column's most frequent list (default 5).
	TopN int

	// DetectPII enables the header and sample-value PII heuristics.
	DetectPII bool

	// Logger receives debug events; nil discards them.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.BatchSize < 1 {
		o.BatchSize = DefaultBatchSize
	}
	if o.TopN < 1 {
		o.TopN = DefaultTopN
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Engine profiles one row source in a single pass. An Engine is single use:
// a second call to Profile fails with ErrEngineUsed.
type Engine struct {
	opts  Options
	state atomic.Int32
}

// New returns an Engine in the initialized state.
func New(opts Options) *Engine {
	return &Engine{opts: opts.withDefaults()}
}

// Run profiles src with a fresh Engine.
func Run(ctx context.Context, src RowSource, opts Options) (*Summary, error) {
	return New(opts).Profile(ctx, src)
}

// State reports the engine's lifecycle stage.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	e.opts.Logger.Debug("profile state", "state", s.String())
}

// Profile reads every row of src and returns the dataset summary.
//
// Errors:
//   - ErrEngineUsed: Profile was already called on this engine
//   - ErrNotTabular: src has no column set
//   - ErrSourceUnreadable: src failed while being read
//   - ctx.Err(): the run was cancelled; no partial summary is returned
//
// Values that classify as numeric but do not convert to a finite float64
// are left out of the numeric statistics without failing the run.
func (e *Engine) Profile(ctx context.Context, src RowSource) (*Summary, error) {
	if !e.state.CompareAndSwap(int32(StateInitialized), int32(StateStreaming)) {
		return nil, ErrEngineUsed
	}
	defer e.setState(StateDone)

	log := e.opts.Logger.With("source", src.Name())
	start := time.Now()

	cols, err := src.Columns(ctx)
	if err != nil {
		return nil, sourceErr("read columns", err)
	}
	if len(cols) == 0 {
		return nil, ErrNotTabular
	}
	log.Debug("profile streaming", "columns", len(cols), "workers", e.opts.Workers)

	accs := make([]*columnAccumulator, len(cols))
	for i, name := range cols {
		accs[i] = newColumnAccumulator(name, e.opts.DetectPII)
	}
	dedup := newRowDeduper()

	var total int
	if e.opts.Workers > 1 && len(cols) > 1 {
		total, err = e.streamParallel(ctx, src, accs, dedup)
	} else {
		total, err = e.streamSerial(ctx, src, accs, dedup)
	}
	if err != nil {
		return nil, err
	}

	e.setState(StateFinalizing)
	sum := &Summary{
		Source:           src.Name(),
		TotalRows:        total,
		TotalColumns:     len(cols),
		DuplicateRecords: dedup.duplicates(),
		Columns:          make([]ColumnProfile, len(accs)),
		PIIFlags:         map[string][]PIIFlag{},
	}
	for i, a := range accs {
		cp := a.finalize(e.opts.TopN, e.opts.DetectPII)
		sum.Columns[i] = cp
		if len(cp.PII) > 0 {
			sum.PIIFlags[cp.Name] = cp.PII
		}
	}

	log.Debug("profile finished", "rows", total, "elapsed", time.Since(start))
	return sum, nil
}

func (e *Engine) streamSerial(ctx context.Context, src RowSource, accs []*columnAccumulator, dedup *rowDeduper) (int, error) {
	var total int
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		row, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return 0, sourceErr("read row", err)
		}
		total++
		for i, a := range accs {
			a.observe(valueAt(row.Values, i))
		}
		dedup.observe(row.Values, len(accs))
	}
}

// streamParallel reads on one goroutine and fans each batch out to every
// worker. Worker w owns columns w, w+N, w+2N... so no accumulator is shared.
// Batches are read-only once sent.
func (e *Engine) streamParallel(ctx context.Context, src RowSource, accs []*columnAccumulator, dedup *rowDeduper) (int, error) {
	workers := min(e.opts.Workers, len(accs))
	g, gctx := errgroup.WithContext(ctx)

	chans := make([]chan [][]string, workers)
	for w := range workers {
		ch := make(chan [][]string, 2)
		chans[w] = ch

		var owned []int
		for i := w; i < len(accs); i += workers {
			owned = append(owned, i)
		}
		g.Go(func() error {
			for batch := range ch {
				for _, vals := range batch {
					for _, ci := range owned {
						accs[ci].observe(valueAt(vals, ci))
					}
				}
			}
			return nil
		})
	}

	var total int
	g.Go(func() error {
		defer func() {
			for _, ch := range chans {
				close(ch)
			}
		}()

		batch := make([][]string, 0, e.opts.BatchSize)
		flush := func() error {
			for _, ch := range chans {
				select {
				case ch <- batch:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			batch = make([][]string, 0, e.opts.BatchSize)
			return nil
		}

		for {
			if err := gctx.Err(); err != nil {
				return err
			}
			row, err := src.Next(gctx)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return sourceErr("read row", err)
			}
			total++
			vals := slices.Clone(row.Values)
			dedup.observe(vals, len(accs))
			batch = append(batch, vals)
			if len(batch) == e.opts.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if len(batch) > 0 {
			return flush()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return total, nil
}
