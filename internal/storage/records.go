package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"csvprofiler/internal/profile"
)

// Records is one summary flattened into insert rows aligned with
// ProfileTables. CreatedAt is stored as a time.Time; backends without a
// native timestamp type convert it.
type Records struct {
	RunID   string
	Run     []any
	Columns [][]any
}

// NewRunID returns a random run identifier.
func NewRunID() string { return uuid.NewString() }

// BuildRecords flattens s. An empty runID is replaced by NewRunID.
func BuildRecords(runID string, createdAt time.Time, s *profile.Summary) (Records, error) {
	if s == nil {
		return Records{}, fmt.Errorf("storage: nil summary")
	}
	if runID == "" {
		runID = NewRunID()
	}

	doc, err := json.Marshal(s)
	if err != nil {
		return Records{}, fmt.Errorf("storage: encode summary: %w", err)
	}

	rec := Records{
		RunID: runID,
		Run: []any{
			runID,
			s.Source,
			int64(s.TotalRows),
			int64(s.TotalColumns),
			int64(s.DuplicateRecords),
			createdAt.UTC(),
			string(doc),
		},
		Columns: make([][]any, 0, len(s.Columns)),
	}

	for i, c := range s.Columns {
		freq, err := json.Marshal(c.MostFrequent)
		if err != nil {
			return Records{}, fmt.Errorf("storage: encode most_frequent for %s: %w", c.Name, err)
		}
		rec.Columns = append(rec.Columns, []any{
			runID,
			int64(i),
			c.Name,
			string(c.Type),
			int64(c.TotalRows),
			int64(c.NullCount),
			c.NullPercentage,
			int64(c.DistinctValues),
			int64(c.DuplicateRows),
			floatOrNil(c.Min),
			floatOrNil(c.Max),
			floatOrNil(c.Mean),
			floatOrNil(c.Median),
			floatOrNil(c.StdDev),
			stringOrNil(string(c.Cardinality)),
			string(freq),
			stringOrNil(joinPII(c.PII)),
		})
	}
	return rec, nil
}

// ChunkRows splits rows so that no chunk binds more than maxParams values.
func ChunkRows(rows [][]any, width, maxParams int) [][][]any {
	if len(rows) == 0 {
		return nil
	}
	per := len(rows)
	if width > 0 && maxParams > 0 {
		per = max(1, maxParams/width)
	}
	var out [][][]any
	for len(rows) > per {
		out = append(out, rows[:per])
		rows = rows[per:]
	}
	return append(out, rows)
}

// Untyped nil lets every driver bind SQL NULL.
func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func joinPII(flags []profile.PIIFlag) string {
	ss := make([]string, len(flags))
	for i, f := range flags {
		ss[i] = string(f)
	}
	return strings.Join(ss, ",")
}
