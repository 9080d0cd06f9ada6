package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"csvprofiler/internal/profile"
)

// SQL streams the result set of one query. Values are rendered to text the
// same way for every driver, so a column profiles identically whether it came
// from a file or a database.
type SQL struct {
	name  string
	db    *sql.DB
	owned bool
	query string
	args  []any

	rows *sql.Rows
	cols []string
	raw  []any
	ptrs []any
	vals []string
	sb   strings.Builder
	line int
}

// NewSQL prepares a query source over db. The query runs on the first call
// to Columns or Next.
func NewSQL(name string, db *sql.DB, query string, args ...any) *SQL {
	return &SQL{name: name, db: db, query: query, args: args}
}

// OpenSQL opens a database handle for driver and dsn and verifies it with a
// ping. The returned source closes the handle on Close.
func OpenSQL(ctx context.Context, driver, dsn, query string) (*SQL, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: sql open %s: %w", profile.ErrSourceUnreadable, driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: sql ping %s: %w", profile.ErrSourceUnreadable, driver, err)
	}
	s := NewSQL(driver+":query", db, query)
	s.owned = true
	return s, nil
}

func (s *SQL) Name() string { return s.name }

func (s *SQL) Close() error {
	var err error
	if s.rows != nil {
		err = s.rows.Close()
	}
	if s.owned {
		err = errors.Join(err, s.db.Close())
	}
	return err
}

func (s *SQL) Columns(ctx context.Context) ([]string, error) {
	if s.cols != nil {
		return s.cols, nil
	}

	rows, err := s.db.QueryContext(ctx, s.query, s.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: query: %w", profile.ErrSourceUnreadable, s.name, err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: %s: columns: %w", profile.ErrSourceUnreadable, s.name, err)
	}
	if len(cols) == 0 {
		rows.Close()
		return nil, fmt.Errorf("%w: %s: query returned no columns", profile.ErrNotTabular, s.name)
	}

	s.rows = rows
	s.cols = cols
	s.raw = make([]any, len(cols))
	s.ptrs = make([]any, len(cols))
	for i := range s.raw {
		s.ptrs[i] = &s.raw[i]
	}
	s.vals = make([]string, len(cols))
	return s.cols, nil
}

func (s *SQL) Next(ctx context.Context) (profile.Row, error) {
	if s.cols == nil {
		if _, err := s.Columns(ctx); err != nil {
			return profile.Row{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return profile.Row{}, err
	}

	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return profile.Row{}, fmt.Errorf("%w: %s: %w", profile.ErrSourceUnreadable, s.name, err)
		}
		return profile.Row{}, io.EOF
	}
	if err := s.rows.Scan(s.ptrs...); err != nil {
		return profile.Row{}, fmt.Errorf("%w: %s: scan: %w", profile.ErrSourceUnreadable, s.name, err)
	}

	var scratch [64]byte
	for i, v := range s.raw {
		s.sb.Reset()
		appendCanonicalValue(&s.sb, v, &scratch)
		s.vals[i] = s.sb.String()
	}
	s.line++
	return profile.Row{Values: s.vals, Line: s.line}, nil
}

// appendCanonicalValue writes the text form of a scanned driver value.
// NULL writes nothing, which the profiler treats as absent.
func appendCanonicalValue(b *strings.Builder, v any, scratch *[64]byte) {
	switch t := v.(type) {
	case nil:

	case string:
		b.WriteString(t)
	case []byte:
		b.Write(t)

	case bool:
		b.Write(strconv.AppendBool(scratch[:0], t))

	case int:
		b.Write(strconv.AppendInt(scratch[:0], int64(t), 10))
	case int8:
		b.Write(strconv.AppendInt(scratch[:0], int64(t), 10))
	case int16:
		b.Write(strconv.AppendInt(scratch[:0], int64(t), 10))
	case int32:
		b.Write(strconv.AppendInt(scratch[:0], int64(t), 10))
	case int64:
		b.Write(strconv.AppendInt(scratch[:0], t, 10))

	case uint:
		b.Write(strconv.AppendUint(scratch[:0], uint64(t), 10))
	case uint8:
		b.Write(strconv.AppendUint(scratch[:0], uint64(t), 10))
	case uint16:
		b.Write(strconv.AppendUint(scratch[:0], uint64(t), 10))
	case uint32:
		b.Write(strconv.AppendUint(scratch[:0], uint64(t), 10))
	case uint64:
		b.Write(strconv.AppendUint(scratch[:0], t, 10))

	case float32:
		b.Write(strconv.AppendFloat(scratch[:0], float64(t), 'g', -1, 32))
	case float64:
		b.Write(strconv.AppendFloat(scratch[:0], t, 'g', -1, 64))

	case time.Time:
		tt := t
		if !tt.IsZero() {
			tt = tt.UTC()
		}
		b.WriteString(tt.Format(time.RFC3339Nano))

	case fmt.Stringer:
		b.WriteString(t.String())

	default:
		fmt.Fprintf(b, "%v", t)
	}
}
