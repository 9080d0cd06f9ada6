package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"

	"csvprofiler/internal/profile"
)

// openParquet reads a local Parquet file through an in-memory DuckDB.
// Builds without cgo have no duckdb driver and report the source unreadable.
func openParquet(ctx context.Context, loc string) (Source, error) {
	if u, err := url.Parse(loc); err == nil {
		switch u.Scheme {
		case "file":
			loc = u.Path
		case "http", "https":
			return nil, fmt.Errorf("%w: %s: parquet is only read from local files", profile.ErrSourceUnreadable, loc)
		}
	}
	if _, err := os.Stat(loc); err != nil {
		return nil, fmt.Errorf("%w: %w", profile.ErrSourceUnreadable, err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: open duckdb: %w", profile.ErrSourceUnreadable, loc, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s: open duckdb: %w", profile.ErrSourceUnreadable, loc, err)
	}

	query := "SELECT * FROM read_parquet(" + duckString(loc) + ")"
	s := NewSQL(loc, db, query)
	s.owned = true
	return s, nil
}

func duckString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
