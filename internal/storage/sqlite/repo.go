package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"csvprofiler/internal/profile"
	"csvprofiler/internal/storage"
)

// SQLite caps bound parameters per statement (SQLITE_MAX_VARIABLE_NUMBER).
const maxParams = 32766

// Repo implements storage.Repository for SQLite.
//
// SQLite has no native timestamp type; created_at is stored as RFC3339Nano
// text so it round-trips and sorts lexically.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureTables creates the profile tables if they do not exist.
func (r *Repo) EnsureTables(ctx context.Context) error {
	for _, t := range storage.ProfileTables() {
		ddl, err := buildCreateTableSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("sqlite: create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// SaveSummary inserts the run row and all column rows in one transaction.
func (r *Repo) SaveSummary(ctx context.Context, runID string, s *profile.Summary) (string, error) {
	rec, err := storage.BuildRecords(runID, time.Now(), s)
	if err != nil {
		return "", err
	}
	tables := storage.ProfileTables()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	run := convertTimes(rec.Run)
	q, args := buildInsertSQL(tables[0].Name, tables[0].ColumnNames(), [][]any{run})
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return "", fmt.Errorf("sqlite: insert %s: %w", tables[0].Name, err)
	}

	cols := tables[1].ColumnNames()
	for _, chunk := range storage.ChunkRows(rec.Columns, len(cols), maxParams) {
		q, args := buildInsertSQL(tables[1].Name, cols, chunk)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return "", fmt.Errorf("sqlite: insert %s: %w", tables[1].Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return rec.RunID, nil
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func sqliteType(logical string) (string, error) {
	switch logical {
	case storage.TypeKey, storage.TypeText, storage.TypeTime:
		return "TEXT", nil
	case storage.TypeInt:
		return "INTEGER", nil
	case storage.TypeFloat:
		return "REAL", nil
	}
	return "", fmt.Errorf("sqlite: unsupported column type %q", logical)
}

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	var parts []string
	for _, c := range t.Columns {
		typ, err := sqliteType(c.Type)
		if err != nil {
			return "", err
		}
		col := fmt.Sprintf("%s %s", sqlIdent(c.Name), typ)
		if c.Nullable == nil || !*c.Nullable {
			col += " NOT NULL"
		}
		// SQLite supports REFERENCES, but enforcement depends on PRAGMA foreign_keys=ON.
		if c.References != "" {
			col += " REFERENCES " + c.References
		}
		parts = append(parts, col)
	}

	for _, con := range t.Constraints {
		if con.Kind != "unique" {
			return "", fmt.Errorf("%s unsupported constraint kind: %s", t.Name, con.Kind)
		}
		var cols []string
		for _, c := range con.Columns {
			cols = append(cols, sqlIdent(c))
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", strings.Join(cols, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", t.Name, strings.Join(parts, ",\n  ")), nil
}

// buildInsertSQL renders a multi-row INSERT with ? placeholders.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	colList := make([]string, 0, len(columns))
	for _, c := range columns {
		colList = append(colList, sqlIdent(c))
	}
	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(colList, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		args = append(args, row...)
	}
	return b.String(), args
}

func convertTimes(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if t, ok := v.(time.Time); ok {
			v = formatSQLiteTime(t)
		}
		out[i] = v
	}
	return out
}

// formatSQLiteTime formats a time as RFC3339Nano in UTC.
func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
