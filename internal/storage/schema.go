// Table specs live here so every backend renders the same logical layout
// into its own DDL dialect.
package storage

// Logical column types. Backends map them onto native types.
const (
	TypeKey   = "key" // short text usable in UNIQUE constraints
	TypeText  = "text"
	TypeInt   = "int"
	TypeFloat = "float"
	TypeTime  = "time"
)

const (
	RunsTable    = "profile_runs"
	ColumnsTable = "profile_columns"
)

type TableSpec struct {
	Name        string           `json:"name"`
	Columns     []ColumnSpec     `json:"columns"`
	Constraints []ConstraintSpec `json:"constraints,omitempty"`
}

type ColumnSpec struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	References string `json:"references,omitempty"`
	Nullable   *bool  `json:"nullable,omitempty"`
}

type ConstraintSpec struct {
	Kind    string   `json:"kind"` // "unique"
	Columns []string `json:"columns"`
}

// ColumnNames returns the column names of t in declaration order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

func nullable(v bool) *bool { return &v }

// ProfileTables returns the run table followed by the per-column table.
// Record builders in this package emit values in exactly this column order.
func ProfileTables() []TableSpec {
	return []TableSpec{
		{
			Name: RunsTable,
			Columns: []ColumnSpec{
				{Name: "run_id", Type: TypeKey},
				{Name: "source", Type: TypeText},
				{Name: "total_rows", Type: TypeInt},
				{Name: "total_columns", Type: TypeInt},
				{Name: "duplicate_records", Type: TypeInt},
				{Name: "created_at", Type: TypeTime},
				{Name: "summary_json", Type: TypeText},
			},
			Constraints: []ConstraintSpec{{Kind: "unique", Columns: []string{"run_id"}}},
		},
		{
			Name: ColumnsTable,
			Columns: []ColumnSpec{
				{Name: "run_id", Type: TypeKey, References: RunsTable + " (run_id)"},
				{Name: "position", Type: TypeInt},
				{Name: "name", Type: TypeText},
				{Name: "data_type", Type: TypeKey},
				{Name: "total_rows", Type: TypeInt},
				{Name: "null_count", Type: TypeInt},
				{Name: "null_percentage", Type: TypeFloat},
				{Name: "distinct_values", Type: TypeInt},
				{Name: "duplicate_rows", Type: TypeInt},
				{Name: "min_value", Type: TypeFloat, Nullable: nullable(true)},
				{Name: "max_value", Type: TypeFloat, Nullable: nullable(true)},
				{Name: "mean", Type: TypeFloat, Nullable: nullable(true)},
				{Name: "median", Type: TypeFloat, Nullable: nullable(true)},
				{Name: "std_dev", Type: TypeFloat, Nullable: nullable(true)},
				{Name: "cardinality", Type: TypeKey, Nullable: nullable(true)},
				{Name: "most_frequent", Type: TypeText},
				{Name: "pii_flags", Type: TypeText, Nullable: nullable(true)},
			},
			Constraints: []ConstraintSpec{{Kind: "unique", Columns: []string{"run_id", "position"}}},
		},
	}
}
