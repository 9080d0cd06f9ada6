package profile

// ColumnProfile is the finished, immutable profile of one column.
//
// Min, Max, Mean, Median and StdDev are nil when the column produced no
// numeric values. For mixed columns they describe the numeric subset only.
type ColumnProfile struct {
	Name           string         `json:"name"`
	Type           ResolvedType   `json:"data_type"`
	TotalRows      int            `json:"total_rows"`
	NullCount      int            `json:"null_count"`
	NullPercentage float64        `json:"null_percentage"`
	DuplicateRows  int            `json:"duplicate_rows"`
	DistinctValues int            `json:"distinct_values"`
	MostFrequent   []ValueCount   `json:"most_frequent"`
	Min            *float64       `json:"min_value"`
	Max            *float64       `json:"max_value"`
	Mean           *float64       `json:"mean"`
	Median         *float64       `json:"median"`
	StdDev         *float64       `json:"std_dev"`
	KindCounts     map[string]int `json:"kind_counts,omitempty"`
	Cardinality    Cardinality    `json:"cardinality,omitempty"`
	PII            []PIIFlag      `json:"pii_flags,omitempty"`
}

// HasNumericStats reports whether numeric aggregates were computed.
func (c ColumnProfile) HasNumericStats() bool {
	return c.Min != nil
}

// Summary is the result of one profiling run.
type Summary struct {
	Source           string               `json:"source"`
	TotalRows        int                  `json:"total_rows"`
	TotalColumns     int                  `json:"total_columns"`
	DuplicateRecords int                  `json:"duplicate_records"`
	Columns          []ColumnProfile      `json:"columns"`
	PIIFlags         map[string][]PIIFlag `json:"pii_flags"`
}

// Column looks up a column profile by name.
func (s *Summary) Column(name string) (ColumnProfile, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnProfile{}, false
}
