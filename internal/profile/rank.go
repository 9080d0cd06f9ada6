package profile

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DefaultTopN is the number of most frequent values kept per column.
const DefaultTopN = 5

// ValueCount is one entry of a most-frequent list. It encodes as a two
// element JSON array: ["value", count].
type ValueCount struct {
	Value string
	Count int
}

func (vc ValueCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{vc.Value, vc.Count})
}

func (vc *ValueCount) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("value count: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &vc.Value); err != nil {
		return fmt.Errorf("value count: value: %w", err)
	}
	if err := json.Unmarshal(pair[1], &vc.Count); err != nil {
		return fmt.Errorf("value count: count: %w", err)
	}
	return nil
}

// freqTable counts distinct values and remembers the order in which each
// value was first seen.
type freqTable struct {
	index   map[string]int
	entries []ValueCount
}

func newFreqTable() *freqTable {
	return &freqTable{index: make(map[string]int)}
}

func (f *freqTable) add(v string) {
	if i, ok := f.index[v]; ok {
		f.entries[i].Count++
		return
	}
	v = strings.Clone(v)
	f.index[v] = len(f.entries)
	f.entries = append(f.entries, ValueCount{Value: v, Count: 1})
}

func (f *freqTable) len() int { return len(f.entries) }

// TopN returns up to n entries ordered by descending count. Entries with equal
// counts keep their input order, so passing a first-seen ordered slice gives
// first-seen tie-breaking. freq is not modified.
func TopN(freq []ValueCount, n int) []ValueCount {
	if n <= 0 || len(freq) == 0 {
		return []ValueCount{}
	}
	ranked := make([]ValueCount, len(freq))
	copy(ranked, freq)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
