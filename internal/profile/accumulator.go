package profile

import "strings"

// columnAccumulator is the mutable per-column state of one run. It is owned
// by exactly one goroutine.
type columnAccumulator struct {
	name    string
	tally   Tally
	freq    *freqTable
	numeric []float64

	// leading non-null values, kept only when PII detection is on
	sample     []string
	keepSample bool
}

func newColumnAccumulator(name string, keepSample bool) *columnAccumulator {
	return &columnAccumulator{
		name:       name,
		freq:       newFreqTable(),
		keepSample: keepSample,
	}
}

func (a *columnAccumulator) observe(raw string) {
	k := Classify(raw)
	a.tally[k]++
	if k == KindNull {
		return
	}

	a.freq.add(raw)
	if a.keepSample && len(a.sample) < piiSampleSize {
		a.sample = append(a.sample, strings.Clone(raw))
	}
	if k.Numeric() {
		if f, ok := parseNumeric(raw); ok {
			a.numeric = append(a.numeric, f)
		}
	}
}

func (a *columnAccumulator) totalRows() int {
	return a.tally[KindNull] + a.tally.NonNull()
}

func (a *columnAccumulator) finalize(topN int, detectPII bool) ColumnProfile {
	total := a.totalRows()
	nulls := a.tally[KindNull]
	distinct := a.freq.len()

	var nullPct float64
	if total > 0 {
		nullPct = round(float64(nulls)/float64(total)*100, 2)
	}

	kinds := make(map[string]int, numKinds)
	for k := KindNull; k < numKinds; k++ {
		if a.tally[k] > 0 {
			kinds[k.String()] = a.tally[k]
		}
	}

	stats := Aggregate(a.numeric)
	cp := ColumnProfile{
		Name:           a.name,
		Type:           ResolveType(a.tally, total),
		TotalRows:      total,
		NullCount:      nulls,
		NullPercentage: nullPct,
		DuplicateRows:  total - distinct,
		DistinctValues: distinct,
		MostFrequent:   TopN(a.freq.entries, topN),
		Min:            stats.Min,
		Max:            stats.Max,
		Mean:           stats.Mean,
		Median:         stats.Median,
		StdDev:         stats.StdDev,
		KindCounts:     kinds,
		Cardinality:    ClassifyCardinality(distinct, a.tally.NonNull()),
	}
	if detectPII {
		cp.PII = DetectPII(a.name, a.sample)
	}
	return cp
}
