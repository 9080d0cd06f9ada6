package profile

// Cardinality describes how a column's distinct values relate to its
// non-null values.
type Cardinality string

const (
	CardinalityUnique          Cardinality = "unique"
	CardinalityNearUnique      Cardinality = "near_unique"
	CardinalityHighCardinality Cardinality = "high_cardinality"
	CardinalityLowCardinality  Cardinality = "low_cardinality"
	CardinalityEnumLike        Cardinality = "enum_like"
)

// ClassifyCardinality buckets a column by distinct count. An empty result
// means there were no non-null values to classify.
func ClassifyCardinality(distinct, nonNull int) Cardinality {
	if nonNull == 0 || distinct == 0 {
		return ""
	}
	if distinct == nonNull {
		return CardinalityUnique
	}
	if float64(distinct)/float64(nonNull) >= 0.9 {
		return CardinalityNearUnique
	}
	switch {
	case distinct <= 20:
		return CardinalityEnumLike
	case distinct <= 200:
		return CardinalityLowCardinality
	default:
		return CardinalityHighCardinality
	}
}
