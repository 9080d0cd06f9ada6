package profile

import (
	"encoding/json"
	"fmt"
)

// ResolvedType is the single type label assigned to a column after all rows
// have been observed.
type ResolvedType string

const (
	TypeUnknown ResolvedType = "unknown"
	TypeNull    ResolvedType = "null"
	TypeInteger ResolvedType = "integer"
	TypeFloat   ResolvedType = "float"
	TypeBoolean ResolvedType = "boolean"
	TypeString  ResolvedType = "string"
	TypeNumeric ResolvedType = "numeric"
	TypeMixed   ResolvedType = "mixed"
)

// ParseResolvedType maps a label back to a ResolvedType.
func ParseResolvedType(s string) (ResolvedType, error) {
	switch t := ResolvedType(s); t {
	case TypeUnknown, TypeNull, TypeInteger, TypeFloat, TypeBoolean, TypeString, TypeNumeric, TypeMixed:
		return t, nil
	}
	return "", fmt.Errorf("unknown column type %q", s)
}

func (t *ResolvedType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseResolvedType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Tally counts observed values per Kind. Index with a Kind.
type Tally [numKinds]int

// NonNull is the number of observed values that were not null.
func (t Tally) NonNull() int {
	n := 0
	for k := KindInteger; k < numKinds; k++ {
		n += t[k]
	}
	return n
}

// ResolveType turns a per-kind tally into one column type.
//
// A column with zero rows is unknown, a column with only nulls is null. When
// exactly one non-null kind was seen the column takes that kind. A mix of
// integer and float resolves to numeric; any other mix is mixed.
// The result depends only on the tally, never on row order.
func ResolveType(tally Tally, totalRows int) ResolvedType {
	if totalRows == 0 {
		return TypeUnknown
	}

	var seen []Kind
	for k := KindInteger; k < numKinds; k++ {
		if tally[k] > 0 {
			seen = append(seen, k)
		}
	}

	switch len(seen) {
	case 0:
		return TypeNull
	case 1:
		return ResolvedType(seen[0].String())
	case 2:
		if seen[0] == KindInteger && seen[1] == KindFloat {
			return TypeNumeric
		}
	}
	return TypeMixed
}
