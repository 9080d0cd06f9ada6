package profile

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Kind is the inferred kind of a single field value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindBoolean
	KindString

	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	}
	return "unknown"
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Numeric reports whether values of this kind feed the numeric aggregates.
func (k Kind) Numeric() bool {
	return k == KindInteger || k == KindFloat
}

// Classify infers the kind of one raw field value.
//
// Precedence is fixed: empty (after trimming) is null, then integer, then
// float, then the boolean tokens true/false/yes/no/1/0 (case-insensitive),
// then string. "1" and "0" therefore classify as integer, never boolean.
//
// Edge cases:
//   - out-of-range integers ("99999999999999999999") are still integer
//   - out-of-range floats ("1e400") are still float
//   - Go float grammar applies: "NaN", "Inf" and hex floats are float
func Classify(raw string) Kind {
	s := strings.TrimSpace(raw)
	if s == "" {
		return KindNull
	}
	if isInteger(s) {
		return KindInteger
	}
	if isFloat(s) {
		return KindFloat
	}
	if isBoolToken(s) {
		return KindBoolean
	}
	return KindString
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil || errors.Is(err, strconv.ErrRange)
}

func isFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil || errors.Is(err, strconv.ErrRange)
}

func isBoolToken(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no", "1", "0":
		return true
	default:
		return false
	}
}

// parseNumeric converts an integer- or float-classified value to float64.
// ok is false when the value has no finite float64 representation; the
// caller drops it from the numeric sequence without failing the run.
func parseNumeric(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
