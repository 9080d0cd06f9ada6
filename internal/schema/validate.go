package schema

import (
	"fmt"

	"csvprofiler/internal/profile"
)

// Severity grades an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one disagreement between a profile and its expectation.
type Issue struct {
	Severity Severity `json:"severity"`
	Column   string   `json:"column"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Column, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate compares s against exp. Issues come back in expectation order,
// followed by columns the expectation does not declare.
//
// Rules:
//   - a declared column missing from s is an error
//   - a column that resolved to null or unknown cannot be checked (warning)
//   - a type that does not satisfy the declared type is an error
//   - an undeclared column is a warning, or an error when exp.Strict
func Validate(exp *Expected, s *profile.Summary) []Issue {
	var issues []Issue
	declared := make(map[string]bool, len(exp.Columns))

	for _, want := range exp.Columns {
		declared[want.Name] = true
		got, ok := s.Column(want.Name)
		if !ok {
			issues = append(issues, Issue{SeverityError, want.Name, "column missing"})
			continue
		}
		switch {
		case got.Type == profile.TypeNull || got.Type == profile.TypeUnknown:
			issues = append(issues, Issue{SeverityWarning, want.Name,
				fmt.Sprintf("no values to check against %s (column is %s)", want.Type, got.Type)})
		case !Satisfies(got.Type, want.Type):
			issues = append(issues, Issue{SeverityError, want.Name,
				fmt.Sprintf("expected %s, got %s", want.Type, got.Type)})
		}
	}

	for _, c := range s.Columns {
		if declared[c.Name] {
			continue
		}
		sev := SeverityWarning
		if exp.Strict {
			sev = SeverityError
		}
		issues = append(issues, Issue{sev, c.Name, fmt.Sprintf("unexpected column (%s)", c.Type)})
	}
	return issues
}

// Satisfies reports whether a column that resolved to got meets want.
// Integers widen to float and numeric. Any value can be read as text, so
// string and mixed accept every type.
func Satisfies(got, want profile.ResolvedType) bool {
	if got == want {
		return true
	}
	switch want {
	case profile.TypeFloat, profile.TypeNumeric:
		return got == profile.TypeInteger || got == profile.TypeFloat || got == profile.TypeNumeric
	case profile.TypeString, profile.TypeMixed:
		return true
	}
	return false
}
