package profile

import (
	"regexp"
	"strings"
)

// PIIFlag marks a column as likely holding personal data.
type PIIFlag string

const (
	PIIPossibleName PIIFlag = "possible_name"
	PIISSN          PIIFlag = "ssn"
	PIINPI          PIIFlag = "npi"
	PIIEmail        PIIFlag = "email"
	PIIPhone        PIIFlag = "phone"
)

// piiSampleSize is how many leading non-null values are inspected per column.
const piiSampleSize = 20

var (
	reSSN = regexp.MustCompile(`^(?:\d{3}-\d{2}-\d{4}|\d{9})$`)
	reNPI = regexp.MustCompile(`^\d{10}$`)
	// Unanchored: an address embedded in free text still counts.
	reEmail = regexp.MustCompile(`[^@\s]+@[^@\s]+\.[^@\s]+`)
	rePhone = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`)
)

// DetectPII flags a column from its header name and a sample of its leading
// non-null values. Flags come back in a fixed order; nil means nothing looked
// sensitive.
//
// Heuristics only. A 10 digit phone number without separators also matches
// the NPI pattern, so both flags are reported.
func DetectPII(name string, sample []string) []PIIFlag {
	lname := strings.ToLower(name)
	if len(sample) > piiSampleSize {
		sample = sample[:piiSampleSize]
	}

	anyMatch := func(re *regexp.Regexp) bool {
		for _, v := range sample {
			if re.MatchString(strings.TrimSpace(v)) {
				return true
			}
		}
		return false
	}

	var flags []PIIFlag
	if strings.Contains(lname, "name") || strings.Contains(lname, "first") || strings.Contains(lname, "last") {
		flags = append(flags, PIIPossibleName)
	}
	if strings.Contains(lname, "ssn") || anyMatch(reSSN) {
		flags = append(flags, PIISSN)
	}
	if strings.Contains(lname, "npi") || anyMatch(reNPI) {
		flags = append(flags, PIINPI)
	}
	if strings.Contains(lname, "email") || anyMatch(reEmail) {
		flags = append(flags, PIIEmail)
	}
	if strings.Contains(lname, "phone") || anyMatch(rePhone) {
		flags = append(flags, PIIPhone)
	}
	return flags
}
