package audit

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Status classifies one final tag against the live value
type Status int

const (
	StatusNew Status = iota
	StatusMatch
	StatusChanged
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusMatch:
		return "MATCH"
	case StatusChanged:
		return "CHANGED"
	default:
		return "UNKNOWN"
	}
}

// Comparator decides whether two tag values are the same after normalization:
// compatibility decomposition, combining marks removed, case folded and
// whitespace collapsed.
type Comparator struct{}

// Normalize returns the comparison form of s
func (Comparator) Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = cases.Fold().String(out)
	return strings.Join(strings.Fields(out), " ")
}

// Compare returns StatusMatch when both values normalize equal
func (c Comparator) Compare(newValue, oldValue string) Status {
	if newValue == oldValue || c.Normalize(newValue) == c.Normalize(oldValue) {
		return StatusMatch
	}
	return StatusChanged
}
