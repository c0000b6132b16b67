package schema

import (
	"fmt"
	"strings"
)

// DefaultPrefixLength is how much of a required column name must appear in a header
const DefaultPrefixLength = 10

// ColumnMatcher decides whether a CSV header satisfies a required column
type ColumnMatcher interface {
	Match(header, required string) bool
}

// PrefixMatcher accepts a header that contains the first Length characters
// of the required name. Upstream exports rename and truncate long headers,
// so only the prefix is compared.
type PrefixMatcher struct {
	Length int
}

func (m PrefixMatcher) Match(header, required string) bool {
	prefix := []rune(normalize(required))
	if m.Length > 0 && len(prefix) > m.Length {
		prefix = prefix[:m.Length]
	}
	return strings.Contains(normalize(header), string(prefix))
}

// ExactMatcher requires equal names after normalization
type ExactMatcher struct{}

func (ExactMatcher) Match(header, required string) bool {
	return normalize(header) == normalize(required)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MissingColumnError names the first required column with no matching header
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q", e.Column)
}

// Validate checks every required column against the headers in order
func Validate(headers, required []string, matcher ColumnMatcher) error {
	if matcher == nil {
		matcher = PrefixMatcher{Length: DefaultPrefixLength}
	}
	for _, req := range required {
		found := false
		for _, h := range headers {
			if matcher.Match(h, req) {
				found = true
				break
			}
		}
		if !found {
			return &MissingColumnError{Column: req}
		}
	}
	return nil
}
