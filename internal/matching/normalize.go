// Package matching implements entity-record normalization and the
// similarity matcher that links records referring to the same actor across
// or within report stores.
package matching

import (
	"sort"
	"strings"
	"unicode"
)

// Placeholder tokens that mean "no value" in the source data.
func isPlaceholder(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "n/a", "-":
		return true
	}
	return false
}

// NormalizePhone canonicalizes an Indian phone number: every character that
// is not a digit is dropped (a leading plus is kept only long enough to
// recognize the country code), then the +91 / 91 / 0 prefixes of a 10-digit
// subscriber number are collapsed.  Idempotent.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if unicode.IsDigit(r) || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	s := b.String()

	switch {
	case strings.HasPrefix(s, "+91") && len(s) == 13:
		return s[3:]
	case strings.HasPrefix(s, "91") && len(s) == 12:
		return s[2:]
	case strings.HasPrefix(s, "0") && len(s) == 11:
		return s[1:]
	}
	return strings.TrimPrefix(s, "+")
}

// NormalizeEmail lowercases and trims.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeWebsite drops the scheme, a leading www. and any trailing slash,
// and lowercases the rest.  Idempotent.
func NormalizeWebsite(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimSuffix(s, "/")
}

// NormalizeToken trims and lowercases a generic case-insensitive value.
func NormalizeToken(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeExact only trims, for case-sensitive identifiers.
func NormalizeExact(raw string) string {
	return strings.TrimSpace(raw)
}

// StringSet is a normalized multi-value field.
type StringSet map[string]struct{}

// ParseSet splits a pipe-delimited raw column value, normalizes each element
// with norm, and drops placeholders.  The empty set means "field absent".
func ParseSet(raw string, norm func(string) string) StringSet {
	if isPlaceholder(strings.TrimSpace(raw)) {
		return nil
	}
	set := make(StringSet)
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		if isPlaceholder(part) {
			continue
		}
		v := norm(part)
		if v != "" {
			set[v] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// Intersects reports whether the two sets share any element.  Either side
// being empty is false: absence of data is never evidence.
func (s StringSet) Intersects(other StringSet) bool {
	if len(s) == 0 || len(other) == 0 {
		return false
	}
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for v := range small {
		if _, ok := large[v]; ok {
			return true
		}
	}
	return false
}

// Contains reports set membership of an already-normalized value.
func (s StringSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Values returns the set's elements sorted, for stable serialization.
func (s StringSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
