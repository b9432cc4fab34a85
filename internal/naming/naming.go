// Package naming translates Go member names into the prefixed snake_case
// keys used by the content dictionary, e.g. CmTitle -> cm_title -> cm:title.
package naming

import (
	"strings"
	"unicode"
)

// PrefixName lowercases name and inserts a single '_' before the first rune
// after the first position that has no lowercase form distinct from its
// uppercase one. That covers uppercase letters as well as digits and '_'.
// Later such runes are lowercased without a separator:
// someOtherThing -> some_otherthing, cm2Title -> cm_2title.
func PrefixName(name string) string {
	if name == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(name) + 1)

	separated := false
	for i, r := range name {
		if i == 0 {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if unicode.ToUpper(r) == r {
			if !separated {
				b.WriteByte('_')
				separated = true
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CandidateKeys returns the lookup keys of a member: its lowercase form and,
// when different, its prefixed form.
func CandidateKeys(name string) []string {
	lower := strings.ToLower(name)
	prefixed := PrefixName(name)
	if prefixed == lower {
		return []string{lower}
	}
	return []string{lower, prefixed}
}

// QualifiedCandidate returns the tentative "prefix:local" string of a member.
// ok is false when the member has no prefix separator.
func QualifiedCandidate(name string) (string, bool) {
	prefixed := PrefixName(name)
	idx := strings.IndexByte(prefixed, '_')
	if idx <= 0 || idx == len(prefixed)-1 {
		return "", false
	}
	return prefixed[:idx] + ":" + prefixed[idx+1:], true
}
