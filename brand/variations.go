// Package brand turns brand names into candidate CDN asset URLs and maps
// asset URLs back to brand identifiers and on-disk paths.
package brand

import (
	"sort"
	"strings"
	"unicode"
)

var separators = []string{"", "_", "-"}

var caseTransforms = []func(string) string{
	strings.ToLower,
	strings.ToUpper,
	titleCase,
}

// Variations returns the deduplicated spelling variants of name, sorted.
//
// Characters other than letters, digits, whitespace, '-' and '_' are dropped
// and the remainder is split into words. Every separator ("", "_", "-") is
// combined with every case transform (lower, upper, title) for both the
// separator-joined and the concatenated form. Title casing of the
// concatenated form is also applied word by word, so "Nike Air" yields both
// "Nikeair" and "NikeAir".
func Variations(name string) []string {
	words := Words(name)
	if len(words) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(separators)*len(caseTransforms)*2+1)
	concat := strings.Join(words, "")
	for _, sep := range separators {
		joined := strings.Join(words, sep)
		for _, transform := range caseTransforms {
			set[transform(joined)] = struct{}{}
			set[transform(concat)] = struct{}{}
		}
	}

	titled := make([]string, len(words))
	for i, word := range words {
		titled[i] = titleCase(word)
	}
	set[strings.Join(titled, "")] = struct{}{}

	out := make([]string, 0, len(set))
	for v := range set {
		if v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// Words cleans name and splits it on whitespace.
func Words(name string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			return r
		case r == '-' || r == '_':
			return r
		default:
			return -1
		}
	}, name)
	return strings.Fields(cleaned)
}

// titleCase upper-cases a letter when the previous rune is not a letter and
// lower-cases it otherwise.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
