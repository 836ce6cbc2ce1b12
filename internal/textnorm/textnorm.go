// Package textnorm cleans text scraped from profile pages.
//
// Scraped text frequently contains the same phrase twice (a visible span plus
// a screen-reader span), doubled tokens and repeated separators. Sanitize
// removes that noise without touching legitimate content.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// maxDuplicatePasses bounds the consecutive-duplicate collapse loop.
const maxDuplicatePasses = 5

var connectorTo = regexp.MustCompile(`(?i)\bto\b`)

// Sanitize normalizes whitespace, date connectors and duplicated fragments.
func Sanitize(s string) string {
	s = CollapseWhitespace(s)
	if s == "" {
		return ""
	}
	s = NormalizeDateConnectors(s)
	s = CollapseDuplicateHalves(s)
	s = CollapseConsecutiveDuplicates(s)
	return CollapseDuplicateHalves(s)
}

// CollapseWhitespace replaces every whitespace run with a single space and
// trims both ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeDateConnectors replaces the standalone word "to" with "-", so
// "Jan 2020 to Mar 2021" reads "Jan 2020 - Mar 2021".
func NormalizeDateConnectors(s string) string {
	return connectorTo.ReplaceAllString(s, "-")
}

// CollapseDuplicateHalves returns the first half of s when s is exactly two
// copies of the same string, either back to back or joined by one space.
// Strings shorter than six runes are left alone.
func CollapseDuplicateHalves(s string) string {
	r := []rune(s)
	n := len(r)
	if n < 6 {
		return s
	}
	half := n / 2
	if n%2 == 0 {
		if string(r[:half]) == string(r[half:]) {
			return string(r[:half])
		}
		return s
	}
	if r[half] == ' ' && string(r[:half]) == string(r[half+1:]) {
		return string(r[:half])
	}
	return s
}

// CollapseConsecutiveDuplicates repeatedly removes adjacent duplicate words,
// doubled tokens and repeated separators until the text stops changing or
// the pass limit is reached.
func CollapseConsecutiveDuplicates(s string) string {
	for i := 0; i < maxDuplicatePasses; i++ {
		next := collapseRepeatedSeparators(collapseDoubledTokens(collapseRepeatedWords(s)))
		if next == s {
			break
		}
		s = next
	}
	return s
}

// Truncate cuts s to at most n runes and appends marker when it was cut.
func Truncate(s string, n int, marker string) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + marker
}

// NFC returns s in Unicode normalization form C.
func NFC(s string) string {
	return norm.NFC.String(s)
}

func isWordRune(r rune) bool {
	return r == '_' || (r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)))
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// boundary reports whether a word boundary sits before index i.
func boundary(r []rune, i int) bool {
	before := i > 0 && isWordRune(r[i-1])
	after := i < len(r) && isWordRune(r[i])
	return before != after
}

func isWordTokenRune(r rune) bool {
	if isASCIILetter(r) || (r >= '0' && r <= '9') {
		return true
	}
	switch r {
	case '&', '.', ',', '\'', '’', '-':
		return true
	}
	return false
}

func isDoubledTokenRune(r rune) bool {
	return isASCIILetter(r) || r == '\'' || r == '’' || r == '-'
}

func isSeparatorRune(r rune) bool {
	return r == '·' || r == '•' || r == '|'
}

func equalFoldRunes(a, b []rune) bool {
	return strings.EqualFold(string(a), string(b))
}

// collapseRepeatedWords turns "Engineer Engineer" into "Engineer". The
// repetition is matched case-insensitively and the first copy is kept.
func collapseRepeatedWords(s string) string {
	r := []rune(s)
	var out []rune
	last := 0
	for i := 0; i < len(r); {
		end, ok := matchRepeatedWord(r, i)
		if !ok {
			i++
			continue
		}
		tokenEnd := i
		for tokenEnd < len(r) && isWordTokenRune(r[tokenEnd]) {
			tokenEnd++
		}
		out = append(out, r[last:tokenEnd]...)
		last = end
		i = end
	}
	if last == 0 {
		return s
	}
	out = append(out, r[last:]...)
	return string(out)
}

func matchRepeatedWord(r []rune, i int) (int, bool) {
	if !isWordTokenRune(r[i]) || !boundary(r, i) {
		return 0, false
	}
	j := i
	for j < len(r) && isWordTokenRune(r[j]) {
		j++
	}
	token := r[i:j]
	k := j
	for k < len(r) && unicode.IsSpace(r[k]) {
		k++
	}
	if k == j || k+len(token) > len(r) {
		return 0, false
	}
	if !equalFoldRunes(token, r[k:k+len(token)]) {
		return 0, false
	}
	end := k + len(token)
	if !boundary(r, end) {
		return 0, false
	}
	return end, true
}

// collapseDoubledTokens turns "JanJan" into "Jan". Only tokens of three or
// more characters starting with a letter qualify.
func collapseDoubledTokens(s string) string {
	r := []rune(s)
	var out []rune
	last := 0
	for i := 0; i < len(r); {
		g, ok := matchDoubledToken(r, i)
		if !ok {
			i++
			continue
		}
		out = append(out, r[last:i+g]...)
		last = i + 2*g
		i = last
	}
	if last == 0 {
		return s
	}
	out = append(out, r[last:]...)
	return string(out)
}

func matchDoubledToken(r []rune, i int) (int, bool) {
	if !isASCIILetter(r[i]) || !boundary(r, i) {
		return 0, false
	}
	j := i
	for j < len(r) && isDoubledTokenRune(r[j]) {
		j++
	}
	for g := (j - i) / 2; g >= 3; g-- {
		if string(r[i:i+g]) == string(r[i+g:i+2*g]) && boundary(r, i+2*g) {
			return g, true
		}
	}
	return 0, false
}

// collapseRepeatedSeparators turns " · · " into " · ".
func collapseRepeatedSeparators(s string) string {
	r := []rune(s)
	var out []rune
	last := 0
	for i := 0; i < len(r); {
		g, end, ok := matchRepeatedSeparator(r, i)
		if !ok {
			i++
			continue
		}
		out = append(out, r[last:i+g]...)
		last = end
		i = end
	}
	if last == 0 {
		return s
	}
	out = append(out, r[last:]...)
	return string(out)
}

func matchRepeatedSeparator(r []rune, i int) (int, int, bool) {
	lead := 0
	for i+lead < len(r) && unicode.IsSpace(r[i+lead]) {
		lead++
	}
	for a := lead; a >= 0; a-- {
		sep := i + a
		if sep >= len(r) || !isSeparatorRune(r[sep]) {
			continue
		}
		trail := 0
		for sep+1+trail < len(r) && unicode.IsSpace(r[sep+1+trail]) {
			trail++
		}
		for b := trail; b >= 0; b-- {
			g := a + 1 + b
			group := string(r[i : i+g])
			end := i + g
			for end+g <= len(r) && string(r[end:end+g]) == group {
				end += g
			}
			if end > i+g {
				return g, end, true
			}
		}
	}
	return 0, 0, false
}
