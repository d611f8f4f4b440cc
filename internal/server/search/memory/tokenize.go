package memory

import (
	"strings"
	"unicode"
)

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// tokenize lowercases text and splits it on anything that is not a letter or
// a digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
}

// matcher decides which words of an attribute value match a query. Every
// query word but the last must match a whole word; the last one may match a
// word prefix.
type matcher struct {
	exact  [][]rune
	prefix []rune
}

func newMatcher(tokens []string) matcher {
	var m matcher
	for i, t := range tokens {
		if i == len(tokens)-1 {
			m.prefix = []rune(t)
			continue
		}
		m.exact = append(m.exact, []rune(t))
	}
	return m
}

func (m matcher) empty() bool {
	return len(m.exact) == 0 && len(m.prefix) == 0
}

// matchLen returns how many leading runes of word are matched, 0 for none.
func (m matcher) matchLen(word []rune) int {
	best := 0
	for _, e := range m.exact {
		if len(e) == len(word) && hasFoldedPrefix(word, e) {
			best = len(word)
		}
	}
	if len(m.prefix) > best && hasFoldedPrefix(word, m.prefix) {
		best = len(m.prefix)
	}
	return best
}

func hasFoldedPrefix(word, prefix []rune) bool {
	if len(prefix) > len(word) {
		return false
	}
	for i, r := range prefix {
		if unicode.ToLower(word[i]) != r {
			return false
		}
	}
	return true
}

// highlight wraps the matched part of each matching word in pre/post tags,
// keeping the original text and casing. It reports whether anything matched.
func (m matcher) highlight(text, pre, post string) (string, bool) {
	if m.empty() || text == "" {
		return text, false
	}

	runes := []rune(text)
	var b strings.Builder
	matched := false

	for i := 0; i < len(runes); {
		if !isWordRune(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && isWordRune(runes[j]) {
			j++
		}
		word := runes[i:j]
		if n := m.matchLen(word); n > 0 {
			matched = true
			b.WriteString(pre)
			b.WriteString(string(word[:n]))
			b.WriteString(post)
			b.WriteString(string(word[n:]))
		} else {
			b.WriteString(string(word))
		}
		i = j
	}

	return b.String(), matched
}

// matches reports whether text contains a word matching any query word.
func (m matcher) matches(text string) bool {
	for _, w := range tokenize(text) {
		if m.matchLen([]rune(w)) > 0 {
			return true
		}
	}
	return false
}
