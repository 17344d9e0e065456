// Package textnorm provides the text normalization used by the classifier,
// the extractor and the hallucination validator. All matching in the pipeline
// goes through Fold so that "deficiência", "Deficiencia" and "DEFICIÊNCIA"
// compare equal.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Fold lowercases the text and strips diacritics. Transformation errors are
// not possible for valid UTF-8; invalid bytes are passed through unchanged.
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Stem reduces a folded Portuguese word to a crude stem: it strips a trailing
// plural "s" (and "es"/"is" variants) so "medicamentos" matches "medicamento"
// and "exames" matches "exame". This is intentionally shallow; the sensitive
// term tables are inflection-poor enough that a full stemmer is not needed.
func Stem(word string) string {
	w := word
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "oes"):
		return w[:len(w)-3] + "ao"
	case len(w) > 3 && strings.HasSuffix(w, "es"):
		return w[:len(w)-2]
	case len(w) > 3 && strings.HasSuffix(w, "is"):
		return w[:len(w)-2] + "l"
	case len(w) > 3 && strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}

// ContainsWord reports whether the folded term appears in the folded text on
// word boundaries. Multi-word terms match as contiguous phrases.
func ContainsWord(foldedText, foldedTerm string) bool {
	if foldedTerm == "" {
		return false
	}
	idx := 0
	for {
		i := strings.Index(foldedText[idx:], foldedTerm)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(foldedTerm)
		if boundaryBefore(foldedText, start) && boundaryAfter(foldedText, end) {
			return true
		}
		idx = start + 1
		if idx >= len(foldedText) {
			return false
		}
	}
}

// ContainsStemmed reports whether the term appears in the text after folding
// and stemming each word. Used by the validator to tolerate inflection when
// checking whether a sensitive term is traceable to the source text.
func ContainsStemmed(text, term string) bool {
	textStems := stemSet(text)
	termWords := strings.Fields(Fold(term))
	if len(termWords) == 0 {
		return false
	}
	for _, w := range termWords {
		if _, ok := textStems[Stem(w)]; !ok {
			return false
		}
	}
	return true
}

func stemSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range splitWords(Fold(text)) {
		set[Stem(w)] = struct{}{}
	}
	return set
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	return !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	return !isWordByte(s[i])
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b >= 0x80
}
