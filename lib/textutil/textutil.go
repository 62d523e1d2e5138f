package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// CollapseSpace trims the string and turns every run of whitespace into a single space.
func CollapseSpace(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Fold lowercases and strips diacritics, "Língua Portuguesa" and "lingua portuguesa" fold
// to the same string. "º" is kept since it distinguishes "5º ano" from "5 ano" on QEdu.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(CollapseSpace(folded))
}

// ContainsFold reports whether `substr` is within `s`, ignoring case, accents and
// differences in whitespace.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

// IndexContaining returns the index of the first candidate containing `target` (see ContainsFold),
// or -1.
func IndexContaining(candidates []string, target string) int {
	for i, c := range candidates {
		if ContainsFold(c, target) {
			return i
		}
	}
	return -1
}

// ClosestMatch returns the index of the candidate most similar to `target` by Jaro-Winkler distance,
// only if the similarity is at least `threshold`. It returns -1 otherwise, and when no candidate
// shares anything with `target`.
func ClosestMatch(candidates []string, target string, threshold float64) (int, float64) {
	folded := Fold(target)

	best := -1
	var bestSimilarity float64
	for i, c := range candidates {
		similarity := matchr.JaroWinkler(Fold(c), folded, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = i
		}
	}
	if best < 0 || bestSimilarity < threshold {
		return -1, bestSimilarity
	}
	return best, bestSimilarity
}
