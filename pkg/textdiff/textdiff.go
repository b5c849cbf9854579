// Package textdiff measures how far a confirmed annotation moved from the
// text an OCR engine proposed.
package textdiff

import (
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// Metrics compares recognized text with the text the user confirmed
type Metrics struct {
	CharacterSimilarity float64 `json:"character_similarity"`
	WordSimilarity      float64 `json:"word_similarity"`
	EditDistance        int     `json:"edit_distance"`
	Edited              bool    `json:"edited"`
}

// Compare computes Metrics between the engine output and the confirmed text.
// Whitespace runs collapse and case is ignored before comparing.
func Compare(recognized, confirmed string) Metrics {
	orig := Normalize(recognized)
	conf := Normalize(confirmed)

	origRunes, confRunes := []rune(orig), []rune(conf)
	distance := Levenshtein(origRunes, confRunes)

	return Metrics{
		CharacterSimilarity: similarity(distance, len(origRunes), len(confRunes)),
		WordSimilarity:      wordSimilarity(strings.Fields(orig), strings.Fields(conf)),
		EditDistance:        distance,
		Edited:              recognized != confirmed,
	}
}

// Normalize lowercases text and collapses whitespace
func Normalize(text string) string {
	text = whitespace.ReplaceAllString(strings.TrimSpace(text), " ")
	return strings.ToLower(text)
}

// Levenshtein returns the edit distance between two sequences
func Levenshtein[T comparable](a, b []T) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func wordSimilarity(a, b []string) float64 {
	return similarity(Levenshtein(a, b), len(a), len(b))
}

func similarity(distance, lenA, lenB int) float64 {
	longest := max(lenA, lenB)
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(distance)/float64(longest)
}
