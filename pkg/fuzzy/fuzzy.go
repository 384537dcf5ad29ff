package fuzzy

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Distance is the edit distance between two normalized strings
func Distance(s1, s2 string) int {
	return levenshtein.ComputeDistance(Normalize(s1), Normalize(s2))
}

// Threshold is the typo tolerance for a query of this length
func Threshold(query string) int {
	n := len([]rune(query))
	switch {
	case n <= 3:
		return 1
	case n >= 8:
		return 3
	default:
		return 2
	}
}

// Match checks if query fuzzy-matches text within threshold edits
func Match(query, text string, threshold int) bool {
	query = Normalize(query)
	text = Normalize(text)
	if query == "" {
		return false
	}

	if strings.Contains(text, query) {
		return true
	}

	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) {
			return true
		}
		if levenshtein.ComputeDistance(query, word) <= threshold {
			return true
		}
	}

	// Whole-text distance only makes sense for short titles
	if len(text) < 50 {
		if levenshtein.ComputeDistance(query, text) <= threshold+len(query)/5 {
			return true
		}
	}
	return false
}

// MatchTask checks title first, then the first 500 characters of the description
func MatchTask(query, title, description string) bool {
	threshold := Threshold(query)
	if Match(query, title, threshold) {
		return true
	}
	if description == "" {
		return false
	}
	if r := []rune(description); len(r) > 500 {
		description = string(r[:500])
	}
	return Match(query, description, threshold)
}

// RelevanceScore ranks how well a task matches query. Higher is better.
func RelevanceScore(query, title, description string) float64 {
	query = Normalize(query)
	if query == "" {
		return 0
	}
	score := 0.0

	titleNorm := Normalize(title)
	if strings.Contains(titleNorm, query) {
		score += 100
		if containsWord(titleNorm, query) {
			score += 50
		}
		if strings.HasPrefix(titleNorm, query) {
			score += 20
		}
	} else {
		for _, word := range strings.Fields(titleNorm) {
			if dist := levenshtein.ComputeDistance(query, word); dist <= 2 {
				score += 50 - float64(dist)*15
			}
			if strings.HasPrefix(word, query) {
				score += 40
			}
		}
	}

	descNorm := Normalize(description)
	if strings.Contains(descNorm, query) {
		score += 30
		if containsWord(descNorm, query) {
			score += 10
		}
	}

	return score
}

// Normalize lowercases, folds accents and collapses whitespace
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = removeAccents(s)
	return strings.Join(strings.Fields(s), " ")
}

func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if word == query {
			return true
		}
	}
	return false
}

// removeAccents strips combining marks ("é" -> "e"). đ has no
// decomposition so it is mapped by hand.
func removeAccents(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(folder, s)
	if err != nil {
		out = s
	}
	return strings.NewReplacer("đ", "d", "Đ", "D").Replace(out)
}
