package subject

import (
	"sort"
	"strings"
)

// LevenshteinSuggester is the default ports.FuzzySuggestPort: it ranks
// ID-map keys by edit distance to each missing ID.
type LevenshteinSuggester struct {
	// MaxSuggestions bounds the suggestions per missing ID. Zero means 3.
	MaxSuggestions int
}

// Suggest returns close map keys per missing ID, best first. A candidate
// qualifies when its edit distance is within a third of the longer
// string, so short IDs still get near-miss suggestions.
func (s *LevenshteinSuggester) Suggest(missing []string, candidates []string) map[string][]string {
	limit := s.MaxSuggestions
	if limit <= 0 {
		limit = 3
	}

	out := make(map[string][]string, len(missing))
	for _, id := range missing {
		type scored struct {
			key  string
			dist int
		}
		var close []scored
		for _, cand := range candidates {
			d := levenshtein(strings.ToLower(id), strings.ToLower(cand))
			maxLen := len(id)
			if len(cand) > maxLen {
				maxLen = len(cand)
			}
			cutoff := maxLen / 3
			if cutoff < 2 {
				cutoff = 2
			}
			if d <= cutoff {
				close = append(close, scored{key: cand, dist: d})
			}
		}
		sort.SliceStable(close, func(i, j int) bool {
			if close[i].dist != close[j].dist {
				return close[i].dist < close[j].dist
			}
			return close[i].key < close[j].key
		})
		if len(close) > limit {
			close = close[:limit]
		}
		keys := make([]string, len(close))
		for i, c := range close {
			keys[i] = c.key
		}
		out[id] = keys
	}
	return out
}

// levenshtein computes the edit distance with a two-row matrix
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
