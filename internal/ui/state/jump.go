package state

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// JumpTo moves the cursor to the entry that best matches query. The listing
// itself is never filtered.
func (d *Dir) JumpTo(query string) bool {
	if d == nil {
		return false
	}
	idx := BestMatchIndex(d.Names(), query)
	if idx < 0 {
		return false
	}
	return d.Select(idx)
}

// BestMatchIndex returns the best index for the query among labels: exact
// match, then prefix, then substring, then the closest fuzzy match.
func BestMatchIndex(labels []string, query string) int {
	trimmed := strings.TrimSpace(query)
	if len(labels) == 0 {
		return -1
	}
	if trimmed == "" {
		return 0
	}
	lower := strings.ToLower(trimmed)
	for i, label := range labels {
		if strings.EqualFold(label, trimmed) {
			return i
		}
	}
	for i, label := range labels {
		if strings.HasPrefix(strings.ToLower(label), lower) {
			return i
		}
	}
	for i, label := range labels {
		if strings.Contains(strings.ToLower(label), lower) {
			return i
		}
	}
	ranks := fuzzy.RankFindNormalizedFold(trimmed, labels)
	if len(ranks) == 0 {
		return -1
	}
	best := ranks[0]
	for _, rank := range ranks[1:] {
		if rank.Distance < best.Distance {
			best = rank
			continue
		}
		if rank.Distance == best.Distance && rank.OriginalIndex < best.OriginalIndex {
			best = rank
		}
	}
	if best.OriginalIndex < 0 || best.OriginalIndex >= len(labels) {
		return -1
	}
	return best.OriginalIndex
}
