package seo

import (
	"sort"
	"strings"
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the a an and or but in on at to for of with by
		is are was were be been being have has had do does did
		will would could should may might can this that these those
		i you he she it we they me him her us them`) {
		stopWords[w] = struct{}{}
	}
}

// ExtractKeywords returns up to limit of the most frequent words in content.
// Words of three letters or fewer and common stop words are ignored. Ties
// keep the order in which words first appear.
func ExtractKeywords(content string, limit int) []string {
	if limit <= 0 {
		limit = 10
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, strings.ToLower(content))

	counts := make(map[string]int)
	var order []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) <= 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}
