package vyakta

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const relatedPostLimit = 3

// relatedPosts returns up to limit posts other than current that share a
// category or a tag with it, keeping the order of posts.
func relatedPosts(current Post, posts []Post, limit int) []Post {
	catSet := make(map[string]struct{}, len(current.CategoryIDs))
	for _, id := range current.CategoryIDs {
		catSet[id] = struct{}{}
	}
	tagSet := make(map[string]struct{}, len(current.Tags))
	for _, t := range current.Tags {
		tagSet[strings.ToLower(t)] = struct{}{}
	}
	related := []Post{}
	for _, p := range posts {
		if len(related) == limit {
			break
		}
		if p.ID == current.ID {
			continue
		}
		if sharesAny(p.CategoryIDs, catSet) || sharesAny(p.Tags, tagSet) {
			related = append(related, p)
		}
	}
	return related
}

func sharesAny(vals []string, set map[string]struct{}) bool {
	for _, v := range vals {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

// trimParam returns a trimmed path parameter.
func trimParam(c echo.Context, name string) string {
	return strings.TrimSpace(c.Param(name))
}
