// Package seo holds the pure search-engine helpers used when posts are saved
// and served: slug generation, the editorial SEO score, keyword extraction,
// page metadata and JSON-LD structured data.
package seo

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxSlugLength is the longest slug Slugify will produce.
const MaxSlugLength = 100

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Slugify converts a title to a URL-safe slug.
//
// The title is lowercased, every character outside [a-z0-9], whitespace and
// '-' is dropped, and each run of whitespace and hyphens becomes a single
// hyphen. Leading and trailing hyphens are trimmed and the result is cut to
// MaxSlugLength. An empty or all-symbol title yields "".
func Slugify(title string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			sep = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			sep = true
		}
	}
	s := b.String()
	if len(s) > MaxSlugLength {
		s = strings.TrimRight(s[:MaxSlugLength], "-")
	}
	return s
}

// ValidSlug reports whether s is a non-empty slug of lowercase letters,
// digits and single hyphens no longer than MaxSlugLength.
func ValidSlug(s string) bool {
	return len(s) <= MaxSlugLength && slugPattern.MatchString(s)
}
