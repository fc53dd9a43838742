package vyakta

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/parth-105/Vyakta/content"
	"github.com/parth-105/Vyakta/seo"
)

// TrendingWindow is how long a raised trending flag keeps a post in the
// trending list.
const TrendingWindow = 24 * time.Hour

// Field limits enforced by Validate.
const (
	maxTitleLength     = 200
	minMetaDescLength  = 120
	maxMetaDescLength  = 160
	minContentLength   = 100
	maxExcerptLength   = 300
	maxKeyphraseLength = 100
	maxCategoryNameLen = 100
	maxCategoryDescLen = 500
)

// apply copies the set fields of in onto p. A content change without an
// explicit excerpt clears the excerpt so Prepare derives it again.
func (p *Post) apply(in PostInput, now time.Time) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Slug != nil {
		p.Slug = strings.ToLower(strings.TrimSpace(*in.Slug))
	}
	if in.MetaDescription != nil {
		p.MetaDescription = strings.TrimSpace(*in.MetaDescription)
	}
	if in.Content != nil {
		p.Content = *in.Content
		p.Excerpt = ""
	}
	if in.Excerpt != nil {
		p.Excerpt = strings.TrimSpace(*in.Excerpt)
	}
	if in.FeaturedImage != nil {
		if in.FeaturedImage.URL == "" {
			p.FeaturedImage = nil
		} else {
			img := *in.FeaturedImage
			p.FeaturedImage = &img
		}
	}
	if in.Categories != nil {
		p.CategoryIDs = dedupe(in.Categories, false)
	}
	if in.Tags != nil {
		p.Tags = dedupe(in.Tags, true)
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.CanonicalURL != nil {
		p.CanonicalURL = strings.TrimSpace(*in.CanonicalURL)
	}
	if in.FocusKeyphrase != nil {
		p.FocusKeyphrase = strings.TrimSpace(*in.FocusKeyphrase)
	}
	if in.Trending != nil {
		p.Trending = Trending{IsTrending: in.Trending.IsTrending}
		if in.Trending.IsTrending {
			t := now
			p.Trending.TrendingAt = &t
		}
	}
}

// Prepare derives the computed fields of p before it is stored: the slug
// when none was given, reading time, the excerpt when none was given,
// publishedAt and the SEO score.
//
// publishedAt is set when the post enters published without one and is
// cleared in every other status, so a post that is unpublished and later
// republished gets a fresh publish time.
func (p *Post) Prepare(now time.Time) {
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if p.Slug == "" {
		p.Slug = seo.Slugify(p.Title)
	}
	if p.Content != "" {
		p.ReadingTime = content.ReadingTime(p.Content)
		if p.Excerpt == "" {
			p.Excerpt = content.Excerpt(p.Content)
		}
	}
	switch {
	case p.Status != StatusPublished:
		p.PublishedAt = nil
	case p.PublishedAt == nil:
		t := now
		p.PublishedAt = &t
	}
	p.SEOScore = seo.Score(p.seoFields())
}

// IsTrending reports whether p is flagged and was flagged within
// TrendingWindow of now.
func (p *Post) IsTrending(now time.Time) bool {
	t := p.Trending
	return t.IsTrending && t.TrendingAt != nil && !t.TrendingAt.Before(now.Add(-TrendingWindow))
}

func (p *Post) seoFields() seo.Fields {
	f := seo.Fields{
		Title:           p.Title,
		MetaDescription: p.MetaDescription,
		Content:         p.Content,
		Slug:            p.Slug,
		FocusKeyphrase:  p.FocusKeyphrase,
		Tags:            p.Tags,
		Categories:      p.CategoryIDs,
	}
	if p.FeaturedImage != nil {
		f.ImageURL = p.FeaturedImage.URL
		f.ImageAlt = p.FeaturedImage.Alt
	}
	return f
}

func (p *Post) article() seo.Article {
	a := seo.Article{
		Title:        p.Title,
		Description:  p.MetaDescription,
		Slug:         p.Slug,
		Content:      p.Content,
		Tags:         p.Tags,
		CanonicalURL: p.CanonicalURL,
		PublishedAt:  p.PublishedAt,
		UpdatedAt:    p.UpdatedAt,
		ReadingTime:  p.ReadingTime,
	}
	if p.FeaturedImage != nil {
		a.ImageURL = p.FeaturedImage.URL
	}
	if p.Author != nil {
		a.AuthorName = p.Author.Name
	}
	return a
}

// Validate checks p against the post contract. The same rules apply to
// creates and to the merged result of updates.
func (p *Post) Validate() error {
	switch {
	case p.Title == "":
		return invalid("title", "Title is required")
	case utf8.RuneCountInString(p.Title) > maxTitleLength:
		return invalid("title", "Title cannot exceed %d characters", maxTitleLength)
	case p.Slug == "":
		return invalid("slug", "Slug is required, add a title or slug")
	case !seo.ValidSlug(p.Slug):
		return invalid("slug", "Slug can only contain lowercase letters, numbers, and hyphens")
	case p.MetaDescription == "":
		return invalid("metaDescription", "Meta description is required")
	case utf8.RuneCountInString(p.MetaDescription) < minMetaDescLength:
		return invalid("metaDescription", "Meta description should be at least %d characters", minMetaDescLength)
	case utf8.RuneCountInString(p.MetaDescription) > maxMetaDescLength:
		return invalid("metaDescription", "Meta description cannot exceed %d characters", maxMetaDescLength)
	case strings.TrimSpace(p.Content) == "":
		return invalid("content", "Content is required")
	case utf8.RuneCountInString(p.Content) < minContentLength:
		return invalid("content", "Content should be at least %d characters", minContentLength)
	case len(p.CategoryIDs) == 0:
		return invalid("categories", "At least one category is required")
	case !p.Status.Valid():
		return invalid("status", "Status must be draft, published or trash")
	case utf8.RuneCountInString(p.Excerpt) > maxExcerptLength:
		return invalid("excerpt", "Excerpt cannot exceed %d characters", maxExcerptLength)
	case utf8.RuneCountInString(p.FocusKeyphrase) > maxKeyphraseLength:
		return invalid("focusKeyphrase", "Focus keyphrase cannot exceed %d characters", maxKeyphraseLength)
	case p.CanonicalURL != "" && !isHTTPURL(p.CanonicalURL):
		return invalid("canonicalUrl", "Canonical URL must be a valid HTTP/HTTPS URL")
	}
	return nil
}

// Validate checks a category before it is stored.
func (c *Category) Validate() error {
	switch {
	case c.Name == "":
		return invalid("name", "Category name is required")
	case utf8.RuneCountInString(c.Name) > maxCategoryNameLen:
		return invalid("name", "Category name cannot exceed %d characters", maxCategoryNameLen)
	case c.Slug == "":
		return invalid("slug", "Category slug is required")
	case !seo.ValidSlug(c.Slug):
		return invalid("slug", "Slug can only contain lowercase letters, numbers, and hyphens")
	case utf8.RuneCountInString(c.Description) > maxCategoryDescLen:
		return invalid("description", "Description cannot exceed %d characters", maxCategoryDescLen)
	case utf8.RuneCountInString(c.MetaDescription) > maxMetaDescLength:
		return invalid("metaDescription", "Meta description cannot exceed %d characters", maxMetaDescLength)
	}
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// dedupe trims values, drops empties and duplicates, and optionally
// lowercases.
func dedupe(vals []string, lower bool) []string {
	out := make([]string, 0, len(vals))
	seen := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
