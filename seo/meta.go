package seo

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// Site carries the site-wide values every page's metadata is built from.
type Site struct {
	Name        string
	URL         string
	Description string
	Author      string // byline used when a post has no author
}

// Meta is the head metadata for a page.
type Meta struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Keywords     string `json:"keywords,omitempty"`
	OGImage      string `json:"ogImage"`
	CanonicalURL string `json:"canonicalUrl,omitempty"`
	NoIndex      bool   `json:"noindex,omitempty"`
	Type         string `json:"type"`
}

// Article is the subset of a post needed for metadata and structured data.
type Article struct {
	Title        string
	Description  string
	Slug         string
	Content      string
	Tags         []string
	ImageURL     string
	CanonicalURL string
	AuthorName   string
	AuthorURL    string
	PublishedAt  *time.Time
	UpdatedAt    time.Time
	ReadingTime  int
}

// JoinURL joins base with path segments. Trailing slashes on base are dropped.
func JoinURL(base string, segments ...string) string {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return base
	}
	if len(segments) > 0 {
		u.Path = path.Join(append([]string{"/", u.Path}, segments...)...)
	}
	return u.String()
}

// PageMeta builds metadata for a generic page. The title gets the site name
// appended and a generated OpenGraph image is used when none is given.
func PageMeta(site Site, title, description string) Meta {
	return Meta{
		Title:       fmt.Sprintf("%s | %s", title, site.Name),
		Description: description,
		OGImage:     JoinURL(site.URL, "api", "og") + "?title=" + url.QueryEscape(title),
		Type:        "website",
	}
}

// PostMeta builds article metadata for a post. The post's own canonical URL
// wins over the site default.
func PostMeta(site Site, a Article) Meta {
	m := PageMeta(site, a.Title, a.Description)
	m.Type = "article"
	m.Keywords = strings.Join(a.Tags, ", ")
	if a.ImageURL != "" {
		m.OGImage = a.ImageURL
	}
	m.CanonicalURL = a.CanonicalURL
	if m.CanonicalURL == "" {
		m.CanonicalURL = JoinURL(site.URL, "blog", a.Slug)
	}
	return m
}

// CategoryMeta builds metadata for a category landing page.
func CategoryMeta(site Site, name, slug, description, metaDescription string) Meta {
	desc := metaDescription
	if desc == "" {
		desc = fmt.Sprintf("Read the latest articles about %s. %s", name, description)
	}
	m := PageMeta(site, name+" Articles", desc)
	m.Keywords = name
	m.CanonicalURL = JoinURL(site.URL, "blog", "category", slug)
	return m
}

func jsonLD(kind string, data map[string]any) string {
	data["@context"] = "https://schema.org"
	data["@type"] = kind
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// WebsiteJSONLD returns a WebSite schema with a search action.
func WebsiteJSONLD(site Site) string {
	return jsonLD("WebSite", map[string]any{
		"name":        site.Name,
		"description": site.Description,
		"url":         site.URL,
		"potentialAction": map[string]any{
			"@type": "SearchAction",
			"target": map[string]string{
				"@type":       "EntryPoint",
				"urlTemplate": JoinURL(site.URL, "search") + "?q={search_term_string}",
			},
			"query-input": "required name=search_term_string",
		},
	})
}

// ArticleJSONLD returns an Article schema for a post.
func ArticleJSONLD(site Site, a Article) string {
	postURL := JoinURL(site.URL, "blog", a.Slug)
	images := []string{}
	if a.ImageURL != "" {
		images = append(images, a.ImageURL)
	}
	data := map[string]any{
		"headline":     a.Title,
		"description":  a.Description,
		"image":        images,
		"dateModified": a.UpdatedAt.UTC().Format(time.RFC3339),
		"publisher": map[string]any{
			"@type": "Organization",
			"name":  site.Name,
			"logo": map[string]string{
				"@type": "ImageObject",
				"url":   JoinURL(site.URL, "logo.png"),
			},
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
		"keywords":     strings.Join(a.Tags, ", "),
		"wordCount":    len(strings.Fields(a.Content)),
		"timeRequired": fmt.Sprintf("PT%dM", a.ReadingTime),
	}
	if a.PublishedAt != nil {
		data["datePublished"] = a.PublishedAt.UTC().Format(time.RFC3339)
	}
	if a.AuthorName == "" {
		a.AuthorName, a.AuthorURL = site.Author, ""
	}
	if a.AuthorName != "" {
		author := map[string]string{"@type": "Person", "name": a.AuthorName}
		if a.AuthorURL != "" {
			author["url"] = a.AuthorURL
		}
		data["author"] = author
	}
	return jsonLD("Article", data)
}

// Crumb is one entry of a breadcrumb trail.
type Crumb struct {
	Name string
	URL  string
}

// BreadcrumbJSONLD returns a BreadcrumbList schema, positions starting at 1.
func BreadcrumbJSONLD(items []Crumb) string {
	list := make([]map[string]any, 0, len(items))
	for i, it := range items {
		list = append(list, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.URL,
		})
	}
	return jsonLD("BreadcrumbList", map[string]any{"itemListElement": list})
}
