package seo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSite = Site{Name: "Vyakta", URL: "https://example.com/", Description: "ideas"}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://example.com/blog/hello", JoinURL("https://example.com/", "blog", "hello"))
	assert.Equal(t, "https://example.com", JoinURL("https://example.com/"))
	assert.Equal(t, "https://example.com/sub/rss.xml", JoinURL("https://example.com/sub", "rss.xml"))
}

func TestPostMeta(t *testing.T) {
	got := PostMeta(testSite, Article{
		Title:       "Hello",
		Description: "desc",
		Slug:        "hello",
		Tags:        []string{"go", "web"},
	})
	want := Meta{
		Title:        "Hello | Vyakta",
		Description:  "desc",
		Keywords:     "go, web",
		OGImage:      "https://example.com/api/og?title=Hello",
		CanonicalURL: "https://example.com/blog/hello",
		Type:         "article",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PostMeta mismatch (-want +got):\n%s", diff)
	}

	custom := PostMeta(testSite, Article{Title: "x", Slug: "x", CanonicalURL: "https://other.dev/x", ImageURL: "https://img/x.png"})
	assert.Equal(t, "https://other.dev/x", custom.CanonicalURL)
	assert.Equal(t, "https://img/x.png", custom.OGImage)
}

func TestCategoryMetaFallsBackToGeneratedDescription(t *testing.T) {
	m := CategoryMeta(testSite, "Go", "go", "All about Go.", "")
	assert.Equal(t, "Go Articles | Vyakta", m.Title)
	assert.Equal(t, "Read the latest articles about Go. All about Go.", m.Description)
	assert.Equal(t, "https://example.com/blog/category/go", m.CanonicalURL)
}

func TestArticleJSONLD(t *testing.T) {
	published := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	raw := ArticleJSONLD(testSite, Article{
		Title:       "Hello",
		Slug:        "hello",
		Content:     "one two three",
		AuthorName:  "Asha",
		PublishedAt: &published,
		UpdatedAt:   published,
		ReadingTime: 1,
	})
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	assert.Equal(t, "Article", data["@type"])
	assert.Equal(t, "2024-05-01T10:00:00Z", data["datePublished"])
	assert.Equal(t, float64(3), data["wordCount"])
	assert.Equal(t, "PT1M", data["timeRequired"])
	assert.Equal(t, "Asha", data["author"].(map[string]any)["name"])

	site := testSite
	site.Author = "The Editors"
	raw = ArticleJSONLD(site, Article{Title: "Anon", Slug: "anon", UpdatedAt: published})
	data = nil
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	assert.Equal(t, "The Editors", data["author"].(map[string]any)["name"])

	raw = ArticleJSONLD(testSite, Article{Title: "Anon", Slug: "anon", UpdatedAt: published})
	data = nil
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	assert.NotContains(t, data, "author")
}

func TestWebsiteJSONLD(t *testing.T) {
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(WebsiteJSONLD(testSite)), &data))
	assert.Equal(t, "WebSite", data["@type"])
	assert.Equal(t, testSite.URL, data["url"])
	target := data["potentialAction"].(map[string]any)["target"].(map[string]any)
	assert.Equal(t, "https://example.com/search?q={search_term_string}", target["urlTemplate"])
}

func TestBreadcrumbJSONLD(t *testing.T) {
	raw := BreadcrumbJSONLD([]Crumb{{"Home", "https://example.com"}, {"Blog", "https://example.com/blog"}})
	var data struct {
		Items []struct {
			Position int    `json:"position"`
			Name     string `json:"name"`
		} `json:"itemListElement"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	require.Len(t, data.Items, 2)
	assert.Equal(t, 2, data.Items[1].Position)
	assert.Equal(t, "Blog", data.Items[1].Name)
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("Golang channels. Golang goroutines; the channels are great, golang!", 2)
	assert.Equal(t, []string{"golang", "channels"}, got)
	assert.Empty(t, ExtractKeywords("the and or a", 5))
}
