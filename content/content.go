// Package content derives reader-facing values from a post body: word count,
// reading time, the automatic excerpt, rendered HTML and a table of contents.
package content

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

const (
	// WordsPerMinute is the reading speed used for ReadingTime.
	WordsPerMinute = 200
	// ExcerptLength is the number of plain-text characters kept in an excerpt.
	ExcerptLength = 150
	// Ellipsis marks a truncated excerpt.
	Ellipsis = "..."
)

var reTag = regexp.MustCompile(`<[^>]*>`)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// WordCount returns the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// ReadingTime estimates minutes to read s, rounded up, never below one.
func ReadingTime(s string) int {
	words := WordCount(s)
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// StripTags removes anything that looks like a markup tag.
func StripTags(s string) string {
	return reTag.ReplaceAllString(s, "")
}

// Excerpt returns the first ExcerptLength characters of s with tags removed,
// followed by Ellipsis when the text was cut.
func Excerpt(s string) string {
	plain := []rune(StripTags(s))
	if len(plain) <= ExcerptLength {
		return string(plain)
	}
	return string(plain[:ExcerptLength]) + Ellipsis
}

// Render converts markdown to HTML. Raw HTML in the source is omitted.
func Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Heading is one entry in a table of contents.
type Heading struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// TableOfContents lists the h2 and h3 headings of rendered HTML in document
// order. Headings without an id cannot be linked and are skipped.
func TableOfContents(html string) ([]Heading, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	toc := []Heading{}
	doc.Find("h2, h3").Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("id")
		if !ok || id == "" {
			return
		}
		level := 2
		if goquery.NodeName(s) == "h3" {
			level = 3
		}
		toc = append(toc, Heading{ID: id, Text: strings.TrimSpace(s.Text()), Level: level})
	})
	return toc, nil
}
