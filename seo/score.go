package seo

import (
	"strings"
	"unicode/utf8"
)

// Fields are the post attributes the SEO score looks at.
type Fields struct {
	Title           string
	MetaDescription string
	Content         string
	Slug            string
	FocusKeyphrase  string
	ImageURL        string
	ImageAlt        string
	Tags            []string
	Categories      []string
}

// MaxScore is the ceiling of Score.
const MaxScore = 100

// Score rates how well a post is prepared for search engines on a 0-100
// scale. Each rubric is independent; within a rubric the first matching band
// wins. Thresholds must stay stable: stored scores are compared across saves.
func Score(f Fields) int {
	score := titleScore(f.Title) +
		metaDescriptionScore(f.MetaDescription) +
		contentScore(f.Content) +
		imageScore(f.ImageURL, f.ImageAlt) +
		tagScore(len(f.Tags)) +
		categoryScore(len(f.Categories)) +
		keyphraseScore(f.FocusKeyphrase, f.Title, f.MetaDescription) +
		slugScore(f.Slug)
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func titleScore(title string) int {
	n := utf8.RuneCountInString(title)
	switch {
	case n >= 30 && n <= 60:
		return 20
	case n >= 20 && n <= 70:
		return 15
	case n >= 10:
		return 10
	}
	return 0
}

func metaDescriptionScore(desc string) int {
	n := utf8.RuneCountInString(desc)
	switch {
	case n >= 120 && n <= 160:
		return 20
	case n >= 100 && n <= 180:
		return 15
	case n >= 50:
		return 10
	}
	return 0
}

func contentScore(content string) int {
	words := len(strings.Fields(content))
	switch {
	case words >= 1500:
		return 15
	case words >= 1000:
		return 12
	case words >= 500:
		return 8
	case words >= 300:
		return 5
	}
	return 0
}

func imageScore(url, alt string) int {
	switch {
	case url != "" && alt != "":
		return 10
	case url != "":
		return 5
	}
	return 0
}

func tagScore(n int) int {
	switch {
	case n >= 3 && n <= 8:
		return 10
	case n >= 1 && n <= 10:
		return 7
	}
	return 0
}

func categoryScore(n int) int {
	switch {
	case n >= 1 && n <= 3:
		return 10
	case n >= 1 && n <= 5:
		return 7
	}
	return 0
}

func keyphraseScore(keyphrase, title, desc string) int {
	if keyphrase == "" {
		return 0
	}
	score := 5
	kp := strings.ToLower(keyphrase)
	if strings.Contains(strings.ToLower(title), kp) {
		score += 3
	}
	if strings.Contains(strings.ToLower(desc), kp) {
		score += 2
	}
	return score
}

func slugScore(slug string) int {
	if slug == "" {
		return 0
	}
	n := len(strings.Split(slug, "-"))
	switch {
	case n >= 2 && n <= 6:
		return 5
	case n >= 1 && n <= 8:
		return 3
	}
	return 0
}
