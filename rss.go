package vyakta

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parth-105/Vyakta/seo"
)

const feedItemLimit = 20

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	AtomNS  string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	AtomLink      atomLink  `xml:"atom:link"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	GUID        rssGUID  `xml:"guid"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Service.Cache.Posts(c.Request().Context())
	if err != nil {
		return err
	}
	if len(posts) > feedItemLimit {
		posts = posts[:feedItemLimit]
	}
	return a.renderRSS(c, posts)
}

func (a *App) renderRSS(c echo.Context, posts []Post) error {
	base := a.Config.URL
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		published := p.UpdatedAt
		if p.PublishedAt != nil {
			published = *p.PublishedAt
		}
		postURL := seo.JoinURL(base, "blog", p.Slug)
		item := rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: p.MetaDescription,
			PubDate:     published.Format(time.RFC1123Z),
			GUID:        rssGUID{IsPermaLink: true, Value: postURL},
		}
		if p.Author != nil && p.Author.Name != "" {
			item.Author = p.Author.Name
		} else {
			item.Author = a.Config.Author
		}
		for _, cat := range p.Categories {
			item.Categories = append(item.Categories, cat.Name)
		}
		items = append(items, item)
	}
	feed := rssXML{
		Version: "2.0",
		AtomNS:  "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        base,
			Description: a.Config.Description,
			AtomLink: atomLink{
				Href: seo.JoinURL(base, "feed.xml"),
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Language:      "en-us",
			LastBuildDate: time.Now().UTC().Format(time.RFC1123Z),
			Items:         items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
