package vyakta

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parth-105/Vyakta/seo"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	posts, err := a.Service.Cache.Posts(ctx)
	if err != nil {
		return err
	}
	cats, err := a.Service.Cache.Categories(ctx)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts, cats)
}

func (a *App) renderSitemap(c echo.Context, posts []Post, cats []Category) error {
	base := a.Config.URL
	today := time.Now().UTC().Format(time.DateOnly)
	urls := []sitemapURL{
		{Loc: base, LastMod: today, ChangeFreq: "daily", Priority: "1.0"},
		{Loc: seo.JoinURL(base, "blog"), LastMod: today, ChangeFreq: "daily", Priority: "0.9"},
	}
	for _, p := range posts {
		urls = append(urls, sitemapURL{
			Loc:        seo.JoinURL(base, "blog", p.Slug),
			LastMod:    p.UpdatedAt.Format(time.DateOnly),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}
	for _, cat := range cats {
		urls = append(urls, sitemapURL{
			Loc:        seo.JoinURL(base, "blog", "category", cat.Slug),
			LastMod:    cat.UpdatedAt.Format(time.DateOnly),
			ChangeFreq: "weekly",
			Priority:   "0.7",
		})
	}
	urls = append(urls,
		sitemapURL{Loc: seo.JoinURL(base, "about"), ChangeFreq: "monthly", Priority: "0.5"},
		sitemapURL{Loc: seo.JoinURL(base, "contact"), ChangeFreq: "monthly", Priority: "0.5"},
	)
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
