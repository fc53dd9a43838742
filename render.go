package vyakta

import (
	"context"
	"html"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/parth-105/Vyakta/content"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// postPreview renders a post's markdown into a minimal standalone page for
// the editor preview.
func postPreview(p Post) (templ.Component, error) {
	body, err := content.Render(p.Content)
	if err != nil {
		return nil, err
	}
	title := html.EscapeString(p.Title)
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="robots" content="noindex"><title>Preview: `+title+`</title></head>`+
			`<body><article><h1>`+title+`</h1>`+body+`</article></body></html>`)
		return err
	}), nil
}
