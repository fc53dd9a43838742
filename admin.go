package vyakta

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleDashboard(c echo.Context) error {
	stats, err := a.Service.Dashboard(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, stats)
}

func (a *App) handleAdminListPosts(c echo.Context) error {
	list, err := a.Service.ListAllPosts(c.Request().Context(), postQueryFrom(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, list)
}

func (a *App) handleAdminGetPost(c echo.Context) error {
	post, err := a.Service.GetPost(c.Request().Context(), trimParam(c, "slug"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, post)
}

func (a *App) handleAdminPreview(c echo.Context) error {
	post, err := a.Service.GetPost(c.Request().Context(), trimParam(c, "slug"))
	if err != nil {
		return err
	}
	cmp, err := postPreview(post)
	if err != nil {
		return err
	}
	return Render(c, cmp)
}

func (a *App) handleScorePreview(c echo.Context) error {
	var in PostInput
	if err := c.Bind(&in); err != nil {
		return invalid("body", "Invalid request body")
	}
	return ok(c, http.StatusOK, a.Service.ScorePreview(in))
}
