package vyakta

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ok writes the success envelope.
func ok(c echo.Context, code int, data any) error {
	return c.JSON(code, map[string]any{"success": true, "data": data})
}

func queryInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(c.QueryParam(name))
	return n
}

func postQueryFrom(c echo.Context) PostQuery {
	return PostQuery{
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
		Category: c.QueryParam("category"),
		Tag:      c.QueryParam("tag"),
		Search:   c.QueryParam("search"),
		Sort:     c.QueryParam("sort"),
		Status:   Status(c.QueryParam("status")),
	}
}

func (a *App) handleListPosts(c echo.Context) error {
	q := postQueryFrom(c)
	q.Status = ""
	list, err := a.Service.ListPosts(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, list)
}

func (a *App) handleTrendingPosts(c echo.Context) error {
	posts, err := a.Service.TrendingPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, posts)
}

func (a *App) handleGetPost(c echo.Context) error {
	post, err := a.Service.GetPublishedPost(c.Request().Context(), trimParam(c, "slug"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, post)
}

func (a *App) handleSite(c echo.Context) error {
	return ok(c, http.StatusOK, a.Service.SiteInfo())
}

func (a *App) handleListCategories(c echo.Context) error {
	includeEmpty, _ := strconv.ParseBool(c.QueryParam("all"))
	cats, err := a.Service.ListCategories(c.Request().Context(), includeEmpty)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, cats)
}

func (a *App) handleGetCategory(c echo.Context) error {
	cat, err := a.Service.GetCategory(c.Request().Context(), trimParam(c, "id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, cat)
}

func (a *App) handleCreatePost(c echo.Context) error {
	var in PostInput
	if err := c.Bind(&in); err != nil {
		return invalid("body", "Invalid request body")
	}
	u, _ := CurrentUser(c)
	post, err := a.Service.CreatePost(c.Request().Context(), u, in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, post)
}

func (a *App) handleUpdatePost(c echo.Context) error {
	var in PostInput
	if err := c.Bind(&in); err != nil {
		return invalid("body", "Invalid request body")
	}
	u, _ := CurrentUser(c)
	post, err := a.Service.UpdatePost(c.Request().Context(), u, trimParam(c, "slug"), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, post)
}

func (a *App) handleDeletePost(c echo.Context) error {
	u, _ := CurrentUser(c)
	if err := a.Service.DeletePost(c.Request().Context(), u, trimParam(c, "slug")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Post deleted successfully"})
}

func (a *App) handleCreateCategory(c echo.Context) error {
	var in CategoryInput
	if err := c.Bind(&in); err != nil {
		return invalid("body", "Invalid request body")
	}
	cat, err := a.Service.CreateCategory(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, cat)
}

func (a *App) handleUpdateCategory(c echo.Context) error {
	var in CategoryInput
	if err := c.Bind(&in); err != nil {
		return invalid("body", "Invalid request body")
	}
	cat, err := a.Service.UpdateCategory(c.Request().Context(), trimParam(c, "id"), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, cat)
}

func (a *App) handleDeleteCategory(c echo.Context) error {
	if err := a.Service.DeleteCategory(c.Request().Context(), trimParam(c, "id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Category deleted successfully"})
}

func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /admin/\nDisallow: /api/\n\nSitemap: %s\n",
		a.Config.URL+"/sitemap.xml")
	return c.String(http.StatusOK, body)
}

// errorStatus maps an error to its HTTP status and client-facing message.
// Anything unrecognized is a 500 with a generic message.
func errorStatus(err error) (int, string) {
	var (
		ve *ValidationError
		ce *ConflictError
		nf *NotFoundError
		ae *AuthorizationError
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Message
	case errors.As(err, &ce):
		return http.StatusConflict, ce.Error()
	case errors.As(err, &nf):
		return http.StatusNotFound, nf.Error()
	case errors.As(err, &ae):
		return http.StatusForbidden, ae.Error()
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.As(err, &he):
		if he.Code >= http.StatusInternalServerError {
			return he.Code, "Internal server error"
		}
		return he.Code, fmt.Sprint(he.Message)
	}
	return http.StatusInternalServerError, "Internal server error"
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := errorStatus(err)
	if code >= http.StatusInternalServerError {
		a.Log.Error("server error",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"error": msg})
}
