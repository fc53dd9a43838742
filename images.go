package vyakta

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/parth-105/Vyakta/media"
)

func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return invalid("image", "No file uploaded")
	}
	if err := media.CheckUpload(file.Header.Get(echo.HeaderContentType), file.Size); err != nil {
		return invalid("image", "%s", err.Error())
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	img, err := a.Service.UploadImage(c.Request().Context(), src, media.UploadOptions{
		Filename:    file.Filename,
		ContentType: file.Header.Get(echo.HeaderContentType),
		Folder:      c.FormValue("folder"),
	})
	if errors.Is(err, media.ErrInvalidImage) {
		return invalid("image", "Invalid image: %s", err.Error())
	}
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, img)
}

func (a *App) handleImageDelete(c echo.Context) error {
	publicID := c.Param("*")
	if publicID == "" {
		return invalid("publicId", "Image id required")
	}
	err := a.Service.DeleteImage(c.Request().Context(), publicID)
	if errors.Is(err, media.ErrInvalidPublicID) {
		return invalid("publicId", "Invalid image id")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Image deleted successfully"})
}

func (a *App) handleImageList(c echo.Context) error {
	images, err := a.Service.ListImages(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, images)
}
