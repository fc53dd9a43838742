package vyakta

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func handleCSRF(c echo.Context) error {
	return ok(c, http.StatusOK, map[string]string{"csrfToken": CsrfToken(c)})
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many login attempts, try again later"})
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return invalid("body", "Invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return invalid("email", "Please provide email and password")
	}
	u, err := a.Service.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			a.loginLimiter.Record(ip)
			a.Log.Info("failed login", zap.String("ip", ip))
		}
		return err
	}
	a.loginLimiter.Reset(ip)
	if err := setUserSession(c, u.ID); err != nil {
		return err
	}
	return ok(c, http.StatusOK, u)
}

func handleLogout(c echo.Context) error {
	if err := clearUserSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
}

func handleMe(c echo.Context) error {
	u, _ := CurrentUser(c)
	return ok(c, http.StatusOK, u)
}
