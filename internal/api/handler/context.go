package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/middleware"
)

// ctxSubject returns the verified token subject stored by the Auth
// middleware. Its absence means the route was registered without the
// middleware.
func ctxSubject(c echo.Context) (string, error) {
	subject, _ := c.Get(middleware.ContextKeySubject).(string)
	if subject == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return subject, nil
}
