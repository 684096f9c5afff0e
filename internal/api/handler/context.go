package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxActor extracts the operator claims injected by the Auth middleware.
// Role presence proves the middleware ran; requests without it never reach
// a service call.
func ctxActor(c echo.Context) (actor, role string, err error) {
	role, _ = c.Get("role").(string)
	if role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	actor, _ = c.Get("operator").(string)
	if actor == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "token missing operator identity")
	}
	return actor, role, nil
}
