package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxUserID pulls the session user id the auth middleware stored on the
// context. A zero id means the route was mounted without the middleware.
func ctxUserID(c echo.Context) (int64, error) {
	id, _ := c.Get("user_id").(int64)
	if id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}
