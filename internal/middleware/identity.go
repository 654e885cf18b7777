package middleware

// identity.go holds helpers shared by middleware and the request logger for
// reading who is acting on the current request.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/social-api/internal/auth"
)

// ActorID returns the acting user id as a string, or "guest" when the
// request carries no verified identity.
func ActorID(c echo.Context) string {
	id, ok := auth.IdentityFrom(c.Request().Context())
	if !ok {
		return "guest"
	}
	return strconv.FormatUint(id.ID, 10)
}
