package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAuthority rejects requests whose principal lacks all of the given
// authority strings. Unauthenticated requests get 401, except DELETE which
// gets 404 so that resource existence is not leaked to anonymous callers.
func RequireAuthority(authorities ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := PrincipalFrom(c)
			if !ok {
				if c.Request().Method == http.MethodDelete {
					return echo.NewHTTPError(http.StatusNotFound, "not found")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			for _, a := range authorities {
				if principal.HasAuthority(a) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient authority")
		}
	}
}
