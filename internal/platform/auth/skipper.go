package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are infrastructure endpoints reachable without credentials.
var publicPaths = map[string]bool{
	"/health":          true,
	"/health/ready":    true,
	"/health/db/stats": true,
	"/auth/login":      true,
}

// AuthSkipper returns true for requests whose route should skip
// authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given path bypasses auth.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
