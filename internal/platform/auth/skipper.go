package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists URL paths that bypass authentication. Health checks must
// be reachable by probes, and the waiting-room queue board is a read-only
// display with no credentials of its own.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/ws/queue":  true,
}

// AuthSkipper returns true for requests whose path should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given path bypasses auth middleware.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
