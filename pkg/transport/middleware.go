package transport

import (
	echo "github.com/labstack/echo/v5"
)

// securityHeaders sets standard security response headers on the WebSocket
// upgrade handshake, before the connection is hijacked into a long-lived
// socket.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			return next(c)
		}
	}
}
