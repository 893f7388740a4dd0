package middleware

// identity.go holds the helpers that tell callers apart: the restaurant a
// request is scoped to, and the key rate-limit buckets are filed under.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// RestaurantID returns the restaurant scope stored by JWTAuth.  ok is
// false on routes that are not behind JWTAuth.
func RestaurantID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxRestaurantID).(uint64)
	return id, ok && id != 0
}

// callerID names the caller for rate limiting: the restaurant scope when
// authenticated, "anon" otherwise.
func callerID(c echo.Context) string {
	if id, ok := RestaurantID(c); ok {
		return "r" + strconv.FormatUint(id, 10)
	}
	return "anon"
}

// clientIP is c.RealIP with a placeholder for empty addresses.
func clientIP(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "unknown"
}
