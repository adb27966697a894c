package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP sets the client IP into Gin context (key: "real_ip").
// Forwarding headers are honoured only when trustProxy is set, otherwise a
// caller could pick its own rate-limit bucket.
// Priority:
// 1) CF-Connecting-IP (Cloudflare)
// 2) X-Forwarded-For (left-most)
// 3) fallback to the connection's remote address
func RealIP(trustProxy bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if trustProxy {
			if ip := forwardedIP(c); ip != "" {
				c.Set("real_ip", ip)
				c.Next()
				return
			}
		}
		c.Set("real_ip", c.RemoteIP())
		c.Next()
	}
}

func forwardedIP(c *gin.Context) string {
	if cf := strings.TrimSpace(c.GetHeader("CF-Connecting-IP")); cf != "" {
		if ip := net.ParseIP(cf); ip != nil {
			return ip.String()
		}
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	return ""
}
