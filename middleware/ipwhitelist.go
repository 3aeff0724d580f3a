package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IPWhitelist only lets through clients whose IP matches one of entries,
// each a single IP or a CIDR block. An empty list allows everyone.
// Unparseable entries are logged and ignored.
func IPWhitelist(entries []string, log *zap.Logger) gin.HandlerFunc {
	var nets []*net.IPNet
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if !strings.Contains(e, "/") {
			if ip := net.ParseIP(e); ip != nil {
				bits := 32
				if ip.To4() == nil {
					bits = 128
				}
				e += "/" + strconv.Itoa(bits)
			}
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			log.Warn("ignoring bad whitelist entry", zap.String("entry", e))
			continue
		}
		nets = append(nets, n)
	}
	open := len(entries) == 0

	return func(c *gin.Context) {
		if open {
			c.Next()
			return
		}
		ip := net.ParseIP(c.ClientIP())
		for _, n := range nets {
			if ip != nil && n.Contains(ip) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}
