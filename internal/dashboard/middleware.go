package dashboard

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// accessLogger logs every request. Panel polls are logged at debug.
func accessLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		path := c.Request.URL.Path
		level := zerolog.InfoLevel
		if c.Request.Method == "GET" && strings.HasPrefix(path, "/api/panels/") {
			level = zerolog.DebugLevel
		}
		log.WithLevel(level).Msgf("[access] [%s] %s %s %d %v",
			c.ClientIP(), c.Request.Method, path, c.Writer.Status(), latency)
	}
}
