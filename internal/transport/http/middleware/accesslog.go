package middleware

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Query keys whose values never reach the log.
var maskedKeys = map[string]bool{
	"password": true, "pwd": true, "token": true, "access_token": true,
	"authorization": true, "secret": true, "client_secret": true,
}

func maskQuery(q url.Values) map[string][]string {
	out := make(map[string][]string, len(q))
	for k, v := range q {
		if maskedKeys[strings.ToLower(k)] {
			v = []string{"****"}
		}
		out[k] = v
	}
	return out
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

// AccessLog writes one line per request after the handler chain ran. Client
// errors log at warn, server errors at error.
func AccessLog(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("rid", c.GetString(KeyRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(began)),
			zap.String("ip", c.ClientIP()),
			zap.String("ua", c.Request.UserAgent()),
			zap.Any("query", maskQuery(c.Request.URL.Query())),
			zap.Int("size", max(0, c.Writer.Size())),
		}
		if id := Identity(c); id != nil {
			fields = append(fields, zap.Uint("uid", id.UserID))
		}
		if ce := l.Check(levelFor(status), "HTTP"); ce != nil {
			ce.Write(fields...)
		}
	}
}
