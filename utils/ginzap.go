package utils

import (
	"errors"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextUserIDKey is where the session middleware publishes the authenticated user id.
const ContextUserIDKey = "user_id"

// Ginzap returns a gin middleware that writes one access log line per request.
func Ginzap(logger *zap.Logger, timeFormat string, utc bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		path := ctx.Request.URL.Path
		query := ctx.Request.URL.RawQuery
		ctx.Next()

		end := time.Now()
		latency := end.Sub(start)
		if utc {
			end = end.UTC()
		}

		fields := []zap.Field{
			zap.Int("status", ctx.Writer.Status()),
			zap.String("method", ctx.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", ctx.ClientIP()),
			zap.String("user-agent", ctx.Request.UserAgent()),
			zap.Duration("latency", latency),
			zap.String("time", end.Format(timeFormat)),
		}
		if uid, ok := ctx.Get(ContextUserIDKey); ok {
			fields = append(fields, zap.Any("user_id", uid))
		}

		if len(ctx.Errors) > 0 {
			for _, e := range ctx.Errors.Errors() {
				logger.Error(e, fields...)
			}
			return
		}
		logger.Info(path, fields...)
	}
}

// RecoveryWithZap recovers from panics, logs them and answers 500. Broken client
// connections are logged without a response since nothing can be written.
func RecoveryWithZap(logger *zap.Logger, stack bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			brokenPipe := false
			if ne, ok := rec.(*net.OpError); ok {
				var se *os.SyscallError
				if errors.As(ne, &se) {
					msg := strings.ToLower(se.Error())
					brokenPipe = strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
				}
			}

			// Headers carry the session token and are left out of the log.
			httpRequest := ctx.Request.Method + " " + ctx.Request.URL.RequestURI()
			if brokenPipe {
				logger.Error(ctx.Request.URL.Path,
					zap.Any("error", rec),
					zap.String("request", httpRequest),
				)
				_ = ctx.Error(rec.(error))
				ctx.Abort()
				return
			}

			fields := []zap.Field{
				zap.Time("time", time.Now()),
				zap.Any("error", rec),
				zap.String("request", httpRequest),
			}
			if stack {
				fields = append(fields, zap.String("stack", string(debug.Stack())))
			}
			logger.Error("[Recovery from panic]", fields...)
			Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
			ctx.Abort()
		}()
		ctx.Next()
	}
}
