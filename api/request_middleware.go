package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const requestLoggerKey = "request_logger"

// requestMiddleware tags every request with an id, taken from the X-Request-Id header when it
// holds a uuid, and logs the request once it is handled.
func requestMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		ctx.Header(RequestIDHeader, id)

		logger := log.With().Str("request_id", id).Logger()
		ctx.Set(requestLoggerKey, logger)

		start := time.Now()
		ctx.Next()

		event := logger.Info()
		if ctx.Writer.Status() >= 500 {
			event = logger.Error()
		}
		event.
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", ctx.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request handled")
	}
}

// requestLogger returns the logger of the current request.
func requestLogger(ctx *gin.Context) zerolog.Logger {
	if v, ok := ctx.Get(requestLoggerKey); ok {
		if logger, ok := v.(zerolog.Logger); ok {
			return logger
		}
	}
	return log.Logger
}
