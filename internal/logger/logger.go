package logger

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Setup initializes the global zerolog logger based on environment configuration.
//   - level: log level string (trace, debug, info, warn, error, fatal, panic)
//   - format: "json" for production, "pretty" for human-readable dev output
//
// Returns the configured logger instance.
func Setup(level, format string) zerolog.Logger {
	return New(os.Stdout, level, format)
}

// New builds the same logger as Setup on an arbitrary writer.
// CLI tools pass os.Stderr so their own prompts stay readable.
func New(out io.Writer, level, format string) zerolog.Logger {
	var writer io.Writer = out
	if format == "pretty" {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()
}

// RequestLogger logs one line per HTTP request in place of gin's default logger.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	httpLog := log.With().Str("component", "http").Logger()

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		evt := httpLog.Info()
		switch {
		case status >= 500:
			evt = httpLog.Error()
		case status >= 400:
			evt = httpLog.Warn()
		}

		reqID, _ := c.Get("request_id")
		evt.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Interface("request_id", reqID).
			Msg("request")
	}
}
