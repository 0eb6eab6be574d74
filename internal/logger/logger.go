package logger

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds a logger writing to w. format is "json" or "console".
func New(level, format string, w io.Writer) zerolog.Logger {
	var out io.Writer = w
	if strings.ToLower(format) == "console" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		}
	}
	return zerolog.New(out).Level(parseLogLevel(level)).With().
		Timestamp().
		Logger()
}

// Init builds a logger with New and installs it as the zerolog global.
func Init(level, format string, w io.Writer) zerolog.Logger {
	l := New(level, format, w)
	log.Logger = l
	return l
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
