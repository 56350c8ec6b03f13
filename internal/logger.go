package internal

import (
	"fmt"
	"io"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Supported log formats.
const (
	LogFormatLogfmt = "logfmt"
	LogFormatJSON   = "json"
)

// Supported log levels.
const (
	LogLevelError = "error"
	LogLevelWarn  = "warn"
	LogLevelInfo  = "info"
	LogLevelDebug = "debug"
)

// NewLogger returns a leveled logger writing to w in the given format.
func NewLogger(w io.Writer, logLevel, logFormat, debugName string) (log.Logger, error) {
	var lvl level.Option

	switch logLevel {
	case LogLevelError:
		lvl = level.AllowError()
	case LogLevelWarn:
		lvl = level.AllowWarn()
	case LogLevelInfo:
		lvl = level.AllowInfo()
	case LogLevelDebug:
		lvl = level.AllowDebug()
	default:
		return nil, fmt.Errorf("unexpected log level <%s>", logLevel)
	}

	var logger log.Logger

	switch logFormat {
	case LogFormatLogfmt:
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	case LogFormatJSON:
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	default:
		return nil, fmt.Errorf("unexpected log format <%s>", logFormat)
	}

	logger = level.NewFilter(logger, lvl)

	if debugName != "" {
		logger = log.With(logger, "name", debugName)
	}

	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller), nil
}
