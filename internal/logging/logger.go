// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"strings"

	"github.com/pterm/pterm"
)

// New builds a structured logger writing to w.
// level is one of trace, debug, info, warn, error; anything else means info.
// format "json" selects the JSON formatter, anything else the colourful one.
func New(level, format string, w io.Writer) *pterm.Logger {
	l := pterm.DefaultLogger.
		WithLevel(ParseLevel(level)).
		WithWriter(w)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		l = l.WithFormatter(pterm.LogFormatterJSON)
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *pterm.Logger {
	return pterm.DefaultLogger.WithWriter(io.Discard)
}

// ParseLevel maps a level name to a pterm log level.
func ParseLevel(level string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	default:
		return pterm.LogLevelInfo
	}
}
