package logger

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// ZerologLogger implements the ports.Logger interface using zerolog.
type ZerologLogger struct {
	logger zerolog.Logger
}

// ParseLevel converts a string level to a zerolog level, defaulting to Info.
func ParseLevel(levelStr string) zerolog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a new zerolog-backed logger writing to stderr.
// Console output is human readable; set json to true for structured output.
func New(level zerolog.Level, json bool) *ZerologLogger {
	var zl zerolog.Logger
	if json {
		zl = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	} else {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05.000"}
		zl = zerolog.New(writer).Level(level).With().Timestamp().Logger()
	}
	return &ZerologLogger{logger: zl}
}

func withFields(event *zerolog.Event, fields []map[string]interface{}) *zerolog.Event {
	if len(fields) > 0 && fields[0] != nil {
		event = event.Fields(fields[0])
	}
	return event
}

// Debug logs a message at Debug level.
func (l *ZerologLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	withFields(l.logger.Debug(), fields).Msg(msg)
}

// Info logs a message at Info level.
func (l *ZerologLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	withFields(l.logger.Info(), fields).Msg(msg)
}

// Warn logs a message at Warning level.
func (l *ZerologLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	withFields(l.logger.Warn(), fields).Msg(msg)
}

// Error logs an error message at Error level.
func (l *ZerologLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	withFields(l.logger.Error().Err(err), fields).Msg(msg)
}
