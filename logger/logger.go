// Package logger wraps gookit/slog with the JSON console format used by every
// spacetraveling binary.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/gookit/slog"
	"github.com/gookit/slog/handler"
)

// Fields are extra top-level keys attached to a structured log line.
type Fields map[string]any

// Log is the process logger. It works at info level until Init is called.
var Log = New("info")

// Init replaces Log with a logger at the given level ("debug", "info", "warn", "error").
// Unknown or empty levels fall back to info.
func Init(level string) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "info"
	}
	Log = New(level)
}

// InitFromEnv reads the level from the environment variable key.
func InitFromEnv(key string) {
	Init(os.Getenv(key))
}

// New builds a JSON console logger emitting records at level and above.
func New(level string) *slog.Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter is New writing to w.
func NewWithWriter(level string, w io.Writer) *slog.Logger {
	max := slog.LevelByName(level)

	var levels slog.Levels
	for _, lv := range slog.AllLevels {
		if lv <= max {
			levels = append(levels, lv)
		}
	}

	h := handler.NewIOWriter(w, levels)
	h.SetFormatter(slog.NewJSONFormatter(func(f *slog.JSONFormatter) {
		f.Fields = []string{
			slog.FieldKeyDatetime,
			slog.FieldKeyLevel,
			slog.FieldKeyMessage,
		}
		f.Aliases = slog.StringMap{
			slog.FieldKeyDatetime: "time",
			slog.FieldKeyLevel:    "level",
			slog.FieldKeyMessage:  "msg",
		}
		f.TimeFormat = "2006-01-02T15:04:05Z07:00"
	}))

	return slog.NewWithHandlers(h)
}

func Debug(msg string, fields Fields) {
	Log.WithFields(slog.M(fields)).Debug(msg)
}

func Info(msg string, fields Fields) {
	Log.WithFields(slog.M(fields)).Info(msg)
}

func Warn(msg string, fields Fields) {
	Log.WithFields(slog.M(fields)).Warn(msg)
}

func Error(msg string, fields Fields) {
	Log.WithFields(slog.M(fields)).Error(msg)
}
