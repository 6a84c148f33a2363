// Package logging builds the zerolog loggers shared by the binaries.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/zhouzirui/study-buddy/internal/config"
)

// New returns a logger writing to stderr, or to a rotating file when cfg.File is set.
// The returned closer releases the file and is a no-op otherwise.
func New(cfg config.LogConfig) (zerolog.Logger, io.Closer, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		out, closer = rotating, rotating
	}

	return build(out, cfg.Format, level), closer, nil
}

// NewFileOnly is used by the terminal window, where stdout and stderr belong to the UI.
// Without a configured file, logs are discarded.
func NewFileOnly(cfg config.LogConfig) (zerolog.Logger, io.Closer, error) {
	if cfg.File == "" {
		return zerolog.Nop(), nopCloser{}, nil
	}
	// A console writer would emit ANSI colors into the file.
	cfg.Format = "json"
	return New(cfg)
}

func build(out io.Writer, format string, level zerolog.Level) zerolog.Logger {
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func parseLevel(raw string) (zerolog.Level, error) {
	if raw == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(raw)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "invalid log level %q", raw)
	}
	return level, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
