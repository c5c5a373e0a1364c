package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// Options configures Setup.
type Options struct {
	// Level is debug, info, warn or error.
	Level string
	// Format is "console" for human-readable output or "json".
	Format string
	// File, when set, receives a JSON copy of every record with rotation.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Writer overrides stderr as the primary destination.
	Writer io.Writer
}

// Setup builds a zerolog provider from opts, attaches fields (typically the run
// ID) to it and installs it as the global provider.
func Setup(opts Options, fields ...any) (*ZerologProvider, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}
	if opts.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, rotating)
	}

	p := NewZerologProviderWithWriter(out, level)
	if len(fields) > 0 {
		p.With(fields...)
	}
	SetProvider(p)
	return p, nil
}

func pkgerrorsSetWarn(fn func(error)) {
	errors.SetZerologWarnFunc(fn)
}
