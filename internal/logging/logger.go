package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures a logger.
type Options struct {
	Level      string // debug, info, warn, error
	Format     string // auto, json, console
	File       string // rotated log file, optional
	MaxSizeMB  int
	MaxBackups int

	// Output overrides stderr. Used by tests.
	Output io.Writer
}

var globalMu sync.Mutex //nolint:gochecknoglobals

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level: %s", s)
	}
}

// New builds a logger from opts. The returned closer releases the log file
// and is never nil.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var writer io.Writer = NewRedactingWriter(selectOutput(opts))
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		fileWriter, err := newFileWriter(opts)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
		closer = fileWriter
		writer = zerolog.MultiLevelWriter(writer, NewRedactingWriter(fileWriter))
	}

	logger := zerolog.New(writer).
		Level(level).
		Hook(SensitiveDataHook{}).
		With().Timestamp().Logger()
	return logger, closer, nil
}

// Init builds a logger and installs it as the zerolog global logger.
func Init(opts Options) (zerolog.Logger, io.Closer, error) {
	logger, closer, err := New(opts)
	if err != nil {
		return logger, closer, err
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	log.Logger = logger
	return logger, closer, nil
}

// selectOutput picks a console writer for a terminal and JSON otherwise.
func selectOutput(opts Options) io.Writer {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	switch opts.Format {
	case "json":
		return out
	case "console":
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: os.Getenv("NO_COLOR") != ""}
	}

	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return out
}

// newFileWriter creates a rotating log file.
func newFileWriter(opts Options) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
