// Package logging builds the process-wide structured logger: a text handler
// writing to the console and to a size-rotated daily log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Defaults mirror the desktop app: 10 MB files, five backups
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 5
	DefaultName       = "streamgrab"
	DirPermissions    = 0o755
)

// Config holds logger configuration
type Config struct {
	Dir        string     // empty disables the file sink
	Name       string     // file name prefix
	Level      slog.Level // minimum level
	Console    io.Writer  // nil disables the console sink
	MaxSizeMB  int
	MaxBackups int
}

// New returns a logger and a closer for the file sink
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = DefaultMaxSizeMB
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = DefaultMaxBackups
	}

	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if cfg.Console != nil {
		writers = append(writers, cfg.Console)
	}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, DirPermissions); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, FileName(cfg.Name, time.Now())),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
		}
		writers = append(writers, file)
		closer = file
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = io.MultiWriter(writers...)
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.Level})
	return slog.New(handler), closer, nil
}

// FileName returns the daily log file name for prefix
func FileName(prefix string, day time.Time) string {
	return fmt.Sprintf("%s_%s.log", prefix, day.Format("20060102"))
}

// ParseLevel maps config strings (debug, info, warn, error) to slog levels
func ParseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
