// Package logging points the standard logger at stdout and, optionally, a
// size-rotated log file.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the rotated file sink. An empty File logs to stdout only.
type Options struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Setup redirects the standard logger. The returned closer flushes and
// closes the log file; it is safe to call when no file was configured.
func Setup(opts Options) (io.Closer, error) {
	return setup(os.Stdout, opts)
}

func setup(console io.Writer, opts Options) (io.Closer, error) {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	path := strings.TrimSpace(opts.File)
	if path == "" {
		log.SetOutput(console)
		return nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	log.SetOutput(io.MultiWriter(console, rotator))
	log.Printf("[logging] writing to %s (max %dMB, %d backups)", path, opts.MaxSizeMB, opts.MaxBackups)
	return rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
