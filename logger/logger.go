// Package logger builds the *logrus.Logger jetdb falls back to when a
// caller's DatabaseConfig leaves Logger nil: a single-line formatter
// carrying a timestamp, level, and caller location, which is what the
// rest of the engine expects every log line to look like.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config controls where New's logger writes and at what level.
type Config struct {
	Path  string
	Level string
}

// Formatter renders one log line as "[time] [LEVL] (caller) message".
type Formatter struct{}

func (Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format("15:04:05 MST 2006/01/02")
	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}
	return []byte(fmt.Sprintf("[%s] [%s] (%s) %s\n", timestamp, level, caller(), entry.Message)), nil
}

// caller walks past logrus's own frames to the first caller outside it.
func caller() string {
	for i := 2; i < 20; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "sirupsen") || strings.Contains(file, "/logger.go") {
			continue
		}
		return fmt.Sprintf("%s:%s:%d", filepath.Base(file), runtime.FuncForPC(pc).Name(), line)
	}
	return "unknown:unknown:0"
}

func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// New builds a *logrus.Logger using Formatter, writing to stdout or,
// when cfg.Path is set, to both stdout and that file.
func New(cfg Config) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetFormatter(Formatter{})
	l.SetLevel(parseLevel(cfg.Level))

	if cfg.Path == "" {
		l.SetOutput(os.Stdout)
		return l, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		l.SetOutput(os.Stdout)
		l.Warnf("jetdb: failed to open log file %s, falling back to stdout: %v", cfg.Path, err)
		return l, nil
	}
	l.SetOutput(io.MultiWriter(os.Stdout, f))
	return l, nil
}
