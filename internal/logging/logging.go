// Package logging builds the run logger: every entry goes to stderr and to a
// timestamped file in the log directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

const FILE_PREFIX = "BasePolicyRules"

// FileName returns the run log name for t, e.g. BasePolicyRules.20240131.0915.log.
func FileName(t time.Time) string {
	return fmt.Sprintf("%s.%s.log", FILE_PREFIX, t.Format("20060102.1504"))
}

// New opens the run log in dir and returns a logger writing to it and to
// stderr. The returned closer flushes and closes the file.
func New(dir, level string) (*logrus.Logger, io.Closer, error) {
	return newLogger(dir, level, os.Stderr, time.Now())
}

func newLogger(dir, level string, console io.Writer, now time.Time) (*logrus.Logger, io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	path := filepath.Join(dir, FileName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open run log: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.MultiWriter(console, f))
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return logger, f, nil
}
