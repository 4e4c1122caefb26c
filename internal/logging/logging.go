// Package logging configures the process-wide activity log: a daily file
// in the logs directory mirrored to the console.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Setup points logrus at the daily activity log file and stdout
func Setup(logsDir string) error {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	name := fmt.Sprintf("spam_processor_%s.log", time.Now().Format("20060102"))
	file, err := os.OpenFile(filepath.Join(logsDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open activity log: %w", err)
	}

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetOutput(io.MultiWriter(os.Stdout, file))

	return nil
}
