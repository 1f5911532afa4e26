package app

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging routes the standard logger to a rotated file when path is
// set. The returned closer flushes and closes that file.
func setupLogging(path string) (*log.Logger, io.Closer) {
	if path == "" {
		return log.Default(), nil
	}
	logfile, err := filepath.Abs(path)
	if err != nil {
		log.Printf("log file %q: %v; logging to stderr", path, err)
		return log.Default(), nil
	}
	if err := os.MkdirAll(filepath.Dir(logfile), 0o755); err != nil {
		log.Printf("log dir for %q: %v; logging to stderr", logfile, err)
		return log.Default(), nil
	}
	out := &lumberjack.Logger{
		Filename:   logfile,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
		LocalTime:  true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, out))
	return log.Default(), out
}
