package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// NewStageLogger creates a logger for one pipeline stage. Console output is
// human-readable at the requested level; when outputDir and agreementID are
// set, everything down to debug is additionally written to
// <outputDir>/<agreementID>/logs/<stage>.log so a run can be audited later.
// The returned closer flushes the log file; it is a no-op for console-only
// loggers.
func NewStageLogger(stage, outputDir, agreementID, level string, debug bool) (zerolog.Logger, func() error, error) {
	consoleLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		consoleLevel = zerolog.InfoLevel
	}
	if debug {
		consoleLevel = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}
	writers := []io.Writer{&zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: console},
		Level:  consoleLevel,
	}}

	closer := func() error { return nil }
	if outputDir != "" && agreementID != "" {
		logsDir := filepath.Join(outputDir, agreementID, "logs")
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("create logs directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(logsDir, stage+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f.Close
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Str("stage", stage).
		Logger()

	return logger, closer, nil
}
