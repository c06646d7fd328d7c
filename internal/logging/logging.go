package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the run logger: a dated file sink capturing everything from
// debug up, and a console sink from info up, or debug up when verbose is
// set. Both emit "timestamp - level - message" lines. The returned closer
// flushes and releases the file handle; call it exactly once when the run
// ends.
func New(logDir string, verbose bool) (*zap.Logger, func(), error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory %s: %w", logDir, err)
	}

	name := fmt.Sprintf("booking_etl_%s.log", time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	logger := zap.New(newCore(file, os.Stdout, verbose))
	closer := func() {
		_ = logger.Sync()
		_ = file.Close()
	}
	return logger, closer, nil
}

func newCore(file, console io.Writer, verbose bool) zapcore.Core {
	encCfg := zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		MessageKey:       "msg",
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " - ",
	}
	encoder := zapcore.NewConsoleEncoder(encCfg)

	consoleLevel := zapcore.InfoLevel
	if verbose {
		consoleLevel = zapcore.DebugLevel
	}

	return zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(file), zapcore.DebugLevel),
		zapcore.NewCore(encoder, zapcore.AddSync(console), consoleLevel),
	)
}
