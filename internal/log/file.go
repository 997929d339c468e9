package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Retention is how long daily log files are kept.
const Retention = 7 * 24 * time.Hour

const filePrefix = "cachemgr-"

// FileName returns the daily log file name for t.
func FileName(t time.Time) string {
	return filePrefix + t.Format("2006-01-02") + ".log"
}

// OpenFile builds a zap logger appending to today's file in dir and
// removes files older than Retention. Level "off" returns a no-op logger.
// The returned func flushes the logger.
func OpenFile(dir, level string) (*zap.Logger, func() error, error) {
	if strings.EqualFold(level, "off") {
		return zap.NewNop(), func() error { return nil }, nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	now := time.Now()
	pruneOld(dir, now)

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{filepath.Join(dir, FileName(now))}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.NameKey = "logger"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.ConsoleSeparator = " | "

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, nil, err
	}
	z = z.Named("cachemgr")
	return z, z.Sync, nil
}

func pruneOld(dir string, now time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		day, err := time.ParseInLocation("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".log"), now.Location())
		if err != nil {
			continue
		}
		if now.Sub(day) > Retention {
			os.Remove(filepath.Join(dir, name))
		}
	}
}
