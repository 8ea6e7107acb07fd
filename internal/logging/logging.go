package logging

import (
	"os"

	"github.com/cirruslabs/catcache/internal/logginglevel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogFileSizeMegabytes = 100
	maxLogFileBackups       = 3
)

// New creates a JSON logger writing to stderr and, when logFile
// is not empty, to a size-rotated file at that path.
func New(logFile string) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	writeSyncers := []zapcore.WriteSyncer{
		zapcore.Lock(os.Stderr),
	}

	if logFile != "" {
		writeSyncers = append(writeSyncers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    maxLogFileSizeMegabytes,
			MaxBackups: maxLogFileBackups,
		}))
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(writeSyncers...),
		logginglevel.Level,
	)

	return zap.New(core, zap.AddCaller())
}
