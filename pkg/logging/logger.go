// Package logging provides structured logging functionality using Zap and OpenTelemetry bridge
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"trendgrid/internal/core"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation is the time based log file rotation period
type Rotation string

const (
	RotationHourly Rotation = "hourly"
	RotationDaily  Rotation = "daily"
	RotationNever  Rotation = "never"
)

// Options configures a ZapLogger
type Options struct {
	Level      string
	FilePath   string // empty disables file output
	Rotation   Rotation
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ZapLogger implements the ILogger interface using zap.Logger
type ZapLogger struct {
	logger  *zap.Logger
	rotator *rotator
}

// NewZapLogger creates a stdout-only ZapLogger instance
func NewZapLogger(levelStr string) (*ZapLogger, error) {
	return New(Options{Level: levelStr})
}

// New creates a ZapLogger writing to stdout, the OTel log bridge and optionally a rotated file
func New(opts Options) (*ZapLogger, error) {
	zapLevel, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(os.Stdout),
			zapLevel,
		),
		// Add OTel bridge
		otelzap.NewCore("trendgrid", otelzap.WithLoggerProvider(global.GetLoggerProvider())),
	}

	var rot *rotator
	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(lj),
			zapLevel,
		))
		rot = newRotator(lj, opts.Rotation)
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))

	return &ZapLogger{
		logger:  logger,
		rotator: rot,
	}, nil
}

// ParseLevel parses a log level string
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zap.DebugLevel, nil
	case "", "INFO":
		return zap.InfoLevel, nil
	case "WARN":
		return zap.WarnLevel, nil
	case "ERROR":
		return zap.ErrorLevel, nil
	case "FATAL":
		return zap.FatalLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// convertToZapFields converts variadic interface fields to zap.Field
func (l *ZapLogger) convertToZapFields(fields []interface{}) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key, ok := fields[i].(string)
			if !ok {
				key = fmt.Sprintf("%v", fields[i])
			}
			if err, isErr := fields[i+1].(error); isErr {
				zapFields = append(zapFields, zap.NamedError(key, err))
				continue
			}
			zapFields = append(zapFields, zap.Any(key, fields[i+1]))
		}
	}
	return zapFields
}

func (l *ZapLogger) Debug(msg string, fields ...interface{}) {
	l.logger.Debug(msg, l.convertToZapFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields ...interface{}) {
	l.logger.Info(msg, l.convertToZapFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields ...interface{}) {
	l.logger.Warn(msg, l.convertToZapFields(fields)...)
}

func (l *ZapLogger) Error(msg string, fields ...interface{}) {
	l.logger.Error(msg, l.convertToZapFields(fields)...)
}

func (l *ZapLogger) Fatal(msg string, fields ...interface{}) {
	l.logger.Fatal(msg, l.convertToZapFields(fields)...)
}

func (l *ZapLogger) WithField(key string, value interface{}) core.ILogger {
	return &ZapLogger{
		logger:  l.logger.With(zap.Any(key, value)),
		rotator: l.rotator,
	}
}

func (l *ZapLogger) WithFields(fields map[string]interface{}) core.ILogger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &ZapLogger{
		logger:  l.logger.With(zapFields...),
		rotator: l.rotator,
	}
}

// Sync flushes any buffered log entries
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// Close flushes the logger and stops file rotation
func (l *ZapLogger) Close() error {
	_ = l.logger.Sync() // stdout does not support sync on every platform
	if l.rotator != nil {
		return l.rotator.stop()
	}
	return nil
}

// rotator forces a lumberjack rotation at every hour or day boundary
type rotator struct {
	file     *lumberjack.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newRotator(file *lumberjack.Logger, rotation Rotation) *rotator {
	r := &rotator{
		file:   file,
		stopCh: make(chan struct{}),
	}
	if rotation == RotationHourly || rotation == RotationDaily {
		go r.loop(rotation)
	}
	return r
}

func (r *rotator) loop(rotation Rotation) {
	for {
		now := time.Now()
		timer := time.NewTimer(nextRotation(now, rotation).Sub(now))
		select {
		case <-r.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			_ = r.file.Rotate()
		}
	}
}

func (r *rotator) stop() error {
	r.stopOnce.Do(func() { close(r.stopCh) })
	return r.file.Close()
}

// nextRotation returns the next period boundary strictly after now
func nextRotation(now time.Time, rotation Rotation) time.Time {
	switch rotation {
	case RotationHourly:
		return now.Truncate(time.Hour).Add(time.Hour)
	case RotationDaily:
		y, m, d := now.Date()
		return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	default:
		return time.Time{}
	}
}
