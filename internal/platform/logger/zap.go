// File: internal/platform/logger/zap.go
package logger

import (
	"strings"

	"arc_community_backend/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the zap preset, level and encoding.
type Options struct {
	GinMode string
	Level   string
	Format  string
}

// New initializes a Zap logger for the API server.
func New(cfg *config.Config) (*zap.Logger, error) {
	return NewWithOptions(Options{GinMode: cfg.GinMode, Level: cfg.LogLevel, Format: cfg.LogFormat})
}

// NewForClient initializes a Zap logger for hubctl.
func NewForClient(cfg *config.ClientConfig) (*zap.Logger, error) {
	return NewWithOptions(Options{GinMode: cfg.GinMode, Level: cfg.LogLevel, Format: cfg.LogFormat})
}

// NewWithOptions builds the logger. Release mode starts from the production
// preset, everything else from the development preset.
func NewWithOptions(opts Options) (*zap.Logger, error) {
	var zapConfig zap.Config
	if opts.GinMode == "release" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.Level = zap.NewAtomicLevelAt(ParseLevel(opts.Level))

	if strings.ToLower(opts.Format) == "json" {
		zapConfig.Encoding = "json"
		zapConfig.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	} else {
		zapConfig.Encoding = "console"
	}

	return zapConfig.Build()
}

// ParseLevel maps a LOG_LEVEL value to a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "dpanic":
		return zapcore.DPanicLevel
	case "panic":
		return zapcore.PanicLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewDefaultLogger is for tests or tools that run before config is loaded.
func NewDefaultLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}
