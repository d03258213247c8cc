// Package log provides a thin wrapper around zap so every component in this
// module configures logging the same way.
package log

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config defines logger configuration. It embeds zap.Config directly so
// callers may set any native zap option (level, encoding, output paths)
// through yaml.
type Config struct {
	zap.Config `yaml:",inline"`
}

func (c Config) applyDefaults() Config {
	if reflect.DeepEqual(c.Level, zap.AtomicLevel{}) {
		c.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	if reflect.DeepEqual(c.EncoderConfig, zapcore.EncoderConfig{}) {
		c.EncoderConfig = zap.NewProductionEncoderConfig()
	}
	if len(c.OutputPaths) == 0 {
		c.OutputPaths = []string{"stdout"}
	}
	if len(c.ErrorOutputPaths) == 0 {
		c.ErrorOutputPaths = []string{"stderr"}
	}
	if c.Encoding == "" {
		c.Encoding = "json"
	}
	return c
}

// New builds a *zap.Logger from config, attaching fields to every entry the
// logger emits.
func New(config Config, fields map[string]interface{}) (*zap.Logger, error) {
	config = config.applyDefaults()
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return logger, nil
	}
	zfields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zfields = append(zfields, zap.Any(k, v))
	}
	return logger.With(zfields...), nil
}

var (
	mu     sync.Mutex
	global *zap.SugaredLogger = zap.NewNop().Sugar()
)

// Configure installs logger as the package-level global logger used by the
// free functions below.
func Configure(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = logger.Sugar()
}

func sugar() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return global
}

// With returns the global logger annotated with args (alternating key/value
// pairs, per zap.SugaredLogger convention).
func With(args ...interface{}) *zap.SugaredLogger {
	return sugar().With(args...)
}

func Debug(args ...interface{})                 { sugar().Debug(args...) }
func Info(args ...interface{})                  { sugar().Info(args...) }
func Warn(args ...interface{})                  { sugar().Warn(args...) }
func Error(args ...interface{})                 { sugar().Error(args...) }
func Debugf(template string, args ...interface{}) { sugar().Debugf(template, args...) }
func Infof(template string, args ...interface{})  { sugar().Infof(template, args...) }
func Warnf(template string, args ...interface{})  { sugar().Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { sugar().Errorf(template, args...) }
