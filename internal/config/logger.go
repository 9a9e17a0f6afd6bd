package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a JSON logger at LOG_LEVEL, or a console logger in development
func (c *Config) NewLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Environment == "development" {
		zc = zap.NewDevelopmentConfig()
	}
	if c.LogLevel != "" {
		level, err := zapcore.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	zc.InitialFields = map[string]any{"service": "helpdesk-api"}
	return zc.Build()
}
