package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rl1809/inventory-api/internal/config"
)

// New builds a JSON production logger, or a console development logger when
// development is set. Level and encoding from cfg override either preset.
func New(cfg config.LoggerConfig, development bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if development {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	if cfg.Encoding != "" {
		zcfg.Encoding = cfg.Encoding
	}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.DisableCaller = cfg.DisableCaller
	zcfg.DisableStacktrace = cfg.DisableStacktrace

	return zcfg.Build()
}
