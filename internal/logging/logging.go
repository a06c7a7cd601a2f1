// Package logging builds the process-wide zap logger from
// configuration, grounded on nodestorage/v2/core/log.go's
// development-vs-production zap.Config selection plus level parsing.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quillhub/scribe/internal/config"
)

// New builds a *zap.Logger from cfg: "console" format selects
// zap.NewDevelopmentConfig (human-readable, colorized level names),
// anything else selects zap.NewProductionConfig (JSON, ISO8601
// timestamps).
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "timestamp"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}
