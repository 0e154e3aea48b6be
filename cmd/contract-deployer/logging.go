package main

import (
	"fmt"

	"github.com/loykin/contract-deployer/internal/common"
	"github.com/loykin/contract-deployer/internal/util"
	"github.com/loykin/contract-deployer/pkg/config"
)

func parseLogLevel(level string) (common.LogLevel, error) {
	switch util.TrimAndLower(level) {
	case "error":
		return common.LogLevelError, nil
	case "warn", "warning":
		return common.LogLevelWarn, nil
	case "info", "":
		return common.LogLevelInfo, nil
	case "debug":
		return common.LogLevelDebug, nil
	default:
		return common.LogLevelInfo, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", level)
	}
}

// setupLogging configures the global logger from the [logging] table.
// Non-empty level and format override the file.
func setupLogging(cfg config.LoggingConfig, level, format string) error {
	if level != "" {
		cfg.Level = level
	}
	if format != "" {
		cfg.Format = format
	}

	lvl, err := parseLogLevel(cfg.Level)
	if err != nil {
		return err
	}

	f := util.TrimAndLower(cfg.Format)
	useColor := false
	if cfg.Color != nil {
		useColor = *cfg.Color
	} else if f == "color" || f == "colour" {
		useColor = true
	}

	var logger *common.Logger
	switch f {
	case "json":
		logger = common.NewJSONLogger(lvl)
	case "color", "colour":
		logger = common.NewColorLogger(lvl)
	case "text", "":
		if useColor {
			logger = common.NewColorLogger(lvl)
		} else {
			logger = common.NewLogger(lvl)
		}
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json, color)", cfg.Format)
	}

	if h, ok := logger.Handler().(*common.ColorHandler); ok && cfg.Color != nil {
		h.SetColorEnabled(*cfg.Color)
	}

	masking := true
	if cfg.MaskSensitive != nil {
		masking = *cfg.MaskSensitive
	}
	common.EnableMasking(masking)
	common.SetDefaultLogger(logger)

	logger.Debug("logging configured",
		"level", lvl.String(),
		"format", util.TrimWithDefault(f, "text"),
		"color", useColor,
		"mask_sensitive", masking)
	return nil
}
