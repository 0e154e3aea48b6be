package common

import (
	"io"
	"log/slog"
	"os"
)

// LogLevel represents logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return "info"
	}
}

// ToSlogLevel converts LogLevel to slog.Level
func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// LogOutput is where loggers created by this package write. Subprocess output
// owns stdout, so diagnostics go to stderr.
var LogOutput io.Writer = os.Stderr

// Logger provides a centralized logging interface for contract-deployer
type Logger struct {
	*slog.Logger
	level LogLevel
}

// NewLogger creates a new structured logger with the specified level
func NewLogger(level LogLevel) *Logger {
	opts := &slog.HandlerOptions{
		Level:       level.ToSlogLevel(),
		ReplaceAttr: maskAttr,
	}

	handler := slog.NewTextHandler(LogOutput, opts)
	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
		level:  level,
	}
}

// NewJSONLogger creates a structured logger with JSON output
func NewJSONLogger(level LogLevel) *Logger {
	opts := &slog.HandlerOptions{
		Level:       level.ToSlogLevel(),
		ReplaceAttr: maskAttr,
	}

	handler := slog.NewJSONHandler(LogOutput, opts)
	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
		level:  level,
	}
}

// NewColorLogger creates a logger backed by ColorHandler
func NewColorLogger(level LogLevel) *Logger {
	handler := NewColorHandler(LogOutput, &slog.HandlerOptions{Level: level.ToSlogLevel()})
	handler.SetMasker(globalMasker)
	return &Logger{
		Logger: slog.New(handler),
		level:  level,
	}
}

// maskAttr runs string attribute values through the global masker.
func maskAttr(_ []string, a slog.Attr) slog.Attr {
	if !globalMasker.IsEnabled() {
		return a
	}
	switch a.Value.Kind() {
	case slog.KindString:
		masked := globalMasker.MaskValue(a.Key, a.Value.String())
		if s, ok := masked.(string); ok {
			return slog.String(a.Key, s)
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, globalMasker.MaskString(err.Error()))
		}
	}
	return a
}

// Level returns the current log level
func (l *Logger) Level() LogLevel {
	return l.level
}

// WithComponent returns a logger with component context
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
		level:  l.level,
	}
}

// WithNetwork returns a logger with target network context
func (l *Logger) WithNetwork(network string, chainID int64) *Logger {
	return &Logger{
		Logger: l.Logger.With("network", network, "chain_id", chainID),
		level:  l.level,
	}
}

// WithStage returns a logger with pipeline stage context
func (l *Logger) WithStage(stage string) *Logger {
	return &Logger{
		Logger: l.Logger.With("stage", stage),
		level:  l.level,
	}
}

// WithRun returns a logger with pipeline run context
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", runID),
		level:  l.level,
	}
}

// WithStore returns a logger with store context
func (l *Logger) WithStore(storeType string) *Logger {
	return &Logger{
		Logger: l.Logger.With("store", storeType),
		level:  l.level,
	}
}

// Global default logger instance
var defaultLogger = NewLogger(LogLevelInfo)

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *Logger) {
	defaultLogger = logger
}

// GetLogger returns the default logger
func GetLogger() *Logger {
	return defaultLogger
}

// LogError logs an error with context
func LogError(msg string, err error, attrs ...any) {
	args := append([]any{"error", err}, attrs...)
	defaultLogger.Error(msg, args...)
}

// LogInfo logs informational message
func LogInfo(msg string, attrs ...any) {
	defaultLogger.Info(msg, attrs...)
}

// LogDebug logs debug message
func LogDebug(msg string, attrs ...any) {
	defaultLogger.Debug(msg, attrs...)
}

// LogWarn logs warning message
func LogWarn(msg string, attrs ...any) {
	defaultLogger.Warn(msg, attrs...)
}
