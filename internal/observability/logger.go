// File: internal/observability/logger.go
package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/xkilldash9x/cursortrail/internal/config"
)

var (
	// globalLogger stores the process logger for the commands.
	globalLogger atomic.Pointer[zap.Logger]
	// globalLevel is shared by every core so the level can change at runtime.
	globalLevel = zap.NewAtomicLevel()
	once        sync.Once
)

// ANSI color codes for the terminal.
const (
	colorBlack   = "\x1b[30m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorWhite   = "\x1b[37m"
	colorReset   = "\x1b[0m"
)

var colorMap = map[string]string{
	"black":   colorBlack,
	"red":     colorRed,
	"green":   colorGreen,
	"yellow":  colorYellow,
	"blue":    colorBlue,
	"magenta": colorMagenta,
	"cyan":    colorCyan,
	"white":   colorWhite,
}

// defaultColors applies when the config names no color for a level.
var defaultColors = config.ColorConfig{
	Debug:  "blue",
	Info:   "green",
	Warn:   "yellow",
	Error:  "red",
	DPanic: "magenta",
	Panic:  "magenta",
	Fatal:  "magenta",
}

// Initialize sets up the global logger, writing human output to consoleWriter.
// Only the first call has an effect.
func Initialize(cfg config.LoggerConfig, consoleWriter zapcore.WriteSyncer) {
	once.Do(func() {
		levelErr := globalLevel.UnmarshalText([]byte(cfg.Level))
		if levelErr != nil {
			globalLevel.SetLevel(zap.InfoLevel)
		}

		cores := []zapcore.Core{zapcore.NewCore(getEncoder(cfg), consoleWriter, globalLevel)}

		var fileErr error
		if cfg.LogFile != "" {
			var path string
			path, fileErr = homedir.Expand(cfg.LogFile)
			if fileErr == nil {
				// The file always gets JSON so recording sessions can be analysed later.
				fileWriter := zapcore.AddSync(&lumberjack.Logger{
					Filename:   path,
					MaxSize:    cfg.MaxSize,
					MaxBackups: cfg.MaxBackups,
					MaxAge:     cfg.MaxAge,
					Compress:   cfg.Compress,
				})
				cores = append(cores, zapcore.NewCore(getEncoder(config.LoggerConfig{Format: "json"}), fileWriter, globalLevel))
			}
		}

		options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
		if cfg.AddSource {
			options = append(options, zap.AddCaller())
		}

		logger := zap.New(zapcore.NewTee(cores...), options...).Named(cfg.ServiceName)
		globalLogger.Store(logger)
		zap.ReplaceGlobals(logger)
		zap.RedirectStdLog(logger)

		if levelErr != nil {
			logger.Warn("Unknown log level, using info", zap.String("level", cfg.Level))
		}
		if fileErr != nil {
			logger.Warn("Log file disabled", zap.String("log_file", cfg.LogFile), zap.Error(fileErr))
		}
	})
}

// InitializeLogger initializes the global logger on stderr. Stdout is left to
// command output such as the replay results.
func InitializeLogger(cfg config.LoggerConfig) {
	Initialize(cfg, zapcore.Lock(os.Stderr))
}

// SetLevel changes the level of the global logger.
func SetLevel(level string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	globalLevel.SetLevel(l)
	return nil
}

// ResetForTest resets the sync.Once and clears the global logger.
// This function should ONLY be used in tests.
func ResetForTest() {
	globalLogger.Store(nil)
	globalLevel.SetLevel(zap.InfoLevel)
	once = sync.Once{}
}

func newColorizedLevelEncoder(colors config.ColorConfig) zapcore.LevelEncoder {
	pick := func(configured, fallback string) string {
		if configured == "" {
			configured = fallback
		}
		return colorMap[configured]
	}
	return func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		var color string
		levelStr := strings.ToUpper(level.String())

		switch level {
		case zapcore.DebugLevel:
			color = pick(colors.Debug, defaultColors.Debug)
		case zapcore.InfoLevel:
			color = pick(colors.Info, defaultColors.Info)
		case zapcore.WarnLevel:
			color = pick(colors.Warn, defaultColors.Warn)
		case zapcore.ErrorLevel:
			color = pick(colors.Error, defaultColors.Error)
		case zapcore.DPanicLevel:
			color = pick(colors.DPanic, defaultColors.DPanic)
		case zapcore.PanicLevel:
			color = pick(colors.Panic, defaultColors.Panic)
		case zapcore.FatalLevel:
			color = pick(colors.Fatal, defaultColors.Fatal)
		}

		if color != "" {
			enc.AppendString(color + levelStr + colorReset)
		} else {
			enc.AppendString(levelStr)
		}
	}
}

// getEncoder returns the colorized single line console encoder, or JSON for
// any other format.
func getEncoder(cfg config.LoggerConfig) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")

	if cfg.Format == "console" {
		encoderConfig.EncodeLevel = newColorizedLevelEncoder(cfg.Colors)
		// A trailing dot sets the component apart, e.g. "cursortrail.segmenter.".
		encoderConfig.EncodeName = func(loggerName string, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(loggerName + ".")
		}
		return zapcore.NewConsoleEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// GetLogger returns the global logger, or a development logger named
// "fallback" before initialization.
func GetLogger() *zap.Logger {
	logger := globalLogger.Load()
	if logger == nil {
		l, err := zap.NewDevelopment()
		if err != nil {
			return zap.NewNop()
		}
		l.Warn("Global logger requested before initialization; using fallback.")
		return l.Named("fallback")
	}
	return logger
}

// Sync flushes buffered log entries. Commands call it before exiting.
func Sync() {
	logger := globalLogger.Load()
	if logger == nil {
		return
	}
	if err := logger.Sync(); err != nil {
		// Syncing a terminal fails on several platforms and is harmless.
		errMsg := err.Error()
		if !strings.Contains(errMsg, "sync /dev/std") &&
			!strings.Contains(errMsg, "invalid argument") &&
			!strings.Contains(errMsg, "inappropriate ioctl") &&
			!strings.Contains(errMsg, "operation not supported") {
			fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
		}
	}
}
