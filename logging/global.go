// Package logging sets up the application's slog logger: a console handler plus
// a JSON handler writing to weekly rotating files.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/NandaniSingh69/PharmaTrack/config"
)

// Options configures InitLogger
type Options struct {
	Dir            string
	Env            config.Environment
	Level          string // console level override, ignored in the test environment
	Verbose        bool   // raise the test environment console level to info
	RetentionWeeks int
	MaxFileSize    int64
	Console        io.Writer // defaults to stdout
}

type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingLogger
}

var (
	DefaultLoggingService *LoggingService

	fallbackOnce   sync.Once
	fallbackLogger *slog.Logger
)

// parseLogLevel maps a LOG_LEVEL value to a slog level, defaulting to info
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConsoleLogLevel returns the console level for an environment. Tests stay
// quiet unless verbose; elsewhere an explicit level wins over the environment default.
func GetConsoleLogLevel(env config.Environment, level string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if level != "" {
		return parseLogLevel(level)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel returns the file handler level. Files always keep debug output.
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

// InitLogger initializes the global logger instance and makes it the slog default.
// When the log directory cannot be used, logging continues on the console only
// and the error is returned.
func InitLogger(opts Options) error {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	if opts.RetentionWeeks <= 0 {
		opts.RetentionWeeks = 4
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaultMaxFileSize
	}

	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	// Replace any previous service so its file is released
	if err := Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close previous logger: %v\n", err)
	}

	service := &LoggingService{}
	var initErr error

	if opts.Dir == "" {
		service.Logger = slog.New(consoleHandler)
	} else {
		file := NewRotatingLoggerWithSizeLimit(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
		if err := file.Open(); err != nil {
			initErr = fmt.Errorf("file logging disabled: %w", err)
			service.Logger = slog.New(consoleHandler)
		} else {
			fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{
				Level: GetFileLogLevel(),
			})
			service.file = file
			service.Logger = slog.New(&multiHandler{
				handlers: []slog.Handler{consoleHandler, fileHandler},
			})
		}
	}

	DefaultLoggingService = service
	slog.SetDefault(service.Logger)
	return initErr
}

// Close releases the log file of the global logger, if any
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.file == nil {
		return nil
	}
	err := DefaultLoggingService.file.Close()
	DefaultLoggingService.file = nil
	return err
}

// Logger returns the global logger, or a stderr logger when InitLogger has not run
func Logger() *slog.Logger {
	if DefaultLoggingService != nil && DefaultLoggingService.Logger != nil {
		return DefaultLoggingService.Logger
	}

	fallbackOnce.Do(func() {
		fallbackLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	})
	return fallbackLogger
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}
