package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	logFilePrefix      = "pharmatrack-"
	defaultMaxFileSize = 100 * 1024 * 1024
	cleanupInterval    = 24 * time.Hour
)

var numberedFilePattern = regexp.MustCompile(`^` + logFilePrefix + `\d{4}-W\d{2}_(\d+)\.log$`)

// RotatingLogger is an io.Writer over weekly log files. A week's file is split
// into numbered parts once it reaches the size limit, and files older than the
// retention period are removed by a daily background cleanup.
type RotatingLogger struct {
	logDir      string
	currentFile *os.File
	currentWeek string
	retention   time.Duration
	maxFileSize int64
	currentSize atomic.Int64
	mu          sync.Mutex

	stopOnce    sync.Once
	stop        chan struct{}
	cleanupDone chan struct{}
	started     atomic.Bool
}

// NewRotatingLogger creates a rotating logger with the default 100MB size limit
func NewRotatingLogger(logDir string, retentionWeeks int) *RotatingLogger {
	return NewRotatingLoggerWithSizeLimit(logDir, retentionWeeks, defaultMaxFileSize)
}

// NewRotatingLoggerWithSizeLimit creates a rotating logger. A maxFileSize of 0
// disables size based rotation.
func NewRotatingLoggerWithSizeLimit(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		stop:        make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// getWeekKey returns the week key in YYYY-Www format (ISO week)
func getWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Open creates the log directory, opens the current week's file and starts
// the background cleanup.
func (rl *RotatingLogger) Open() error {
	if err := os.MkdirAll(rl.logDir, 0750); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", rl.logDir, err)
	}

	rl.mu.Lock()
	err := rl.doRotate(getWeekKey(time.Now()))
	rl.mu.Unlock()
	if err != nil {
		return err
	}

	if rl.started.CompareAndSwap(false, true) {
		go rl.cleanupLoop()
	}
	return nil
}

func (rl *RotatingLogger) cleanupLoop() {
	defer close(rl.cleanupDone)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			if err := rl.cleanupOldLogs(); err != nil {
				fmt.Fprintf(os.Stderr, "failed to clean up old logs: %v\n", err)
			}
		}
	}
}

// doRotate switches to the file for targetWeek (caller must hold the lock)
func (rl *RotatingLogger) doRotate(targetWeek string) error {
	if rl.currentFile != nil {
		if err := rl.currentFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file during rotation: %v\n", err)
		}
		rl.currentFile = nil
	}

	isSizeRotation := rl.maxFileSize > 0 && rl.currentSize.Load() >= rl.maxFileSize
	fileName, fresh := rl.pickLogFile(targetWeek, isSizeRotation)

	logPath := filepath.Join(rl.logDir, fileName)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	rl.currentFile = file
	rl.currentWeek = targetWeek

	if fresh {
		rl.currentSize.Store(0)
	} else if info, err := os.Stat(logPath); err == nil {
		rl.currentSize.Store(info.Size())
	} else {
		rl.currentSize.Store(0)
	}

	return nil
}

// pickLogFile returns the file to write for targetWeek and whether it is a new
// numbered part. A size rotation always starts a new part.
func (rl *RotatingLogger) pickLogFile(targetWeek string, isSizeRotation bool) (string, bool) {
	baseFileName := logFilePrefix + targetWeek + ".log"

	highest, lastPath, lastSize := rl.lastNumberedPart(targetWeek)

	if !isSizeRotation {
		info, err := os.Stat(filepath.Join(rl.logDir, baseFileName))
		if err != nil || rl.maxFileSize == 0 || info.Size() < rl.maxFileSize {
			return baseFileName, false
		}
		if lastPath != "" && lastSize < rl.maxFileSize {
			return filepath.Base(lastPath), false
		}
	}

	return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, targetWeek, highest+1), true
}

// lastNumberedPart returns the highest part number of a week with its path and size
func (rl *RotatingLogger) lastNumberedPart(targetWeek string) (int, string, int64) {
	matches, _ := filepath.Glob(filepath.Join(rl.logDir, logFilePrefix+targetWeek+"_*.log"))

	highest := 0
	var lastPath string
	var lastSize int64

	for _, match := range matches {
		m := numberedFilePattern.FindStringSubmatch(filepath.Base(match))
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		if num <= highest {
			continue
		}

		highest = num
		lastPath = match
		lastSize = 0
		if info, err := os.Stat(match); err == nil {
			lastSize = info.Size()
		}
	}

	return highest, lastPath, lastSize
}

// Write writes p to the current log file, rotating first when the week
// changed or the write would exceed the size limit.
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := getWeekKey(time.Now())
	if rl.currentFile == nil || rl.currentWeek != week {
		if err := rl.doRotate(week); err != nil {
			return 0, err
		}
	}

	// An empty file takes any write, so an oversized record cannot loop rotations
	if rl.maxFileSize > 0 {
		size := rl.currentSize.Load()
		if size > 0 && size+int64(len(p)) > rl.maxFileSize {
			rl.currentSize.Store(rl.maxFileSize)
			if err := rl.doRotate(week); err != nil {
				return 0, err
			}
		}
	}

	n, err := rl.currentFile.Write(p)
	rl.currentSize.Add(int64(n))
	return n, err
}

// cleanupOldLogs removes log files last modified before the retention period
func (rl *RotatingLogger) cleanupOldLogs() error {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rl.retention)
	deleted := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(rl.logDir, name)); err == nil {
				deleted++
			}
		}
	}

	if deleted > 0 {
		// Through stderr: logging here would write back into this logger
		fmt.Fprintf(os.Stderr, "Cleaned up %d old log files\n", deleted)
	}

	return nil
}

// Close stops the background cleanup and closes the current file
func (rl *RotatingLogger) Close() error {
	rl.stopOnce.Do(func() { close(rl.stop) })

	if rl.started.Load() {
		select {
		case <-rl.cleanupDone:
		case <-time.After(5 * time.Second):
			fmt.Fprintln(os.Stderr, "Warning: log cleanup goroutine did not shut down gracefully")
		}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.currentFile == nil {
		return nil
	}
	err := rl.currentFile.Close()
	rl.currentFile = nil
	return err
}

// multiHandler implements slog.Handler to write to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes the record to every enabled handler and returns the first error
func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
