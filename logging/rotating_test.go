package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

func weekFile(dir, week string) string {
	return filepath.Join(dir, logFilePrefix+week+".log")
}

func countLogFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read log directory: %v", err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), logFilePrefix) && strings.HasSuffix(e.Name(), ".log") {
			n++
		}
	}
	return n
}

func TestGetWeekKey(t *testing.T) {
	tests := []struct {
		date     time.Time
		expected string
	}{
		{time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC), "2025-W41"},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "2026-W01"},
		// ISO week years differ from calendar years around new year
		{time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), "2025-W01"},
	}

	for _, tt := range tests {
		if got := getWeekKey(tt.date); got != tt.expected {
			t.Errorf("getWeekKey(%s) = %s, want %s", tt.date.Format(time.DateOnly), got, tt.expected)
		}
	}
}

func TestRotatingLoggerOpenAndWrite(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "nested", "logs")

	rl := NewRotatingLogger(tempDir, 1)
	if err := rl.Open(); err != nil {
		t.Fatalf("Failed to open: %v", err)
	}

	if _, err := rl.Write([]byte("Test log message\n")); err != nil {
		t.Fatalf("Failed to write to log: %v", err)
	}
	if err := rl.Close(); err != nil {
		t.Fatalf("Failed to close logger: %v", err)
	}

	content, err := os.ReadFile(weekFile(tempDir, getWeekKey(time.Now())))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "Test log message") {
		t.Errorf("Log file does not contain test message: %s", content)
	}

	// Close is idempotent
	if err := rl.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestRotatingLoggerDifferentWeeks(t *testing.T) {
	tempDir := t.TempDir()

	rl := NewRotatingLogger(tempDir, 1)
	defer func() { _ = rl.Close() }()

	for _, week := range []string{"2025-W40", "2025-W41"} {
		rl.mu.Lock()
		err := rl.doRotate(week)
		rl.mu.Unlock()
		if err != nil {
			t.Fatalf("Failed to rotate to %s: %v", week, err)
		}
		if _, err := os.Stat(weekFile(tempDir, week)); err != nil {
			t.Errorf("Expected log file for %s: %v", week, err)
		}
	}

	// A write in the current week moves off the stale week file
	if _, err := rl.Write([]byte("now\n")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if rl.currentWeek != getWeekKey(time.Now()) {
		t.Errorf("Expected rotation to current week, still on %s", rl.currentWeek)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	tempDir := t.TempDir()
	rl := NewRotatingLogger(tempDir, 1)

	oldFile := weekFile(tempDir, "2025-W30")
	newFile := weekFile(tempDir, getWeekKey(time.Now()))
	unrelated := filepath.Join(tempDir, "other.log")

	for _, f := range []string{oldFile, newFile, unrelated} {
		if err := os.WriteFile(f, []byte("content"), 0600); err != nil {
			t.Fatalf("Failed to create %s: %v", f, err)
		}
	}

	threeWeeksAgo := time.Now().AddDate(0, 0, -21)
	for _, f := range []string{oldFile, unrelated} {
		if err := os.Chtimes(f, threeWeeksAgo, threeWeeksAgo); err != nil {
			t.Fatalf("Failed to set modification time: %v", err)
		}
	}

	if err := rl.cleanupOldLogs(); err != nil {
		t.Fatalf("Failed to cleanup old logs: %v", err)
	}

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Errorf("Old log file %s was not deleted", oldFile)
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Errorf("New log file %s was incorrectly deleted", newFile)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Errorf("File without the log prefix %s was incorrectly deleted", unrelated)
	}
}

func TestRotatingLoggerWithSizeLimit(t *testing.T) {
	tempDir := t.TempDir()

	rl := NewRotatingLoggerWithSizeLimit(tempDir, 1, 100)
	defer func() { _ = rl.Close() }()

	if err := rl.Open(); err != nil {
		t.Fatalf("Failed to open: %v", err)
	}

	if _, err := rl.Write([]byte("Small message")); err != nil {
		t.Fatalf("Failed to write small message: %v", err)
	}

	largeMessage := strings.Repeat("This message is long enough to trigger rotation. ", 10)
	if _, err := rl.Write([]byte(largeMessage)); err != nil {
		t.Fatalf("Failed to write large message: %v", err)
	}

	if n := countLogFiles(t, tempDir); n < 2 {
		t.Errorf("Expected at least 2 log files due to size rotation, got %d", n)
	}

	numbered := regexp.MustCompile(`^` + logFilePrefix + `\d{4}-W\d{2}_01\.log$`)
	entries, _ := os.ReadDir(tempDir)
	found := false
	for _, e := range entries {
		if numbered.MatchString(e.Name()) {
			found = true
		}
	}
	if !found {
		t.Error("Expected a _01 numbered file after size rotation")
	}
}

func TestRotatingLoggerExistingFileAtSizeLimit(t *testing.T) {
	tempDir := t.TempDir()
	currentWeek := getWeekKey(time.Now())
	baseFilePath := weekFile(tempDir, currentWeek)

	if err := os.WriteFile(baseFilePath, []byte(strings.Repeat("x", 2048)), 0600); err != nil {
		t.Fatalf("Failed to create initial log file: %v", err)
	}

	rl := NewRotatingLoggerWithSizeLimit(tempDir, 1, 1024)
	defer func() { _ = rl.Close() }()

	rl.mu.Lock()
	err := rl.doRotate(currentWeek)
	rl.mu.Unlock()
	if err != nil {
		t.Fatalf("Failed to rotate: %v", err)
	}

	if rl.currentFile.Name() == baseFilePath {
		t.Errorf("Expected new numbered file, but got: %s", rl.currentFile.Name())
	}
	if !strings.HasSuffix(rl.currentFile.Name(), "_01.log") {
		t.Errorf("Expected filename to end in _01.log, got: %s", rl.currentFile.Name())
	}
	if rl.currentSize.Load() != 0 {
		t.Errorf("Expected currentSize to be 0 for new file, got: %d", rl.currentSize.Load())
	}
}

func TestRotatingLoggerExistingFileBelowSizeLimit(t *testing.T) {
	tempDir := t.TempDir()
	currentWeek := getWeekKey(time.Now())
	baseFilePath := weekFile(tempDir, currentWeek)

	if err := os.WriteFile(baseFilePath, []byte(strings.Repeat("x", 512)), 0600); err != nil {
		t.Fatalf("Failed to create initial log file: %v", err)
	}

	rl := NewRotatingLoggerWithSizeLimit(tempDir, 1, 1024)
	defer func() { _ = rl.Close() }()

	if err := rl.Open(); err != nil {
		t.Fatalf("Failed to open: %v", err)
	}

	if rl.currentFile.Name() != baseFilePath {
		t.Errorf("Expected to reuse existing file, but got: %s", rl.currentFile.Name())
	}
	if rl.currentSize.Load() != 512 {
		t.Errorf("Expected currentSize to be 512, got: %d", rl.currentSize.Load())
	}

	if _, err := rl.Write([]byte("x")); err != nil {
		t.Fatalf("Failed to write to file: %v", err)
	}
	if rl.currentSize.Load() != 513 {
		t.Errorf("Expected currentSize to be 513 after write, got: %d", rl.currentSize.Load())
	}
}

func TestRotatingLoggerContinuesLastNumberedPart(t *testing.T) {
	tempDir := t.TempDir()
	currentWeek := getWeekKey(time.Now())

	files := map[string]int{
		weekFile(tempDir, currentWeek): 2048,
		filepath.Join(tempDir, fmt.Sprintf("%s%s_01.log", logFilePrefix, currentWeek)): 2048,
		filepath.Join(tempDir, fmt.Sprintf("%s%s_02.log", logFilePrefix, currentWeek)): 10,
	}
	for path, size := range files {
		if err := os.WriteFile(path, []byte(strings.Repeat("x", size)), 0600); err != nil {
			t.Fatalf("Failed to create %s: %v", path, err)
		}
	}

	rl := NewRotatingLoggerWithSizeLimit(tempDir, 1, 1024)
	defer func() { _ = rl.Close() }()

	if err := rl.Open(); err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	if !strings.HasSuffix(rl.currentFile.Name(), "_02.log") {
		t.Errorf("Expected to continue the _02 part, got: %s", rl.currentFile.Name())
	}
}

func TestRotatingLoggerPartsBeyondNinetyNine(t *testing.T) {
	tempDir := t.TempDir()
	currentWeek := getWeekKey(time.Now())
	part := func(n int) string {
		return filepath.Join(tempDir, fmt.Sprintf("%s%s_%02d.log", logFilePrefix, currentWeek, n))
	}

	full := []byte(strings.Repeat("x", 1024))
	if err := os.WriteFile(weekFile(tempDir, currentWeek), full, 0600); err != nil {
		t.Fatalf("Failed to create base file: %v", err)
	}
	for n := 1; n <= 100; n++ {
		if err := os.WriteFile(part(n), full, 0600); err != nil {
			t.Fatalf("Failed to create part %d: %v", n, err)
		}
	}

	rl := NewRotatingLoggerWithSizeLimit(tempDir, 1, 1024)
	defer func() { _ = rl.Close() }()

	if err := rl.Open(); err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	if !strings.HasSuffix(rl.currentFile.Name(), "_101.log") {
		t.Fatalf("Expected a new _101 part, got: %s", rl.currentFile.Name())
	}

	record := []byte(strings.Repeat("y", 600) + "\n")
	for range 4 {
		if _, err := rl.Write(record); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	for _, n := range []int{101, 102, 103} {
		info, err := os.Stat(part(n))
		if err != nil {
			t.Fatalf("Expected part %d to exist: %v", n, err)
		}
		if info.Size() > 1024 {
			t.Errorf("Part %d exceeds the size limit: %d bytes", n, info.Size())
		}
	}
}

func TestRotatingLoggerErrorCases(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	rl := NewRotatingLogger(filepath.Join(blocker, "logs"), 1)

	if err := rl.Open(); err == nil {
		t.Error("Expected error when opening under a regular file, got nil")
	}
	if _, err := rl.Write([]byte("test message")); err == nil {
		t.Error("Expected error when writing without a log file, got nil")
	}
	if err := rl.Close(); err != nil {
		t.Errorf("Unexpected error when closing an unopened logger: %v", err)
	}
}

func TestRotatingLoggerConcurrentWrites(t *testing.T) {
	tempDir := t.TempDir()

	rl := NewRotatingLoggerWithSizeLimit(tempDir, 1, 1000)
	defer func() { _ = rl.Close() }()

	if err := rl.Open(); err != nil {
		t.Fatalf("Failed to open: %v", err)
	}

	const numGoroutines = 20
	const numWrites = 50

	message := func(id int) string {
		return fmt.Sprintf("Goroutine %d: %s\n", id, strings.Repeat("x", 100))
	}

	var wg sync.WaitGroup
	var expected int64
	for i := range numGoroutines {
		expected += int64(numWrites * len(message(i)))
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for range numWrites {
				if _, err := rl.Write([]byte(message(id))); err != nil {
					t.Errorf("Concurrent write failed: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("Failed to read log directory: %v", err)
	}

	var total int64
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			t.Fatalf("Failed to stat %s: %v", e.Name(), err)
		}
		if info.Size() > 1000 {
			t.Errorf("File %s exceeds the size limit: %d bytes", e.Name(), info.Size())
		}
		total += info.Size()
	}

	if total != expected {
		t.Errorf("Expected %d bytes written, got %d", expected, total)
	}
}

func TestMultiHandlerMethods(t *testing.T) {
	var first, second strings.Builder

	multi := &multiHandler{
		handlers: []slog.Handler{
			slog.NewTextHandler(&first, &slog.HandlerOptions{Level: slog.LevelWarn}),
			slog.NewJSONHandler(&second, &slog.HandlerOptions{Level: slog.LevelDebug}),
		},
	}

	if !multi.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected Enabled() to be true when any handler accepts the level")
	}

	logger := slog.New(multi).With("component", "scorer").WithGroup("request")
	logger.Info("scored", "candidates", 3)

	if first.Len() != 0 {
		t.Errorf("Warn level handler should skip info records, got: %s", first.String())
	}
	if !strings.Contains(second.String(), `"component":"scorer"`) || !strings.Contains(second.String(), `"request":{"candidates":3}`) {
		t.Errorf("Expected attrs and group in JSON output, got: %s", second.String())
	}

	logger.Warn("degraded")
	if !strings.Contains(first.String(), "degraded") {
		t.Errorf("Expected warn record in text output, got: %s", first.String())
	}
}
