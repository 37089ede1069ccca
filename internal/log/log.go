package log

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool

	// panicDir receives panic reports. Empty means the working directory.
	panicDir atomic.Value
)

// Setup routes the default slog logger to a rotated JSON log file. Panic
// reports are written next to it. Only the first call has any effect.
func Setup(logFile string, debug bool) {
	initOnce.Do(func() {
		rotator := &lumberjack.Logger{
			Filename: logFile,
			MaxSize:  10, // MB
			MaxAge:   30, // days
		}

		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewJSONHandler(rotator, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})))
		panicDir.Store(filepath.Dir(logFile))
		initialized.Store(true)
	})
}

func Initialized() bool {
	return initialized.Load()
}

// MaskAPIKey keeps the ends of a key and stars out the rest. The "Bearer "
// and "sk-" prefixes are dropped first.
func MaskAPIKey(apiKey string) string {
	if apiKey == "" {
		return "***EMPTY***"
	}
	key := strings.TrimPrefix(strings.TrimPrefix(apiKey, "Bearer "), "sk-")

	var keep int
	switch n := len(key); {
	case n <= 4:
		keep = 0
	case n <= 10:
		keep = 2
	default:
		keep = 5
	}
	return key[:keep] + strings.Repeat("*", len(key)-2*keep) + key[len(key)-keep:]
}

// RecoverPanic is deferred at the top of background goroutines. A recovered
// panic is logged, a report with the stack is written, and cleanup runs.
func RecoverPanic(name string, cleanup func()) {
	r := recover()
	if r == nil {
		return
	}
	stack := debug.Stack()
	now := time.Now()

	dir, _ := panicDir.Load().(string)
	filename := filepath.Join(dir, fmt.Sprintf("juggy-panic-%s-%s.log", name, now.Format("20060102-150405")))
	slog.Error("Recovered from panic", "name", name, "panic", r, "file", filename)

	report := fmt.Sprintf("Panic in %s: %v\n\nTime: %s\n\nStack Trace:\n%s\n", name, r, now.Format(time.RFC3339), stack)
	if err := os.WriteFile(filename, []byte(report), 0o644); err != nil {
		slog.Error("Failed to write panic report", "error", err)
	}

	if cleanup != nil {
		cleanup()
	}
}
