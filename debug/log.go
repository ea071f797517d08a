package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	out     io.Writer
	closer  io.Closer
	mu      sync.Mutex
	enabled bool

	counters = make(map[string]int)
)

// DefaultPath returns ~/.config/noteflow/debug.log
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "noteflow-debug.log"
	}
	return filepath.Join(home, ".config", "noteflow", "debug.log")
}

// Enable starts debug logging to path (DefaultPath when empty). The file is
// truncated on every start.
func Enable(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("debug: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("debug: open log: %w", err)
	}
	EnableWriter(f)

	mu.Lock()
	closer = f
	mu.Unlock()
	return nil
}

// EnableWriter logs to w instead of a file (tests, stderr)
func EnableWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if closer != nil {
		closer.Close()
		closer = nil
	}
	out = w
	enabled = true

	// can't call Log here, we hold the mutex
	write("debug", "=== debug logging started ===")
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if closer != nil {
		closer.Close()
		closer = nil
	}
	out = nil
	enabled = false
	clear(counters)
}

// Enabled reports whether logging is on
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Log writes a message to the debug log
func Log(category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || out == nil {
		return
	}
	write(category, fmt.Sprintf(format, args...))
}

// LogEvery logs only every N calls (use for high-frequency events like
// audio callbacks)
func LogEvery(n int, category, format string, args ...any) {
	if n <= 0 {
		n = 1
	}
	mu.Lock()
	if !enabled {
		mu.Unlock()
		return
	}
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}

// write must be called with mu held
func write(category, msg string) {
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(out, "[%s] %-8s %s\n", ts, category, msg)
	if f, ok := out.(*os.File); ok {
		f.Sync() // flush immediately so we see logs even on crash
	}
}
