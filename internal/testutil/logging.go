package testutil

import (
	"bytes"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
)

// TestLogger returns a structured logger suitable for tests.
//
// By default it discards output unless `go test -v` is used.
func TestLogger(t *testing.T) *log.Logger {
	t.Helper()

	var out io.Writer = io.Discard
	if testing.Verbose() {
		out = os.Stderr
	}

	return log.NewWithOptions(out, log.Options{
		Level:  log.DebugLevel,
		Prefix: t.Name(),
	})
}

// LogBuffer collects log output for assertions. It is safe for concurrent use.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything logged so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// CaptureLogger returns a logfmt logger writing into a LogBuffer, in the same
// format kassist uses for its log file.
func CaptureLogger(t *testing.T) (*log.Logger, *LogBuffer) {
	t.Helper()
	buf := &LogBuffer{}
	logger := log.NewWithOptions(buf, log.Options{
		Level:     log.DebugLevel,
		Formatter: log.LogfmtFormatter,
	})
	return logger, buf
}
