package trainer

import (
	"io"
	"sync"
)

const defaultTailLimit = 2048

// tailWriter forwards to an underlying writer and keeps the last max bytes
// written. Safe for concurrent use by stdout and stderr copiers.
type tailWriter struct {
	mu  sync.Mutex
	out io.Writer
	max int
	buf []byte
}

func newTailWriter(out io.Writer, max int) *tailWriter {
	if out == nil {
		out = io.Discard
	}
	if max <= 0 {
		max = defaultTailLimit
	}
	return &tailWriter{out: out, max: max}
}

func (t *tailWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return t.out.Write(p)
}

// Tail returns the retained output.
func (t *tailWriter) Tail() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
