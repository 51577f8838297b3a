package masking

import (
	"bytes"
	"io"
	"sync"
)

// Writer masks secrets in everything written through it. Output is
// buffered per line so a secret split across two Write calls is still
// masked; call Flush to emit a trailing partial line.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	masker *Masker
	buf    bytes.Buffer
}

// NewWriter wraps w. With an empty masker, writes pass straight through.
func NewWriter(w io.Writer, masker *Masker) *Writer {
	return &Writer{w: w, masker: masker}
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.masker.Empty() {
		return w.w.Write(p)
	}

	w.buf.Write(p)
	data := w.buf.Bytes()
	last := bytes.LastIndexByte(data, '\n')
	if last < 0 {
		return len(p), nil
	}

	if _, err := w.w.Write(w.masker.MaskBytes(data[:last+1])); err != nil {
		return len(p), err
	}
	rest := append([]byte(nil), data[last+1:]...)
	w.buf.Reset()
	w.buf.Write(rest)
	return len(p), nil
}

// Flush writes any buffered partial line.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() == 0 {
		return nil
	}
	_, err := w.w.Write(w.masker.MaskBytes(w.buf.Bytes()))
	w.buf.Reset()
	return err
}
