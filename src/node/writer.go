package node

import (
	"io"
	"sync"
)

// lineWriter writes each message as one newline-terminated Write, so lines
// from concurrent writers never interleave.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{w: w}
}

func (l *lineWriter) WriteLine(line []byte) error {
	buf := make([]byte, len(line)+1)
	copy(buf, line)
	buf[len(line)] = '\n'

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.w.Write(buf)
	return err
}
