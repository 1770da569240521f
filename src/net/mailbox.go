package net

import (
	"io"
	"sync"
)

// mailbox is an unbounded FIFO of lines. put never blocks.
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  [][]byte
	closed bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// put enqueues line and reports whether the mailbox was still open.
func (m *mailbox) put(line []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	m.queue = append(m.queue, line)
	m.cond.Signal()
	return true
}

// get blocks until a line is available. It returns false once the mailbox is
// closed and drained.
func (m *mailbox) get() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.queue) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.queue) == 0 {
		return nil, false
	}

	line := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return line, true
}

func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.cond.Broadcast()
}

// pump copies the mailbox into w, one line per Write, and closes w when the
// mailbox is closed and drained. It stops early if w fails, which is how a
// node that has exited releases its pump.
func (m *mailbox) pump(w *io.PipeWriter) {
	for {
		line, ok := m.get()
		if !ok {
			w.Close()
			return
		}

		buf := make([]byte, len(line)+1)
		copy(buf, line)
		buf[len(line)] = '\n'

		if _, err := w.Write(buf); err != nil {
			return
		}
	}
}
