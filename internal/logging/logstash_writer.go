package logging

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LogstashWriter mirrors the API's JSON log lines to a Logstash TCP input.
// Logging must never stall a request, so the writer holds at most one
// connection, bounds every network call with a deadline, and discards entries
// while the endpoint is unreachable instead of queueing them.
type LogstashWriter struct {
	addr string
	opts WriterOptions

	dropped atomic.Uint64

	mu        sync.Mutex
	conn      net.Conn
	downUntil time.Time
	closed    bool
}

// WriterOptions bounds the writer's network calls. Zero values fall back to
// the defaults.
type WriterOptions struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	// ReconnectBackoff is how long the writer stays down after a failed dial
	// or write before trying the endpoint again.
	ReconnectBackoff time.Duration
}

func NewLogstashWriter(addr string, opts WriterOptions) (*LogstashWriter, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("logstash: empty address")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 3 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 2 * time.Second
	}
	if opts.ReconnectBackoff <= 0 {
		opts.ReconnectBackoff = 10 * time.Second
	}
	return &LogstashWriter{addr: addr, opts: opts}, nil
}

// Write implements io.Writer for log.SetOutput. It always reports the full
// length so the log package never sees a partial write; entries that cannot
// reach Logstash are counted and dropped. Safe for concurrent use.
func (w *LogstashWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	// Logstash's tcp input splits events on newlines.
	entry := make([]byte, len(p), len(p)+1)
	copy(entry, p)
	if entry[len(entry)-1] != '\n' {
		entry = append(entry, '\n')
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, io.ErrClosedPipe
	}
	if !w.forwardLocked(entry) {
		w.dropped.Add(1)
	}
	return len(p), nil
}

// Dropped reports how many entries were discarded while the endpoint was
// unreachable.
func (w *LogstashWriter) Dropped() uint64 {
	return w.dropped.Load()
}

// Close tears down the connection; subsequent writes fail.
func (w *LogstashWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.dropConnLocked()
}

func (w *LogstashWriter) forwardLocked(entry []byte) bool {
	if w.conn == nil {
		if time.Now().Before(w.downUntil) {
			return false
		}
		conn, err := net.DialTimeout("tcp", w.addr, w.opts.DialTimeout)
		if err != nil {
			w.downUntil = time.Now().Add(w.opts.ReconnectBackoff)
			return false
		}
		w.conn = conn
		w.downUntil = time.Time{}
	}

	_ = w.conn.SetWriteDeadline(time.Now().Add(w.opts.WriteTimeout))
	if _, err := w.conn.Write(entry); err != nil {
		_ = w.dropConnLocked()
		w.downUntil = time.Now().Add(w.opts.ReconnectBackoff)
		return false
	}
	return true
}

func (w *LogstashWriter) dropConnLocked() error {
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}
