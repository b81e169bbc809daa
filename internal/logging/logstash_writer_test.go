package logging

import (
	"bufio"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestWriteForwardsNewlineTerminatedEntry(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	lines := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		lines <- line
	}()

	w, err := NewLogstashWriter(ln.Addr().String(), WriterOptions{})
	if err != nil {
		t.Fatalf("NewLogstashWriter: %v", err)
	}
	defer w.Close()

	payload := `{"msg":"request served"}`
	n, err := w.Write([]byte(payload))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("Write reported %d bytes, want %d", n, len(payload))
	}

	select {
	case line := <-lines:
		if line != payload+"\n" {
			t.Fatalf("received %q, want %q", line, payload+"\n")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("entry never reached the listener")
	}
	if w.Dropped() != 0 {
		t.Fatalf("nothing should be dropped, got %d", w.Dropped())
	}
}

func TestWriteDropsWhileEndpointDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	w, err := NewLogstashWriter(addr, WriterOptions{
		DialTimeout:      200 * time.Millisecond,
		ReconnectBackoff: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewLogstashWriter: %v", err)
	}
	defer w.Close()

	n, err := w.Write([]byte("entry"))
	if err != nil {
		t.Fatalf("Write must not surface network failures: %v", err)
	}
	if n != len("entry") {
		t.Fatalf("Write reported %d bytes, want %d", n, len("entry"))
	}
	if w.Dropped() != 1 {
		t.Fatalf("expected 1 dropped entry, got %d", w.Dropped())
	}

	// Inside the backoff window the writer must not dial again.
	if _, err := w.Write([]byte("entry")); err != nil {
		t.Fatalf("Write during backoff returned error: %v", err)
	}
	if w.Dropped() != 2 {
		t.Fatalf("expected 2 dropped entries, got %d", w.Dropped())
	}
}

func TestWriteAfterClose(t *testing.T) {
	w, err := NewLogstashWriter("127.0.0.1:5044", WriterOptions{})
	if err != nil {
		t.Fatalf("NewLogstashWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := w.Write([]byte("x")); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected io.ErrClosedPipe, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close must be a no-op, got %v", err)
	}
}

func TestNewLogstashWriterRejectsEmptyAddr(t *testing.T) {
	if _, err := NewLogstashWriter("   ", WriterOptions{}); err == nil {
		t.Fatal("expected error for empty address")
	}
}
