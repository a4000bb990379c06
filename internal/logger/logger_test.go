package logger_test

import (
	"strings"
	"testing"

	"github.com/e9kdbg/e9kdbg/internal/logger"
)

func TestLogger(t *testing.T) {
	log := logger.NewLogger(100)
	var w strings.Builder

	log.Write(&w)
	if w.String() != "" {
		t.Fatalf("expected empty log, got %q", w.String())
	}

	log.Log("test", "this is a test")
	w.Reset()
	log.Write(&w)
	if w.String() != "test: this is a test\n" {
		t.Fatalf("unexpected log contents: %q", w.String())
	}

	log.Log("test2", "this is another test")
	w.Reset()
	log.Write(&w)
	want := "test: this is a test\ntest2: this is another test\n"
	if w.String() != want {
		t.Fatalf("got %q, want %q", w.String(), want)
	}

	w.Reset()
	log.Tail(&w, 1)
	if w.String() != "test2: this is another test\n" {
		t.Fatalf("tail(1) got %q", w.String())
	}

	w.Reset()
	log.Tail(&w, 0)
	if w.String() != "" {
		t.Fatalf("tail(0) expected empty, got %q", w.String())
	}

	w.Reset()
	log.Tail(&w, 100)
	if w.String() != want {
		t.Fatalf("tail(100) got %q, want %q", w.String(), want)
	}
}

func TestLoggerEviction(t *testing.T) {
	log := logger.NewLogger(2)
	log.Log("a", "1")
	log.Log("b", "2")
	log.Log("c", "3")

	var w strings.Builder
	log.Write(&w)
	want := "b: 2\nc: 3\n"
	if w.String() != want {
		t.Fatalf("got %q, want %q", w.String(), want)
	}
}
