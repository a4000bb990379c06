package smoketest_test

import (
	"path/filepath"
	"testing"

	"github.com/e9kdbg/e9kdbg/internal/curated"
	"github.com/e9kdbg/e9kdbg/internal/inputrecord"
	"github.com/e9kdbg/e9kdbg/internal/smoketest"
)

type fakeCore struct {
	frame int
}

func (f *fakeCore) RunOnce() { f.frame++ }

func (f *fakeCore) GetFrame() (pixels []byte, width, height, pitch int) {
	buf := make([]byte, 4*4*4)
	for i := range buf {
		buf[i] = byte(f.frame)
	}
	return buf, 4, 4, 16
}

func (f *fakeCore) SetJoypad(port, id int, pressed bool)                   {}
func (f *fakeCore) ClearJoypad(port int)                                   {}
func (f *fakeCore) SendKey(keycode, char uint32, mods uint16, pressed bool) {}

func TestRecordThenCompareSucceedsOnIdenticalRun(t *testing.T) {
	dir := t.TempDir()

	rc := &fakeCore{}
	h, err := smoketest.New(dir, smoketest.ModeRecord, 5, rc, inputrecord.NewLog())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.Run(); err != nil {
		t.Fatalf("record Run: %v", err)
	}

	cc := &fakeCore{}
	h2, err := smoketest.New(dir, smoketest.ModeCompare, 5, cc, inputrecord.NewLog())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h2.Run(); err != nil {
		t.Fatalf("compare Run: %v", err)
	}
}

type divergingCore struct {
	fakeCore
}

func (f *divergingCore) GetFrame() (pixels []byte, width, height, pitch int) {
	buf := make([]byte, 4*4*4)
	for i := range buf {
		buf[i] = byte(f.frame + 1)
	}
	return buf, 4, 4, 16
}

func TestCompareFailsOnDivergence(t *testing.T) {
	dir := t.TempDir()

	rc := &fakeCore{}
	h, err := smoketest.New(dir, smoketest.ModeRecord, 3, rc, inputrecord.NewLog())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.Run(); err != nil {
		t.Fatalf("record Run: %v", err)
	}

	dc := &divergingCore{}
	h2, err := smoketest.New(dir, smoketest.ModeCompare, 3, dc, inputrecord.NewLog())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = h2.Run()
	if err == nil {
		t.Fatalf("expected SmokeFailure, got nil")
	}
	if !curated.Has(err, curated.SmokeFailure) {
		t.Fatalf("expected SmokeFailure category, got: %v", err)
	}
	failed, frame := h2.Failed()
	if !failed || frame != 0 {
		t.Fatalf("Failed() = %v, %d; want true, 0", failed, frame)
	}
}

func TestInputPathJoinsFolder(t *testing.T) {
	h, err := smoketest.New(t.TempDir(), smoketest.ModeNone, 0, &fakeCore{}, inputrecord.NewLog())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := filepath.Join(h.InputPath()[:len(h.InputPath())-len("/smoketest.inp")], "smoketest.inp")
	if h.InputPath() != want {
		t.Fatalf("InputPath = %q, want %q", h.InputPath(), want)
	}
}
