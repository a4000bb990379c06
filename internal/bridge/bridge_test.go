package bridge

import "testing"

func TestEnabledMask(t *testing.T) {
	var m EnabledMask
	m.SetEnabled(3, true)
	m.SetEnabled(10, true)
	if !m.Enabled(3) || !m.Enabled(10) {
		t.Fatalf("expected bits 3 and 10 set")
	}
	if m.Enabled(4) {
		t.Fatalf("bit 4 should be unset")
	}
	m.SetEnabled(3, false)
	if m.Enabled(3) {
		t.Fatalf("bit 3 should have been cleared")
	}
	if !m.Enabled(10) {
		t.Fatalf("clearing bit 3 must not disturb bit 10")
	}
}

func TestEnabledMaskOutOfRange(t *testing.T) {
	var m EnabledMask
	m.SetEnabled(-1, true)
	m.SetEnabled(MaxTableEntries, true)
	if m != 0 {
		t.Fatalf("out-of-range indices must be ignored, got %x", uint64(m))
	}
	if m.Enabled(-1) || m.Enabled(MaxTableEntries) {
		t.Fatalf("out-of-range reads must report false")
	}
}

func TestRegistersCaseInsensitive(t *testing.T) {
	r := newRegisters()
	r.set("D0", 0x1234)
	r.set("pc", 0xdead)

	if v, ok := r.Get("d0"); !ok || v != 0x1234 {
		t.Fatalf("expected case-insensitive lookup of D0, got %x ok=%v", v, ok)
	}
	if v, ok := r.Get("PC"); !ok || v != 0xdead {
		t.Fatalf("expected case-insensitive lookup of pc, got %x ok=%v", v, ok)
	}
	if _, ok := r.Get("A0"); ok {
		t.Fatalf("A0 was never set")
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "D0" || names[1] != "pc" {
		t.Fatalf("unexpected discovery order: %v", names)
	}
}

func TestAudioRingDropsEntireQueueOnOverflow(t *testing.T) {
	ring := newAudioRing(10) // 10ms at 44100Hz stereo 16-bit
	bytesPerSec := 2 * 44100 * 2
	maxSamples := (10 * bytesPerSec / 1000) / 2

	// push exactly up to the limit: should not drop.
	half := make([]int16, maxSamples)
	ring.push(half)
	if len(ring.buf.Data) == 0 {
		t.Fatalf("expected samples queued under the limit")
	}

	// push enough more to exceed the limit: entire queue drops.
	ring.push(half)
	if len(ring.buf.Data) != 0 {
		t.Fatalf("expected queue to be dropped entirely on overflow, got %d samples", len(ring.buf.Data))
	}
}

func TestAudioRingDisabledDropsSamples(t *testing.T) {
	ring := newAudioRing(100)
	ring.enabled = false
	ring.push([]int16{1, 2, 3, 4})
	if len(ring.buf.Data) != 0 {
		t.Fatalf("disabled ring must not queue samples")
	}
}

func TestSetJoypadAndInputState(t *testing.T) {
	b := New()
	b.SetJoypad(0, 4, true)
	if b.InputState(0, 0, 0, 4) != 1 {
		t.Fatalf("expected button 4 on port 0 to read pressed")
	}
	b.ClearJoypad(0)
	if b.InputState(0, 0, 0, 4) != 0 {
		t.Fatalf("expected clear_joypad to release every button")
	}
}

type stubRecorder struct {
	playback, injecting bool
	joypadCalls         int
}

func (s *stubRecorder) RecordJoypad(port, id int, pressed bool)          { s.joypadCalls++ }
func (s *stubRecorder) RecordClearJoypad(port int)                      {}
func (s *stubRecorder) RecordKey(keycode, char uint32, mods uint16, pressed bool) {}
func (s *stubRecorder) IsPlayback() bool                                { return s.playback }
func (s *stubRecorder) IsInjecting() bool                               { return s.injecting }

func TestSetJoypadIgnoredDuringPlaybackUnlessInjecting(t *testing.T) {
	b := New()
	rec := &stubRecorder{playback: true, injecting: false}
	b.SetRecorder(rec)

	b.SetJoypad(0, 0, true)
	if b.InputState(0, 0, 0, 0) != 0 {
		t.Fatalf("expected set_joypad to be ignored during playback when not injecting")
	}
	if rec.joypadCalls != 0 {
		t.Fatalf("expected no recording while ignored")
	}

	rec.injecting = true
	b.SetJoypad(0, 0, true)
	if b.InputState(0, 0, 0, 0) != 1 {
		t.Fatalf("expected set_joypad to apply when injecting")
	}
	if rec.joypadCalls != 1 {
		t.Fatalf("expected exactly one recorded call, got %d", rec.joypadCalls)
	}
}

func TestConvertRGB565(t *testing.T) {
	// pure red in RGB565: R=0x1f, G=0, B=0 -> 0xF800 little endian bytes {0x00, 0xF8}
	src := []byte{0x00, 0xF8}
	dst := make([]byte, 4)
	convertRGB565(src, dst, 1, 1, 2)
	if dst[2] != 0xf8 || dst[1] != 0 || dst[0] != 0 {
		t.Fatalf("expected pure red XRGB8888, got %v", dst)
	}
}

func TestDebugSurfaceUnsupportedWithoutCore(t *testing.T) {
	b := New()
	if err := b.Pause(); err == nil {
		t.Fatalf("expected Unsupported when no core is loaded")
	}
	if _, err := b.ReadWatchpoints(); err == nil {
		t.Fatalf("expected Unsupported reading watchpoints with no core loaded")
	}
}
