package statehistory_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/e9kdbg/e9kdbg/internal/curated"
	"github.com/e9kdbg/e9kdbg/internal/statehistory"
)

// syntheticState builds a 256KiB buffer of 8-byte little-endian words, every
// word equal to frameNo, so a reconstructed frame can be checked against the
// frame number it was tagged with.
func syntheticState(frameNo uint64) []byte {
	const size = 256 * 1024
	buf := make([]byte, size)
	for i := 0; i < size; i += 8 {
		binary.LittleEndian.PutUint64(buf[i:i+8], frameNo)
	}
	return buf
}

func captureFrames(t *testing.T, budget int, n int) *statehistory.Ring {
	t.Helper()
	r := statehistory.NewRing(budget)
	for i := 0; i < n; i++ {
		r.SetCurrentFrameNo(uint64(i))
		if err := r.Capture(syntheticState(uint64(i))); err != nil {
			t.Fatalf("capture %d: %v", i, err)
		}
	}
	return r
}

func TestS1_SeekRoundTrip(t *testing.T) {
	r := captureFrames(t, 128*1024*1024, 1000)

	state, err := r.RestoreFrameNo(500)
	if err != nil {
		t.Fatalf("restore 500: %v", err)
	}
	if !bytes.Equal(state, syntheticState(500)) {
		t.Fatalf("restored state at 500 does not match")
	}
	if r.CurrentFrameNo() != 500 {
		t.Fatalf("current frame no = %d, want 500", r.CurrentFrameNo())
	}

	state, err = r.RestoreFrameNo(0)
	if err != nil {
		t.Fatalf("restore 0: %v", err)
	}
	if !bytes.Equal(state, syntheticState(0)) {
		t.Fatalf("restored state at 0 does not match")
	}
}

func TestS2_Trim(t *testing.T) {
	r := captureFrames(t, 128*1024*1024, 1000)

	if err := r.TrimAfterFrameNo(250); err != nil {
		t.Fatalf("trim after 250: %v", err)
	}
	if r.Count() != 251 {
		t.Fatalf("count after trim = %d, want 251", r.Count())
	}

	_, err := r.RestoreFrameNo(260)
	if err == nil {
		t.Fatalf("expected ResolutionError restoring trimmed frame")
	}
	if !curated.IsAny(err) {
		t.Fatalf("expected a curated error, got %v", err)
	}
}

func TestDeltaDeterminism(t *testing.T) {
	prev := make([]byte, 4096)
	for i := range prev {
		prev[i] = byte(i)
	}
	cur := make([]byte, len(prev))
	copy(cur, prev)
	// change a handful of scattered bytes, including inside the tail.
	cur[10] = 0xff
	cur[4000] = 0xaa
	cur[4095] = 0x01

	delta := statehistory.EncodeDelta(prev, cur)
	got, err := statehistory.ApplyDelta(prev, len(cur), delta)
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if !bytes.Equal(got, cur) {
		t.Fatalf("apply(encode(prev,cur)) != cur")
	}
}

func TestRingInvariant(t *testing.T) {
	r := captureFrames(t, 1024*1024, 2000) // four 256KiB frames' worth: heavy trimming

	if r.Count() == 0 {
		t.Fatalf("expected at least one retained record")
	}
	if r.UsedBytes() > r.Budget() {
		t.Fatalf("used bytes %d exceeds budget %d", r.UsedBytes(), r.Budget())
	}

	records := r.Records()
	if !records[0].IsKeyframe {
		t.Fatalf("first retained record must be a keyframe")
	}

	keySize := records[0].StateSize
	for i := 1; i < len(records); i++ {
		if !records[i].IsKeyframe && records[i].StateSize != keySize {
			t.Fatalf("record %d: delta state size %d != preceding keyframe size %d", i, records[i].StateSize, keySize)
		}
	}
}

func TestBudgetBoundAfterManyCaptures(t *testing.T) {
	r := captureFrames(t, 10*1024, 5000)
	if r.UsedBytes() > r.Budget() && r.Count() != 0 {
		t.Fatalf("budget exceeded: used=%d budget=%d count=%d", r.UsedBytes(), r.Budget(), r.Count())
	}
}

func TestTrimMonotonicity(t *testing.T) {
	r := captureFrames(t, 128*1024*1024, 100)

	want, err := r.RestoreFrameNo(42)
	if err != nil {
		t.Fatalf("restore 42: %v", err)
	}
	// restoring moved CurrentFrameNo; recreate the ring fresh for the trim
	// check so restore's side effects don't interfere.
	r2 := captureFrames(t, 128*1024*1024, 100)
	if err := r2.TrimAfterFrameNo(42); err != nil {
		t.Fatalf("trim after 42: %v", err)
	}
	for _, rec := range r2.Records() {
		if rec.FrameNo > 42 {
			t.Fatalf("record with frame_no %d survived TrimAfterFrameNo(42)", rec.FrameNo)
		}
	}
	if !bytes.Equal(r2.PrevState(), want) {
		t.Fatalf("prev state after trim does not equal reconstruction of frame 42")
	}
}

func TestCaptureEmptyStateIsCaptureError(t *testing.T) {
	r := statehistory.NewRing(1024)
	err := r.Capture(nil)
	if err == nil {
		t.Fatalf("expected error capturing empty state")
	}
	if !curated.Is(err, curated.CaptureError) {
		t.Fatalf("expected CaptureError, got %v", err)
	}
	if r.Count() != 0 {
		t.Fatalf("ring must remain untouched after a failed capture")
	}
}

func TestPausedCaptureIsNoop(t *testing.T) {
	r := statehistory.NewRing(1024 * 1024)
	r.SetPaused(true)
	if err := r.Capture(syntheticState(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Count() != 0 {
		t.Fatalf("expected no capture while paused, count=%d", r.Count())
	}
}
