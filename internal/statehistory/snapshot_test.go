package statehistory_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/e9kdbg/e9kdbg/internal/statehistory"
)

func TestSnapshotRoundTrip(t *testing.T) {
	r := captureFrames(t, 1<<20, 50)
	path := filepath.Join(t.TempDir(), "game.e9k-save")

	const checksum = 0xfeedface
	if err := statehistory.WriteSnapshotFile(path, r.Clone(), checksum); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	loaded, stored, err := statehistory.ReadSnapshotFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if stored != checksum {
		t.Fatalf("stored checksum = %#x, want %#x", stored, checksum)
	}

	want := r.Records()
	got := loaded.Records()
	if len(want) != len(got) {
		t.Fatalf("record count mismatch: want %d got %d", len(want), len(got))
	}
	for i := range want {
		if want[i].ID != got[i].ID || want[i].FrameNo != got[i].FrameNo ||
			want[i].IsKeyframe != got[i].IsKeyframe || want[i].StateSize != got[i].StateSize {
			t.Fatalf("record %d header mismatch: want %+v got %+v", i, want[i], got[i])
		}
		if !bytes.Equal(want[i].Payload, got[i].Payload) {
			t.Fatalf("record %d payload mismatch", i)
		}
	}
	if !bytes.Equal(r.PrevState(), loaded.PrevState()) {
		t.Fatalf("prev-state buffer did not survive the round trip")
	}
	if loaded.CurrentFrameNo() != r.CurrentFrameNo() {
		t.Fatalf("current frame no = %d, want %d", loaded.CurrentFrameNo(), r.CurrentFrameNo())
	}
}

func TestSnapshotRejectsBadMagic(t *testing.T) {
	if _, _, err := statehistory.ReadSnapshot(bytes.NewReader([]byte("not a snapshot file"))); err == nil {
		t.Fatal("expected an error reading garbage")
	}
}

func TestSnapshotRejectsWrongVersion(t *testing.T) {
	r := captureFrames(t, 1<<20, 3)
	var buf bytes.Buffer
	if err := statehistory.WriteSnapshot(&buf, r, 0); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	b := buf.Bytes()
	b[8] ^= 0xff // corrupt the version word that follows the 8-byte magic
	if _, _, err := statehistory.ReadSnapshot(bytes.NewReader(b)); err == nil {
		t.Fatal("expected an error for a mismatched snapshot version")
	}
}
