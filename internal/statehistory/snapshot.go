package statehistory

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/e9kdbg/e9kdbg/internal/curated"
)

// SnapshotMagic is the 8-byte file magic identifying a rewind snapshot file.
var SnapshotMagic = [8]byte{'E', '9', 'K', 'S', 'N', 'A', 'P', 0}

// SnapshotVersion is the on-disk format version this package writes and
// accepts. It's left at 2 rather than bumped for a compressed-keyframe
// variant we haven't built yet.
const SnapshotVersion uint32 = 2

// WriteSnapshot serializes r (typically a Clone()d "save" ring) to w, tagged
// with romChecksum so a later load can confirm it matches the loaded ROM.
func WriteSnapshot(w io.Writer, r *Ring, romChecksum uint64) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(SnapshotMagic[:]); err != nil {
		return err
	}
	if err := writeU32(bw, SnapshotVersion); err != nil {
		return err
	}
	if err := writeU64(bw, r.currentFrameNo); err != nil {
		return err
	}
	if err := writeU64(bw, romChecksum); err != nil {
		return err
	}
	if err := writeU64(bw, uint64(r.count)); err != nil {
		return err
	}
	if err := writeU64(bw, uint64(len(r.prevState))); err != nil {
		return err
	}

	for i := 0; i < r.count; i++ {
		f := r.at(i)
		if err := writeU64(bw, f.ID); err != nil {
			return err
		}
		if err := writeU64(bw, f.FrameNo); err != nil {
			return err
		}
		isKey := uint32(0)
		if f.IsKeyframe {
			isKey = 1
		}
		if err := writeU32(bw, isKey); err != nil {
			return err
		}
		if err := writeU64(bw, uint64(f.StateSize)); err != nil {
			return err
		}
		if err := writeU64(bw, uint64(len(f.Payload))); err != nil {
			return err
		}
		if _, err := bw.Write(f.Payload); err != nil {
			return err
		}
	}

	if len(r.prevState) > 0 {
		if _, err := bw.Write(r.prevState); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteSnapshotFile writes the snapshot to path, creating or truncating it.
func WriteSnapshotFile(path string, r *Ring, romChecksum uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return curated.Errorf(curated.ConfigError, err)
	}
	defer f.Close()
	return WriteSnapshot(f, r, romChecksum)
}

// ReadSnapshot parses a snapshot stream, returning the reconstructed Ring
// and the stored ROM checksum. Callers that care about ROM identity should
// compare the returned checksum against the loaded ROM's own checksum
// before trusting the ring.
func ReadSnapshot(rd io.Reader) (*Ring, uint64, error) {
	br := bufio.NewReader(rd)

	var magic [8]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, 0, curated.Errorf(curated.ConfigError, err)
	}
	if magic != SnapshotMagic {
		return nil, 0, curated.Errorf(curated.ConfigError, "bad snapshot magic")
	}

	version, err := readU32(br)
	if err != nil {
		return nil, 0, curated.Errorf(curated.ConfigError, err)
	}
	if version != SnapshotVersion {
		return nil, 0, curated.Errorf(curated.ConfigError, "unsupported snapshot version")
	}

	currentFrameNo, err := readU64(br)
	if err != nil {
		return nil, 0, curated.Errorf(curated.ConfigError, err)
	}
	romChecksum, err := readU64(br)
	if err != nil {
		return nil, 0, curated.Errorf(curated.ConfigError, err)
	}
	count, err := readU64(br)
	if err != nil {
		return nil, 0, curated.Errorf(curated.ConfigError, err)
	}
	prevSize, err := readU64(br)
	if err != nil {
		return nil, 0, curated.Errorf(curated.ConfigError, err)
	}

	r := &Ring{currentFrameNo: currentFrameNo}
	r.frames = make([]FrameRecord, count)

	var lastID uint64
	for i := uint64(0); i < count; i++ {
		id, err := readU64(br)
		if err != nil {
			return nil, 0, curated.Errorf(curated.ConfigError, err)
		}
		frameNo, err := readU64(br)
		if err != nil {
			return nil, 0, curated.Errorf(curated.ConfigError, err)
		}
		isKey, err := readU32(br)
		if err != nil {
			return nil, 0, curated.Errorf(curated.ConfigError, err)
		}
		stateSize, err := readU64(br)
		if err != nil {
			return nil, 0, curated.Errorf(curated.ConfigError, err)
		}
		payloadSize, err := readU64(br)
		if err != nil {
			return nil, 0, curated.Errorf(curated.ConfigError, err)
		}
		payload := make([]byte, payloadSize)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, 0, curated.Errorf(curated.ConfigError, err)
		}

		r.frames[i] = FrameRecord{
			ID:         id,
			FrameNo:    frameNo,
			IsKeyframe: isKey != 0,
			StateSize:  int(stateSize),
			Payload:    payload,
		}
		r.totalBytes += len(payload)
		lastID = id
	}
	r.count = len(r.frames)
	r.nextID = lastID + 1

	if prevSize > 0 {
		prev := make([]byte, prevSize)
		if _, err := io.ReadFull(br, prev); err != nil {
			return nil, 0, curated.Errorf(curated.ConfigError, err)
		}
		r.prevState = prev
	}

	return r, romChecksum, nil
}

// ReadSnapshotFile reads and parses the snapshot file at path.
func ReadSnapshotFile(path string) (*Ring, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, curated.Errorf(curated.ConfigError, err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeU64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
