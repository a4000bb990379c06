package statehistory

import (
	"encoding/binary"
	"fmt"

	"github.com/e9kdbg/e9kdbg/internal/curated"
)

// BlockSize is the fixed block grid used by the delta payload format.
const BlockSize = 64

const deltaHeaderSize = 16 // block_size + block_count + tail_len + changed_count, all u32

// EncodeDelta builds the delta payload for cur against prev (both of the
// same length, the current logical state size). Blocks are compared whole:
// any 64-byte block that differs anywhere is included in full.
func EncodeDelta(prev, cur []byte) []byte {
	size := len(cur)
	blockCount := size / BlockSize
	tailLen := size % BlockSize

	changed := make([]int, 0, blockCount)
	for b := 0; b < blockCount; b++ {
		off := b * BlockSize
		if !bytesEqual(prev[off:off+BlockSize], cur[off:off+BlockSize]) {
			changed = append(changed, b)
		}
	}

	payload := make([]byte, deltaHeaderSize+len(changed)*(4+BlockSize)+tailLen)
	binary.LittleEndian.PutUint32(payload[0:4], BlockSize)
	binary.LittleEndian.PutUint32(payload[4:8], uint32(blockCount))
	binary.LittleEndian.PutUint32(payload[8:12], uint32(tailLen))
	binary.LittleEndian.PutUint32(payload[12:16], uint32(len(changed)))

	pos := deltaHeaderSize
	for _, b := range changed {
		binary.LittleEndian.PutUint32(payload[pos:pos+4], uint32(b))
		pos += 4
		off := b * BlockSize
		copy(payload[pos:pos+BlockSize], cur[off:off+BlockSize])
		pos += BlockSize
	}

	if tailLen > 0 {
		off := blockCount * BlockSize
		copy(payload[pos:pos+tailLen], cur[off:off+tailLen])
	}

	return payload
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ApplyDelta reconstructs a state of length stateSize by applying payload
// (as produced by EncodeDelta) on top of base.
func ApplyDelta(base []byte, stateSize int, payload []byte) ([]byte, error) {
	if len(base) != stateSize {
		return nil, curated.Errorf(curated.CaptureError, "delta base size mismatch")
	}
	if len(payload) < deltaHeaderSize {
		return nil, curated.Errorf(curated.CaptureError, "delta payload truncated")
	}

	blockSize := binary.LittleEndian.Uint32(payload[0:4])
	blockCount := binary.LittleEndian.Uint32(payload[4:8])
	tailLen := binary.LittleEndian.Uint32(payload[8:12])
	changedCount := binary.LittleEndian.Uint32(payload[12:16])

	if blockSize != BlockSize {
		return nil, curated.Errorf(curated.CaptureError, fmt.Sprintf("unsupported delta block size %d", blockSize))
	}
	if int(blockCount)*BlockSize+int(tailLen) != stateSize {
		return nil, curated.Errorf(curated.CaptureError, fmt.Sprintf("delta geometry mismatch for state size %d", stateSize))
	}

	out := make([]byte, stateSize)
	copy(out, base)

	pos := deltaHeaderSize
	for i := uint32(0); i < changedCount; i++ {
		if pos+4+BlockSize > len(payload) {
			return nil, curated.Errorf(curated.CaptureError, "delta payload truncated in body")
		}
		blockIdx := binary.LittleEndian.Uint32(payload[pos : pos+4])
		pos += 4
		if blockIdx >= blockCount {
			return nil, curated.Errorf(curated.CaptureError, "delta block index out of range")
		}
		off := int(blockIdx) * BlockSize
		copy(out[off:off+BlockSize], payload[pos:pos+BlockSize])
		pos += BlockSize
	}

	if tailLen > 0 {
		if pos+int(tailLen) > len(payload) {
			return nil, curated.Errorf(curated.CaptureError, "delta payload truncated in tail")
		}
		off := int(blockCount) * BlockSize
		copy(out[off:off+int(tailLen)], payload[pos:pos+int(tailLen)])
	}

	return out, nil
}
