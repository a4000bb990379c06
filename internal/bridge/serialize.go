package bridge

import "github.com/e9kdbg/e9kdbg/internal/curated"

// StateSize returns the core's serialize_size, or 0 if unsupported. A
// capture must ask for this first and abort if it comes back zero.
func (b *Bridge) StateSize() int {
	if b.symbols.serializeSize == nil {
		return 0
	}
	return b.symbols.serializeSize()
}

// SerializeTo writes the current state into buf, which must be at least
// StateSize() bytes.
func (b *Bridge) SerializeTo(buf []byte) error {
	if b.symbols.serialize == nil {
		return curated.Errorf(curated.Unsupported, "serialize")
	}
	if !b.symbols.serialize(buf) {
		return curated.Errorf(curated.CaptureError, "serialize failed")
	}
	return nil
}

// UnserializeFrom restores state from buf.
func (b *Bridge) UnserializeFrom(buf []byte) error {
	if b.symbols.unserialize == nil {
		return curated.Errorf(curated.Unsupported, "unserialize")
	}
	if !b.symbols.unserialize(buf) {
		return curated.Errorf(curated.CaptureError, "unserialize failed")
	}
	return nil
}

// SaveState serializes the current state and returns it alongside a count of
// bytes that differ from the last SaveState call, as a cheap diagnostic.
func (b *Bridge) SaveState() (state []byte, diffBytes int, err error) {
	size := b.StateSize()
	if size == 0 {
		return nil, 0, curated.Errorf(curated.CaptureError, "zero state size")
	}
	buf := make([]byte, size)
	if err := b.SerializeTo(buf); err != nil {
		return nil, 0, err
	}
	diff := 0
	if b.lastSaved != nil && len(b.lastSaved) == len(buf) {
		for i := range buf {
			if buf[i] != b.lastSaved[i] {
				diff++
			}
		}
	} else {
		diff = len(buf)
	}
	b.lastSaved = buf
	return buf, diff, nil
}

// RestoreState unserializes buf and forgets the SaveState diff baseline.
func (b *Bridge) RestoreState(buf []byte) error {
	if err := b.UnserializeFrom(buf); err != nil {
		return err
	}
	b.lastSaved = nil
	return nil
}

// GetMemoryData returns a view onto one of the core's named memory regions
// (id is core-specific, e.g. system RAM vs save RAM).
func (b *Bridge) GetMemoryData(id int) ([]byte, error) {
	if b.symbols.getMemoryData == nil {
		return nil, curated.Errorf(curated.Unsupported, "get_memory_data")
	}
	return b.symbols.getMemoryData(id), nil
}

// GetMemorySize returns the size of memory region id.
func (b *Bridge) GetMemorySize(id int) (int, error) {
	if b.symbols.getMemorySize == nil {
		return 0, curated.Errorf(curated.Unsupported, "get_memory_size")
	}
	return b.symbols.getMemorySize(id), nil
}
