package inputrecord

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/e9kdbg/e9kdbg/internal/curated"
)

// recordMagic tags a dumped event log file. The wire format is not bit-exact
// across versions — recordVersion exists purely so an older reader refuses
// a newer file instead of misparsing it.
var recordMagic = [8]byte{'E', '9', 'K', 'R', 'E', 'C', 0, 0}

const recordVersion uint32 = 1

// Dump writes every recorded event to w as a versioned stream of fixed-size
// event records.
func (l *Log) Dump(w io.Writer) error {
	l.mu.Lock()
	events := make([]Event, len(l.events))
	copy(events, l.events)
	l.mu.Unlock()

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(recordMagic[:]); err != nil {
		return curated.Errorf(curated.ConfigError, err)
	}
	if err := writeU32(bw, recordVersion); err != nil {
		return curated.Errorf(curated.ConfigError, err)
	}
	if err := writeU64(bw, uint64(len(events))); err != nil {
		return curated.Errorf(curated.ConfigError, err)
	}
	for _, e := range events {
		if err := writeEvent(bw, e); err != nil {
			return curated.Errorf(curated.ConfigError, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return curated.Errorf(curated.ConfigError, err)
	}
	return nil
}

// DumpFile writes the log to path.
func (l *Log) DumpFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return curated.Errorf(curated.ConfigError, err)
	}
	defer f.Close()
	return l.Dump(f)
}

// Load replaces the log's events with those read from r.
func (l *Log) Load(r io.Reader) error {
	br := bufio.NewReader(r)

	var magic [8]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return curated.Errorf(curated.ConfigError, err)
	}
	if magic != recordMagic {
		return curated.Errorf(curated.ConfigError, "bad input-record magic")
	}
	version, err := readU32(br)
	if err != nil {
		return curated.Errorf(curated.ConfigError, err)
	}
	if version != recordVersion {
		return curated.Errorf(curated.ConfigError, "unsupported input-record version")
	}
	count, err := readU64(br)
	if err != nil {
		return curated.Errorf(curated.ConfigError, err)
	}

	events := make([]Event, count)
	for i := range events {
		e, err := readEvent(br)
		if err != nil {
			return curated.Errorf(curated.ConfigError, err)
		}
		events[i] = e
	}

	l.mu.Lock()
	l.events = events
	l.mu.Unlock()
	return nil
}

// LoadFile replaces the log's events with those read from path.
func (l *Log) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return curated.Errorf(curated.ConfigError, err)
	}
	defer f.Close()
	return l.Load(f)
}

func writeEvent(w io.Writer, e Event) error {
	if err := writeU64(w, e.FrameNo); err != nil {
		return err
	}
	if err := writeU32(w, uint32(e.Kind)); err != nil {
		return err
	}
	var b [1]byte
	b[0] = e.Port
	if _, err := w.Write(b[:]); err != nil {
		return err
	}
	b[0] = e.ID
	if _, err := w.Write(b[:]); err != nil {
		return err
	}
	b[0] = 0
	if e.Pressed {
		b[0] = 1
	}
	if _, err := w.Write(b[:]); err != nil {
		return err
	}
	if err := writeU32(w, e.Keycode); err != nil {
		return err
	}
	if err := writeU32(w, e.Char); err != nil {
		return err
	}
	return writeU16(w, e.Mods)
}

func readEvent(r io.Reader) (Event, error) {
	var e Event
	var err error
	if e.FrameNo, err = readU64(r); err != nil {
		return e, err
	}
	kind, err := readU32(r)
	if err != nil {
		return e, err
	}
	e.Kind = Kind(kind)

	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return e, err
	}
	e.Port = b[0]
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return e, err
	}
	e.ID = b[0]
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return e, err
	}
	e.Pressed = b[0] != 0

	if e.Keycode, err = readU32(r); err != nil {
		return e, err
	}
	if e.Char, err = readU32(r); err != nil {
		return e, err
	}
	if e.Mods, err = readU16(r); err != nil {
		return e, err
	}
	return e, nil
}

func writeU16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readU16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
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

func writeU64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
