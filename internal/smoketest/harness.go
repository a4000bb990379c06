package smoketest

import (
	"bufio"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/e9kdbg/e9kdbg/internal/curated"
	"github.com/e9kdbg/e9kdbg/internal/inputrecord"
)

// Mode selects what a Harness does with each frame's digest (mirrors
// smoke_test_mode_t's NONE/RECORD/COMPARE).
type Mode int

const (
	ModeNone Mode = iota
	ModeRecord
	ModeCompare
)

const (
	inputFileName  = "smoketest.inp"
	digestFileName = "frames.digest"
)

// Core is the subset of the host bridge a Harness drives directly. It
// embeds inputrecord.Injector so a recorded input script can be replayed
// into the core during ModeCompare.
type Core interface {
	RunOnce()
	GetFrame() (pixels []byte, width, height, pitch int)
	inputrecord.Injector
}

// Harness runs a fixed frame budget, recording or checking a per-frame
// framebuffer digest under folder.
type Harness struct {
	folder string
	mode   Mode
	frames uint64

	core  Core
	input *inputrecord.Log

	failFrame uint64
	failed    bool
}

// New returns a Harness over folder (created if missing), running frames
// frames in mode.
func New(folder string, mode Mode, frames uint64, core Core, input *inputrecord.Log) (*Harness, error) {
	if folder == "" {
		return nil, curated.Errorf(curated.ConfigError, "smoke-test folder must not be empty")
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, curated.Errorf(curated.ConfigError, err)
	}
	return &Harness{folder: folder, mode: mode, frames: frames, core: core, input: input}, nil
}

// InputPath is the recorded input script path alongside the digest log.
func (h *Harness) InputPath() string { return filepath.Join(h.folder, inputFileName) }

func (h *Harness) digestPath() string { return filepath.Join(h.folder, digestFileName) }

func digestOf(pixels []byte, width, height, pitch int) uint64 {
	sum := fnv.New64a()
	row := make([]byte, width*4)
	for y := 0; y < height; y++ {
		start := y * pitch
		end := start + width*4
		if end > len(pixels) {
			break
		}
		copy(row, pixels[start:end])
		sum.Write(row)
	}
	return sum.Sum64()
}

// loadReference reads a previously recorded digest log into a frame->digest
// map, for ModeCompare.
func loadReference(path string) (map[uint64]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, curated.Errorf(curated.ConfigError, err)
	}
	defer f.Close()

	ref := make(map[uint64]uint64)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			continue
		}
		frame, err1 := strconv.ParseUint(fields[0], 10, 64)
		digest, err2 := strconv.ParseUint(fields[1], 16, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		ref[frame] = digest
	}
	if err := sc.Err(); err != nil {
		return nil, curated.Errorf(curated.ConfigError, err)
	}
	return ref, nil
}

// Run drives the core for the harness's frame budget, recording or
// comparing a digest of each frame's output. It returns a non-nil
// SmokeFailure error on the first divergence in compare mode.
func (h *Harness) Run() error {
	if h.mode == ModeCompare {
		if err := h.input.LoadFile(h.InputPath()); err != nil {
			return err
		}
		h.input.StartPlayback()
	} else if h.mode == ModeRecord {
		h.input.SetRecording(true)
	}

	var ref map[uint64]uint64
	var rec *os.File
	switch h.mode {
	case ModeCompare:
		r, err := loadReference(h.digestPath())
		if err != nil {
			return err
		}
		ref = r
	case ModeRecord:
		f, err := os.Create(h.digestPath())
		if err != nil {
			return curated.Errorf(curated.ConfigError, err)
		}
		defer f.Close()
		rec = f
	}

	for frame := uint64(0); frame < h.frames; frame++ {
		h.input.SetCurrentFrameNo(frame)
		h.input.ApplyFrame(frame, h.core)
		h.core.RunOnce()

		pixels, width, height, pitch := h.core.GetFrame()
		if pixels == nil {
			continue
		}
		digest := digestOf(pixels, width, height, pitch)

		switch h.mode {
		case ModeRecord:
			fmt.Fprintf(rec, "%d\t%x\n", frame, digest)
		case ModeCompare:
			want, ok := ref[frame]
			if !ok {
				continue
			}
			if want != digest {
				h.failed = true
				h.failFrame = frame
				return curated.Errorf(curated.SmokeFailure,
					fmt.Sprintf("frame #%d: digest %x, want %x", frame, digest, want))
			}
		}
	}

	if h.mode == ModeRecord {
		h.input.StopPlayback()
		if err := h.input.DumpFile(h.InputPath()); err != nil {
			return err
		}
	}
	return nil
}

// Failed reports whether Run returned a SmokeFailure, and at which frame.
func (h *Harness) Failed() (bool, uint64) { return h.failed, h.failFrame }
