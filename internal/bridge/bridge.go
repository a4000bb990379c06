package bridge

import (
	"os"
	"plugin"
	"sync"

	"github.com/e9kdbg/e9kdbg/internal/curated"
)

// Bridge is the process-wide handle onto a single dynamically loaded
// emulator core: there is one active core per process. It is not safe for
// concurrent use — the run loop is its sole caller.
type Bridge struct {
	symbols coreSymbols
	running bool

	romPath   string
	romBytes  []byte
	systemDir string
	saveDir   string

	avInfo AVInfo
	frame  frameBuffer

	audio *audioRing

	joypad    [4][16]bool // port -> id -> pressed
	recorder  Recorder
	lastSaved []byte

	vblank   func()
	keyboard KeyboardCallback

	options map[string]string

	logLines []string

	mu sync.Mutex // not the singleton lock: the active-core singleton below is guarded by singletonMu
}

// frameBuffer is the most recent framebuffer surfaced by video_refresh.
type frameBuffer struct {
	pixels []byte
	width, height, pitch int
}

var (
	singletonMu sync.Mutex
	singleton   *Bridge // the one Bridge currently receiving core callbacks
)

const defaultAudioBufferMS = 3000

// New creates an unstarted Bridge with a default audio buffer; call Init to
// size it explicitly before Start.
func New() *Bridge {
	return &Bridge{
		options: make(map[string]string),
		audio:   newAudioRing(defaultAudioBufferMS),
	}
}

// Init resizes the audio buffer ahead of a Start call.
func (b *Bridge) Init(bufferMS int) {
	b.audio = newAudioRing(bufferMS)
}

// SetCoreOption overrides a core option value; applied when the core
// enumerates its options during Start.
func (b *Bridge) SetCoreOption(key, value string) {
	b.options[key] = value
}

// Start loads corePath as a Go plugin, resolves its symbol set, installs
// callback thunks, and brings up romPath.
func (b *Bridge) Start(corePath, romPath, systemDir, saveDir string) error {
	if _, err := os.Stat(corePath); err != nil {
		return curated.Errorf(curated.LoadFailure, err)
	}
	if _, err := os.Stat(romPath); err != nil {
		return curated.Errorf(curated.LoadFailure, err)
	}

	p, err := plugin.Open(corePath)
	if err != nil {
		return curated.Errorf(curated.LoadFailure, err)
	}

	var cs coreSymbols
	bindAll(&cs, p)
	if err := requireMandatory(&cs); err != nil {
		return err
	}
	b.symbols = cs
	b.romPath, b.systemDir, b.saveDir = romPath, systemDir, saveDir

	singletonMu.Lock()
	singleton = b
	singletonMu.Unlock()

	if cs.setEnvironment != nil {
		cs.setEnvironment(b.environmentCallback)
	}
	if cs.setVideoRefresh != nil {
		cs.setVideoRefresh(b.VideoRefresh)
	}
	if cs.setAudioSample != nil {
		cs.setAudioSample(b.AudioSample)
	}
	if cs.setAudioSampleBatch != nil {
		cs.setAudioSampleBatch(b.AudioSampleBatch)
	}
	if cs.setInputPoll != nil {
		cs.setInputPoll(b.InputPoll)
	}
	if cs.setInputState != nil {
		cs.setInputState(b.InputState)
	}

	cs.init()

	romBytes, err := os.ReadFile(romPath)
	if err != nil {
		return curated.Errorf(curated.LoadFailure, err)
	}
	b.romBytes = romBytes

	if !cs.loadGame(romBytes) {
		return curated.Errorf(curated.LoadFailure, "core rejected rom: "+romPath)
	}

	b.avInfo = cs.getSystemAVInfo()
	b.frame.width, b.frame.height, b.frame.pitch = b.avInfo.Width, b.avInfo.Height, b.avInfo.Pitch

	if cs.setVblankCallback != nil {
		cs.setVblankCallback(b.vblankTrampoline)
	}

	b.running = true
	return nil
}

// Shutdown releases in reverse order of Start.
func (b *Bridge) Shutdown() {
	if !b.running {
		return
	}
	if b.symbols.unloadGame != nil {
		b.symbols.unloadGame()
	}
	if b.symbols.deinit != nil {
		b.symbols.deinit()
	}
	b.running = false

	singletonMu.Lock()
	if singleton == b {
		singleton = nil
	}
	singletonMu.Unlock()
}

// IsRunning reports whether Start succeeded and Shutdown has not yet run.
func (b *Bridge) IsRunning() bool { return b.running }

// RunOnce runs a single emulated frame, blocking the calling thread for its
// duration. The bridge is strictly single-threaded and cooperative: nothing
// else touches the core concurrently.
func (b *Bridge) RunOnce() {
	b.symbols.run()
}

// Reset resets the core to its power-on state.
func (b *Bridge) Reset() error {
	if b.symbols.reset == nil {
		return curated.Errorf(curated.Unsupported, "reset")
	}
	b.symbols.reset()
	return nil
}

// GetFrame surfaces the most recent video buffer.
func (b *Bridge) GetFrame() (pixels []byte, width, height, pitch int) {
	return b.frame.pixels, b.frame.width, b.frame.height, b.frame.pitch
}

// AVInfo returns the geometry/timing negotiated at Start.
func (b *Bridge) AVInfo() AVInfo { return b.avInfo }

// ROMBytes returns the raw ROM image loaded at Start, for checksum binding
// (internal/romchecksum, internal/config's romset index).
func (b *Bridge) ROMBytes() []byte { return b.romBytes }

func (b *Bridge) vblankTrampoline() {
	if b.vblank != nil {
		b.vblank()
	}
}

// SetVblankCallback registers fn to be invoked once per frame on vblank, the
// state-history engine's only synchronization point.
func (b *Bridge) SetVblankCallback(fn func()) {
	b.vblank = fn
}

// pushLog is handed to the core via EnvGetLogInterface; it is called
// directly on the run loop's thread during RunOnce, never concurrently.
func (b *Bridge) pushLog(level int, msg string) {
	b.logLines = append(b.logLines, msg)
}

// DrainLog returns every debug-text line buffered since the last call and
// empties the buffer.
func (b *Bridge) DrainLog() []string {
	if len(b.logLines) == 0 {
		return nil
	}
	out := b.logLines
	b.logLines = nil
	return out
}
