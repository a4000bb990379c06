package runloop

import (
	"fmt"

	"github.com/e9kdbg/e9kdbg/internal/bridge"
	"github.com/e9kdbg/e9kdbg/internal/command"
	"github.com/e9kdbg/e9kdbg/internal/curated"
	"github.com/e9kdbg/e9kdbg/internal/inputrecord"
	"github.com/e9kdbg/e9kdbg/internal/statehistory"
	"github.com/e9kdbg/e9kdbg/internal/watchtrain"
)

// Bridge is the subset of *bridge.Bridge the scheduler drives directly. An
// interface so tests can supply a fake core, mirroring command.CoreBridge
// and watchtrain.DebugBridge.
type Bridge interface {
	RunOnce()
	IsRunning() bool
	AVInfo() bridge.AVInfo
	SetVblankCallback(fn func())
	DrainLog() []string

	StateSize() int
	SerializeTo(buf []byte) error
	UnserializeFrom(buf []byte) error

	Pause() error
	Resume() error
	IsPaused() bool
	StepInstr() error
	StepLine() error
	StepNext() error
	AddBreakpoint(addr uint32) error
	RemoveBreakpoint(addr uint32) error
	ReadMemory(addr uint32) (byte, error)
	WriteMemory(addr uint32, value uint32, size int) error
	ReadRegs() (*bridge.Registers, error)
	ReadWatchpoints() ([]bridge.Watchpoint, error)
	ReadProtects() ([]bridge.Protect, error)

	SetJoypad(port, id int, pressed bool)
	ClearJoypad(port int)
	SendKey(keycode, char uint32, mods uint16, pressed bool)
}

type suppressedBreakpoint struct {
	addr   uint32
	active bool
}

// Loop is the single-threaded cooperative scheduler. It implements
// command.CoreBridge, command.BreakpointSink and command.LoopControl, so
// the command engine is wired directly against the scheduler instead of
// the bare bridge — the only way breakpoint suppression and loop-range
// state can live in one place.
type Loop struct {
	core  Bridge
	hist  *statehistory.Ring
	input *inputrecord.Log
	wt    *watchtrain.Controller
	cmd   *command.Engine

	fps float64

	running         bool
	speedMultiplier int

	frameStepMode bool
	pendingStep   int // +1, -1 or 0

	loopEnabled      bool
	loopFrom, loopTo uint64

	frameCounter   uint64 // frames completed, advanced only by onVblank/rewind
	frameTimeAccum float64

	seeking   bool
	modalOpen bool

	wasRunning bool
	suppressed suppressedBreakpoint

	breakpoints map[uint32]bool

	profiler *Profiler
}

// NewLoop wires a scheduler over core, a state-history ring, an input
// record log, a watch/protect/train controller, and the command engine
// whose console and pending `write ... over <n>` writes it drives.
func NewLoop(core Bridge, hist *statehistory.Ring, input *inputrecord.Log, wt *watchtrain.Controller, cmd *command.Engine) *Loop {
	l := &Loop{
		core:        core,
		hist:        hist,
		input:       input,
		wt:          wt,
		cmd:         cmd,
		fps:         60,
		breakpoints: make(map[uint32]bool),
	}
	if av := core.AVInfo(); av.FramesPerSecond > 0 {
		l.fps = av.FramesPerSecond
	}
	core.SetVblankCallback(l.onVblank)
	return l
}

// SetProfiler wires an optional checkpoint profiler, sampled once per
// advanced frame.
func (l *Loop) SetProfiler(p *Profiler) { l.profiler = p }

// onVblank is the state-history engine's only synchronization point: it
// captures the just-run frame, tagged with frame_counter's value *before*
// the increment, then advances the counter.
func (l *Loop) onVblank() {
	size := l.core.StateSize()
	if size > 0 {
		buf := make([]byte, size)
		if err := l.core.SerializeTo(buf); err == nil {
			l.hist.SetCurrentFrameNo(l.frameCounter)
			_ = l.hist.Capture(buf) // CaptureError leaves the ring untouched
		}
	}
	l.frameCounter++
}

// --- scheduler controls -----------------------------------------------

func (l *Loop) SetRunning(on bool)  { l.running = on }
func (l *Loop) IsSchedulerRunning() bool { return l.running }

func (l *Loop) SetSpeedMultiplier(n int) {
	if n < 1 {
		n = 1
	}
	l.speedMultiplier = n
}

func (l *Loop) SpeedMultiplier() int {
	if l.speedMultiplier < 1 {
		return 1
	}
	return l.speedMultiplier
}

func (l *Loop) SetSeeking(on bool)   { l.seeking = on }
func (l *Loop) SetModalOpen(on bool) { l.modalOpen = on }
func (l *Loop) FrameCounter() uint64 { return l.frameCounter }

// FrameStep arms a single frame-step in dir (+1 forward, -1 backward); the
// next Tick consumes it.
func (l *Loop) FrameStep(dir int) {
	l.frameStepMode = true
	l.pendingStep = dir
}

// ClearFrameStep cancels any armed frame-step.
func (l *Loop) ClearFrameStep() {
	l.frameStepMode = false
	l.pendingStep = 0
}

// --- command.LoopControl -------------------------------------------------

func (l *Loop) SetLoopRange(from, to uint64, enabled bool) {
	l.loopFrom, l.loopTo, l.loopEnabled = from, to, enabled
}

func (l *Loop) LoopRange() (from, to uint64, enabled bool) {
	return l.loopFrom, l.loopTo, l.loopEnabled
}

// --- command.BreakpointSink / command.CoreBridge ------------------------

func (l *Loop) AddBreakpoint(addr uint32) error {
	addr &= 0xffffff
	if err := l.core.AddBreakpoint(addr); err != nil {
		return err
	}
	l.breakpoints[addr] = true
	return nil
}

func (l *Loop) RemoveBreakpoint(addr uint32) error {
	addr &= 0xffffff
	delete(l.breakpoints, addr)
	return l.core.RemoveBreakpoint(addr)
}

func (l *Loop) Pause() error  { return l.core.Pause() }
func (l *Loop) Resume() error { return l.core.Resume() }
func (l *Loop) IsPaused() bool { return l.core.IsPaused() }

// suppressAtCurrentPC implements breakpoint suppression: a step issued
// from a PC that already has a breakpoint removes it for the duration of
// the step so the same breakpoint doesn't immediately re-fire.
func (l *Loop) suppressAtCurrentPC() {
	regs, err := l.core.ReadRegs()
	if err != nil || regs == nil {
		return
	}
	pc, ok := regs.Get("PC")
	if !ok {
		return
	}
	pc &= 0xffffff
	if !l.breakpoints[pc] {
		return
	}
	if err := l.core.RemoveBreakpoint(pc); err != nil {
		return
	}
	l.suppressed = suppressedBreakpoint{addr: pc, active: true}
}

// restoreSuppressedBreakpoint reinstalls a suppressed breakpoint the next
// time the core reports paused.
func (l *Loop) restoreSuppressedBreakpoint() {
	if !l.suppressed.active {
		return
	}
	_ = l.core.AddBreakpoint(l.suppressed.addr)
	l.suppressed.active = false
}

func (l *Loop) StepInstr() error {
	l.suppressAtCurrentPC()
	return l.core.StepInstr()
}

func (l *Loop) StepLine() error {
	l.suppressAtCurrentPC()
	return l.core.StepLine()
}

func (l *Loop) StepNext() error {
	l.suppressAtCurrentPC()
	return l.core.StepNext()
}

func (l *Loop) ReadMemory(addr uint32) (byte, error) { return l.core.ReadMemory(addr) }
func (l *Loop) WriteMemory(addr uint32, value uint32, size int) error {
	return l.core.WriteMemory(addr, value, size)
}
func (l *Loop) ReadRegs() (*bridge.Registers, error)       { return l.core.ReadRegs() }
func (l *Loop) ReadWatchpoints() ([]bridge.Watchpoint, error) { return l.core.ReadWatchpoints() }
func (l *Loop) ReadProtects() ([]bridge.Protect, error)       { return l.core.ReadProtects() }

// --- frame advance --------------------------------------------------------

// advanceNextFrame implements frame advancement: loop-range rewind/replay
// when active, otherwise apply recorded input for the upcoming frame and
// run it.
func (l *Loop) advanceNextFrame() {
	if l.loopEnabled {
		if l.frameCounter < l.loopFrom || l.frameCounter >= l.loopTo {
			target := l.loopFrom
			if target > 0 {
				target--
			}
			_ = l.rewindToFrame(target)
			return
		}
		l.replayNextFrame()
		return
	}
	l.runNextFrame()
}

func (l *Loop) runNextFrame() {
	next := l.frameCounter + 1
	l.input.SetCurrentFrameNo(l.frameCounter)
	l.input.ApplyFrame(next, l.core)
	l.core.RunOnce()
	l.cmd.ApplyPendingWrites()
	if l.profiler != nil {
		l.profiler.Sample()
	}
}

// replayNextFrame restores the next history-retained frame directly when
// available (loop-range replay), falling back to running it live once the
// history runs out, extending the loop's recorded range naturally. The
// record tagged frameCounter holds the state produced by running the
// frameCounter'th frame, so restoring it is exactly "run that frame again
// from history".
func (l *Loop) replayNextFrame() {
	if l.hist.HasFrameNo(l.frameCounter) {
		if err := l.rewindToFrame(l.frameCounter); err == nil {
			return
		}
	}
	l.runNextFrame()
}

// rewindToFrame reconstructs the record tagged frameNo from history and
// feeds it back through the bridge's deserialize entry point. A record is
// tagged with the counter value at vblank time, before the post-increment,
// so record frameNo holds the state after frameNo+1 completed frames; the
// counter is set accordingly. This is the formalized replacement for the
// fragile frame_counter -= 2 adjustment: frameCounter always reads as
// "frames completed".
func (l *Loop) rewindToFrame(frameNo uint64) error {
	state, err := l.hist.RestoreFrameNo(frameNo)
	if err != nil {
		return err
	}
	if err := l.core.UnserializeFrom(state); err != nil {
		return err
	}
	l.frameCounter = frameNo + 1
	return nil
}

// RewindToFrame is rewindToFrame exported for the command engine / UI layer
// (e.g. a rewind scrubber bound to the state-history ring).
func (l *Loop) RewindToFrame(frameNo uint64) error { return l.rewindToFrame(frameNo) }

// stepBackOneFrame steps back by one frame: with frameCounter frames
// completed, the state one frame earlier is the record tagged
// frameCounter-2. The very first frame has no predecessor record to return
// to.
func (l *Loop) stepBackOneFrame() error {
	if l.frameCounter < 2 {
		return curated.Errorf(curated.ResolutionError, "runloop", "no earlier frame retained")
	}
	return l.rewindToFrame(l.frameCounter - 2)
}

// --- tick -----------------------------------------------------------------

// Tick runs one iteration of the scheduler loop. dt is the wall-clock
// seconds elapsed since the previous Tick.
func (l *Loop) Tick(dt float64) {
	nowPaused := l.core.IsPaused()
	if nowPaused && l.wasRunning {
		l.ClearFrameStep()
		l.restoreSuppressedBreakpoint()
		l.drainWatchbreak()
	}
	l.wasRunning = l.running

	if l.seeking || l.frameStepMode || !l.running {
		l.frameTimeAccum = 0
	}

	if !l.seeking && !l.modalOpen {
		switch {
		case l.frameStepMode:
			switch l.pendingStep {
			case 1:
				l.advanceNextFrame()
			case -1:
				_ = l.stepBackOneFrame()
			}
			l.pendingStep = 0
		case l.running:
			if mult := l.SpeedMultiplier(); mult > 1 {
				for i := 0; i < mult; i++ {
					l.advanceNextFrame()
				}
			} else {
				frameTime := 1.0 / l.fps
				l.frameTimeAccum += dt
				for l.frameTimeAccum >= frameTime {
					l.advanceNextFrame()
					l.frameTimeAccum -= frameTime
				}
			}
		}
	}

	for _, line := range l.core.DrainLog() {
		l.cmd.AppendConsoleLine(line)
	}

	l.drainWatchbreak()
}

// drainWatchbreak pops a pending watchbreak, resuming immediately if it's
// on the train-ignore list or pausing and reporting it otherwise.
func (l *Loop) drainWatchbreak() {
	if l.wt == nil {
		return
	}
	wb, ignored, ok, err := l.wt.ConsumeWatchbreak()
	if err != nil || !ok {
		return
	}
	if ignored {
		_ = l.core.Resume()
		return
	}
	_ = l.core.Pause()
	l.cmd.AppendConsoleLine(fmt.Sprintf("watchbreak: index=%d addr=0x%06X value=0x%X old=0x%X",
		wb.Index, wb.AccessAddr, wb.Value, wb.OldValue))
}
