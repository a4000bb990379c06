package command

import (
	"github.com/e9kdbg/e9kdbg/internal/bridge"
)

// CoreBridge is the subset of the host bridge's debug ABI the command
// engine drives directly. An interface so tests can supply a fake without
// loading a real core, mirroring watchtrain.DebugBridge.
type CoreBridge interface {
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
}

// BreakpointSink installs/removes breakpoints through whatever is tracking
// breakpoint-suppression state (the run loop, once one is wired). When
// unset, `break` installs directly against CoreBridge instead.
type BreakpointSink interface {
	AddBreakpoint(addr uint32) error
	RemoveBreakpoint(addr uint32) error
}

// LoopControl is the run loop's loop-range replay toggle (`loop <from>
// <to>` / `loop` / `loop clear`), kept on the Engine's caller side since the
// scheduler, not the command engine, owns the tick.
type LoopControl interface {
	SetLoopRange(from, to uint64, enabled bool)
	LoopRange() (from, to uint64, enabled bool)
}

// ProfileStat is one address's accumulated checkpoint statistics: how many
// times a profiling checkpoint at that address fired, and how many core
// cycles elapsed attributed to it.
type ProfileStat struct {
	Addr   uint32
	Calls  uint64
	Cycles uint64
}

// Profiler is the run loop's checkpoint accumulator, wired in once a ROM
// with checkpoints is running (the `profile`/`profile clear`/`profile top
// <n>` command family).
type Profiler interface {
	Top(n int) []ProfileStat
	Clear()
}
