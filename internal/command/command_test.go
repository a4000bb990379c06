package command

import (
	"strings"
	"testing"

	"github.com/e9kdbg/e9kdbg/internal/bridge"
	"github.com/e9kdbg/e9kdbg/internal/statehistory"
	"github.com/e9kdbg/e9kdbg/internal/watchtrain"
)

// fakeCore is a minimal CoreBridge double recording which operations were
// invoked, without a real plugin-loaded core.
type fakeCore struct {
	paused      bool
	breakpoints []uint32
	mem         map[uint32]byte
	stepLines   int
	stepInstrs  int
	stepNexts   int
	resumed     int

	watchpoints []bridge.Watchpoint
	protects    []bridge.Protect
}

func newFakeCore() *fakeCore {
	return &fakeCore{mem: make(map[uint32]byte)}
}

func (c *fakeCore) Pause() error    { c.paused = true; return nil }
func (c *fakeCore) Resume() error   { c.resumed++; c.paused = false; return nil }
func (c *fakeCore) IsPaused() bool  { return c.paused }
func (c *fakeCore) StepInstr() error { c.stepInstrs++; return nil }
func (c *fakeCore) StepLine() error  { c.stepLines++; return nil }
func (c *fakeCore) StepNext() error  { c.stepNexts++; return nil }

func (c *fakeCore) AddBreakpoint(addr uint32) error {
	c.breakpoints = append(c.breakpoints, addr)
	return nil
}
func (c *fakeCore) RemoveBreakpoint(addr uint32) error { return nil }

func (c *fakeCore) ReadMemory(addr uint32) (byte, error) { return c.mem[addr], nil }
func (c *fakeCore) WriteMemory(addr uint32, value uint32, size int) error {
	for i := 0; i < size; i++ {
		c.mem[addr+uint32(i)] = byte(value >> (8 * uint(i)))
	}
	return nil
}

func (c *fakeCore) ReadRegs() (*bridge.Registers, error) { return nil, nil }

func (c *fakeCore) ReadWatchpoints() ([]bridge.Watchpoint, error) { return c.watchpoints, nil }
func (c *fakeCore) ReadProtects() ([]bridge.Protect, error)       { return c.protects, nil }

// fakeWatchBridge implements watchtrain.DebugBridge atop the fakeCore's
// recorded tables, so one fake backs both Engine and the Controller.
type fakeWatchBridge struct{ core *fakeCore }

func (b *fakeWatchBridge) AddWatchpoint(w bridge.Watchpoint) (int, error) {
	b.core.watchpoints = append(b.core.watchpoints, w)
	return len(b.core.watchpoints) - 1, nil
}
func (b *fakeWatchBridge) RemoveWatchpoint(index int) error {
	if index < 0 || index >= len(b.core.watchpoints) {
		return nil
	}
	b.core.watchpoints = append(b.core.watchpoints[:index], b.core.watchpoints[index+1:]...)
	return nil
}
func (b *fakeWatchBridge) ReadWatchpoints() ([]bridge.Watchpoint, error) { return b.core.watchpoints, nil }
func (b *fakeWatchBridge) ResetWatchpoints() error                       { b.core.watchpoints = nil; return nil }
func (b *fakeWatchBridge) WatchpointEnabledMask() (bridge.EnabledMask, error) {
	return 0, nil
}
func (b *fakeWatchBridge) SetWatchpointEnabledMask(bridge.EnabledMask) error { return nil }
func (b *fakeWatchBridge) ConsumeWatchbreak() (bridge.Watchbreak, bool, error) {
	return bridge.Watchbreak{}, false, nil
}

func (b *fakeWatchBridge) AddProtect(p bridge.Protect) (int, error) {
	b.core.protects = append(b.core.protects, p)
	return len(b.core.protects) - 1, nil
}
func (b *fakeWatchBridge) RemoveProtect(index int) error {
	if index < 0 || index >= len(b.core.protects) {
		return nil
	}
	b.core.protects = append(b.core.protects[:index], b.core.protects[index+1:]...)
	return nil
}
func (b *fakeWatchBridge) ReadProtects() ([]bridge.Protect, error) { return b.core.protects, nil }
func (b *fakeWatchBridge) ResetProtects() error                    { b.core.protects = nil; return nil }
func (b *fakeWatchBridge) ProtectEnabledMask() (bridge.EnabledMask, error) {
	return 0, nil
}
func (b *fakeWatchBridge) SetProtectEnabledMask(bridge.EnabledMask) error { return nil }

func newTestEngine() (*Engine, *fakeCore) {
	core := newFakeCore()
	wt := watchtrain.New(&fakeWatchBridge{core: core})
	return New(core, wt), core
}

func TestDispatchBreakHexAddress(t *testing.T) {
	e, core := newTestEngine()
	out, err := e.Dispatch("break 0x1000")
	if err != nil {
		t.Fatalf("break: %v", err)
	}
	if !strings.Contains(out, "0x001000") {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(core.breakpoints) != 1 || core.breakpoints[0] != 0x1000 {
		t.Fatalf("breakpoint not installed: %+v", core.breakpoints)
	}
}

func TestDispatchShortFormsAndStepping(t *testing.T) {
	e, core := newTestEngine()
	if _, err := e.Dispatch("c"); err != nil || core.resumed != 1 {
		t.Fatalf("continue via short form failed: err=%v resumed=%d", err, core.resumed)
	}
	if _, err := e.Dispatch("s"); err != nil || core.stepLines != 1 {
		t.Fatalf("step via short form failed")
	}
	if _, err := e.Dispatch("i"); err != nil || core.stepInstrs != 1 {
		t.Fatalf("stepi via short form failed")
	}
	if _, err := e.Dispatch("n"); err != nil || core.stepNexts != 1 {
		t.Fatalf("next via short form failed")
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	e, _ := newTestEngine()
	if _, err := e.Dispatch("frobnicate"); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestWriteWidthInference(t *testing.T) {
	e, core := newTestEngine()
	if _, err := e.Dispatch("write 0x2000 2A"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if core.mem[0x2000] != 0x2A {
		t.Fatalf("expected byte 0x2A at 0x2000, got %#x", core.mem[0x2000])
	}

	if _, err := e.Dispatch("write 0x3000 ABCD"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if core.mem[0x3000] != 0xCD || core.mem[0x3001] != 0xAB {
		t.Fatalf("expected 16-bit little-endian write, got %#x %#x", core.mem[0x3000], core.mem[0x3001])
	}
}

func TestPrintNumericFastPath(t *testing.T) {
	e, core := newTestEngine()
	core.mem[0x1000] = 0x2A
	out, err := e.Dispatch("print *0x1000")
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if out != "*0x1000: 42 (0x2A)" {
		t.Fatalf("got %q", out)
	}
}

func TestWatchAddListAndClear(t *testing.T) {
	e, _ := newTestEngine()
	if _, err := e.Dispatch("watch 0x4000 r size=2"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	out, err := e.Dispatch("watch")
	if err != nil {
		t.Fatalf("watch list: %v", err)
	}
	if !strings.Contains(out, "0x004000") {
		t.Fatalf("expected watchpoint listed, got %q", out)
	}
	if _, err := e.Dispatch("watch clear"); err != nil {
		t.Fatalf("watch clear: %v", err)
	}
	out, _ = e.Dispatch("watch")
	if out != "no watchpoints" {
		t.Fatalf("expected empty watch list after clear, got %q", out)
	}
}

func TestProtectAddAndDelByAddress(t *testing.T) {
	e, _ := newTestEngine()
	if _, err := e.Dispatch("protect 0x5000 set=0x11 size=8"); err != nil {
		t.Fatalf("protect: %v", err)
	}
	if _, err := e.Dispatch("protect del 0x5000"); err != nil {
		t.Fatalf("protect del: %v", err)
	}
}

func TestTrainLifecycle(t *testing.T) {
	e, _ := newTestEngine()
	if _, err := e.Dispatch("train 0x01 0x02"); err != nil {
		t.Fatalf("train: %v", err)
	}
	if _, err := e.Dispatch("train clear"); err != nil {
		t.Fatalf("train clear: %v", err)
	}
}

type fakeLoop struct {
	from, to uint64
	enabled  bool
}

func (l *fakeLoop) SetLoopRange(from, to uint64, enabled bool) {
	l.from, l.to, l.enabled = from, to, enabled
}
func (l *fakeLoop) LoopRange() (uint64, uint64, bool) { return l.from, l.to, l.enabled }

func TestLoopRangeLifecycle(t *testing.T) {
	e, _ := newTestEngine()
	e.SetLoopControl(&fakeLoop{})
	if _, err := e.Dispatch("loop 10 20"); err != nil {
		t.Fatalf("loop: %v", err)
	}
	out, err := e.Dispatch("loop")
	if err != nil || out != "looping [10, 20)" {
		t.Fatalf("loop query: out=%q err=%v", out, err)
	}
	if _, err := e.Dispatch("loop clear"); err != nil {
		t.Fatalf("loop clear: %v", err)
	}
}

func TestDiffReportsChangedWords(t *testing.T) {
	e, _ := newTestEngine()
	hist := statehistory.NewRing(1 << 20)
	hist.SetCurrentFrameNo(0)
	stateA := make([]byte, 16)
	stateA[0] = 1
	if err := hist.Capture(stateA); err != nil {
		t.Fatalf("capture a: %v", err)
	}
	hist.SetCurrentFrameNo(1)
	stateB := make([]byte, 16)
	stateB[0] = 1
	stateB[4] = 9
	if err := hist.Capture(stateB); err != nil {
		t.Fatalf("capture b: %v", err)
	}
	e.SetHistory(hist)

	out, err := e.Dispatch("diff 0 1 size=32")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if !strings.Contains(out, "0x000004") {
		t.Fatalf("expected a diff at word 4, got %q", out)
	}
}

func TestClsClearsConsole(t *testing.T) {
	e, _ := newTestEngine()
	e.Dispatch("break 0x1000")
	if len(e.Console()) == 0 {
		t.Fatal("expected console to have content after break")
	}
	e.Dispatch("cls")
	if len(e.Console()) != 0 {
		t.Fatalf("expected empty console after cls, got %v", e.Console())
	}
}

func TestHelpListsCommands(t *testing.T) {
	e, _ := newTestEngine()
	out, _ := e.Dispatch("help")
	if !strings.Contains(out, "break") || !strings.Contains(out, "watch") {
		t.Fatalf("help output missing expected commands: %q", out)
	}
}

func TestCompleteCommandNames(t *testing.T) {
	e, _ := newTestEngine()
	items, pos := e.Complete("br", 2)
	if pos != 0 {
		t.Fatalf("expected prefix_pos 0, got %d", pos)
	}
	found := false
	for _, it := range items {
		if it == "break" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 'break' among completions, got %v", items)
	}
}
