package watchtrain_test

import (
	"testing"

	"github.com/e9kdbg/e9kdbg/internal/bridge"
	"github.com/e9kdbg/e9kdbg/internal/watchtrain"
)

type fakeBridge struct {
	watchpoints []bridge.Watchpoint
	protects    []bridge.Protect
	pending     []bridge.Watchbreak
}

func (f *fakeBridge) AddWatchpoint(w bridge.Watchpoint) (int, error) {
	f.watchpoints = append(f.watchpoints, w)
	return len(f.watchpoints) - 1, nil
}
func (f *fakeBridge) RemoveWatchpoint(index int) error               { return nil }
func (f *fakeBridge) ReadWatchpoints() ([]bridge.Watchpoint, error)  { return f.watchpoints, nil }
func (f *fakeBridge) ResetWatchpoints() error                        { f.watchpoints = nil; return nil }
func (f *fakeBridge) WatchpointEnabledMask() (bridge.EnabledMask, error) { return 0, nil }
func (f *fakeBridge) SetWatchpointEnabledMask(bridge.EnabledMask) error  { return nil }
func (f *fakeBridge) ConsumeWatchbreak() (bridge.Watchbreak, bool, error) {
	if len(f.pending) == 0 {
		return bridge.Watchbreak{}, false, nil
	}
	wb := f.pending[0]
	f.pending = f.pending[1:]
	return wb, true, nil
}

func (f *fakeBridge) AddProtect(p bridge.Protect) (int, error) {
	f.protects = append(f.protects, p)
	return len(f.protects) - 1, nil
}
func (f *fakeBridge) RemoveProtect(index int) error               { return nil }
func (f *fakeBridge) ReadProtects() ([]bridge.Protect, error)     { return f.protects, nil }
func (f *fakeBridge) ResetProtects() error                        { f.protects = nil; return nil }
func (f *fakeBridge) ProtectEnabledMask() (bridge.EnabledMask, error) { return 0, nil }
func (f *fakeBridge) SetProtectEnabledMask(bridge.EnabledMask) error  { return nil }

func TestTrainComposesOpMask(t *testing.T) {
	fb := &fakeBridge{}
	c := watchtrain.New(fb)

	if err := c.Train(0x10, 0x20, 1); err != nil {
		t.Fatalf("train: %v", err)
	}
	if !c.Active() {
		t.Fatalf("expected training watchpoint to be active")
	}
	if len(fb.watchpoints) != 1 {
		t.Fatalf("expected exactly one watchpoint installed")
	}
	w := fb.watchpoints[0]
	want := bridge.OpAddrCompareMask | bridge.OpWrite | bridge.OpOldValueEq | bridge.OpValueEq
	if w.OpMask != want {
		t.Fatalf("op_mask = %x, want %x", w.OpMask, want)
	}
	if w.OldValue != 0x10 || w.Value != 0x20 {
		t.Fatalf("expected old=0x10 val=0x20, got old=%x val=%x", w.OldValue, w.Value)
	}
}

func TestTrainIgnoreSuppressesMatchingBreak(t *testing.T) {
	fb := &fakeBridge{pending: []bridge.Watchbreak{{AccessAddr: 0x4000}, {AccessAddr: 0x4000}, {AccessAddr: 0x5000}}}
	c := watchtrain.New(fb)

	_, ignored, ok, err := c.ConsumeWatchbreak()
	if err != nil || !ok {
		t.Fatalf("expected first watchbreak to be available: ok=%v err=%v", ok, err)
	}
	if ignored {
		t.Fatalf("first break at 0x4000 should not be ignored before train ignore")
	}

	if err := c.TrainIgnoreLast(); err != nil {
		t.Fatalf("train ignore: %v", err)
	}

	_, ignored, ok, err = c.ConsumeWatchbreak()
	if err != nil || !ok {
		t.Fatalf("expected second watchbreak: ok=%v err=%v", ok, err)
	}
	if !ignored {
		t.Fatalf("repeated break at the ignored address should be ignored")
	}

	_, ignored, ok, err = c.ConsumeWatchbreak()
	if err != nil || !ok {
		t.Fatalf("expected third watchbreak: ok=%v err=%v", ok, err)
	}
	if ignored {
		t.Fatalf("break at a different address must not be suppressed")
	}
}

func TestTrainClearResetsIgnoreList(t *testing.T) {
	fb := &fakeBridge{pending: []bridge.Watchbreak{{AccessAddr: 0x100}}}
	c := watchtrain.New(fb)

	c.ConsumeWatchbreak()
	if err := c.TrainIgnoreLast(); err != nil {
		t.Fatalf("train ignore: %v", err)
	}
	c.TrainClear()

	fb.pending = []bridge.Watchbreak{{AccessAddr: 0x100}}
	_, ignored, ok, err := c.ConsumeWatchbreak()
	if err != nil || !ok {
		t.Fatalf("expected a watchbreak: ok=%v err=%v", ok, err)
	}
	if ignored {
		t.Fatalf("train_clear must empty the ignore list")
	}
}

func TestWatchRejectsZeroSize(t *testing.T) {
	fb := &fakeBridge{}
	c := watchtrain.New(fb)
	if _, err := c.Watch(0x10, bridge.OpWrite, 0); err == nil {
		t.Fatalf("expected error for zero size")
	}
}

func TestProtectRejectsInvalidSizeBits(t *testing.T) {
	fb := &fakeBridge{}
	c := watchtrain.New(fb)
	if _, err := c.Protect(0x10, 24, bridge.ProtectBlock, 0, 0); err == nil {
		t.Fatalf("expected error for invalid size_bits")
	}
}
