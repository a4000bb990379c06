package watchtrain

import (
	"github.com/e9kdbg/e9kdbg/internal/bridge"
	"github.com/e9kdbg/e9kdbg/internal/curated"
)

// DebugBridge is the subset of the host bridge's debug ABI that Watch,
// Protect and Train forward to. Defined as an interface so tests can supply
// a fake without loading a real core.
type DebugBridge interface {
	AddWatchpoint(w bridge.Watchpoint) (int, error)
	RemoveWatchpoint(index int) error
	ReadWatchpoints() ([]bridge.Watchpoint, error)
	ResetWatchpoints() error
	WatchpointEnabledMask() (bridge.EnabledMask, error)
	SetWatchpointEnabledMask(bridge.EnabledMask) error
	ConsumeWatchbreak() (bridge.Watchbreak, bool, error)

	AddProtect(p bridge.Protect) (int, error)
	RemoveProtect(index int) error
	ReadProtects() ([]bridge.Protect, error)
	ResetProtects() error
	ProtectEnabledMask() (bridge.EnabledMask, error)
	SetProtectEnabledMask(bridge.EnabledMask) error
}

// Controller holds no watch/protect state of its own — it validates user
// arguments, composes the op_mask, and forwards to the bridge — plus the
// small amount of state Train genuinely owns: the ignore-address list and
// which table index (if any) is the active training watchpoint.
type Controller struct {
	bridge DebugBridge

	trainIndex  int
	trainActive bool
	ignoreAddrs map[uint32]bool
	lastBreak   bridge.Watchbreak
	haveBreak   bool
}

// New creates a Controller over b.
func New(b DebugBridge) *Controller {
	return &Controller{
		bridge:      b,
		trainIndex:  -1,
		ignoreAddrs: make(map[uint32]bool),
	}
}

// Watch installs a watchpoint, validating size and op_mask.
func (c *Controller) Watch(addr uint32, opMask bridge.OpMask, size uint32) (int, error) {
	if size == 0 {
		return 0, curated.Errorf(curated.ParseError, "watch", "size must be nonzero")
	}
	w := bridge.Watchpoint{
		Addr:   addr & 0xffffff,
		OpMask: opMask,
		Size:   size,
	}
	return c.bridge.AddWatchpoint(w)
}

// RemoveWatch clears the enabled bit for index; it does not renumber the
// remaining entries.
func (c *Controller) RemoveWatch(index int) error {
	return c.bridge.RemoveWatchpoint(index)
}

// Protect installs a memory-protect entry.
func (c *Controller) Protect(addr uint32, sizeBits int, mode bridge.ProtectMode, value, addrMask uint32) (int, error) {
	if sizeBits != 8 && sizeBits != 16 && sizeBits != 32 {
		return 0, curated.Errorf(curated.ParseError, "protect", "size_bits must be 8, 16 or 32")
	}
	p := bridge.Protect{
		Addr:     addr & 0xffffff,
		SizeBits: sizeBits,
		Mode:     mode,
		Value:    value,
		AddrMask: addrMask & 0xffffff,
	}
	return c.bridge.AddProtect(p)
}

// RemoveProtect clears the enabled bit for index.
func (c *Controller) RemoveProtect(index int) error {
	return c.bridge.RemoveProtect(index)
}

// ResetWatch clears every watchpoint table entry.
func (c *Controller) ResetWatch() error {
	return c.bridge.ResetWatchpoints()
}

// ResetProtect clears every protect table entry.
func (c *Controller) ResetProtect() error {
	return c.bridge.ResetProtects()
}

// trainOpMask composes a watchpoint that matches any address (address
// compare with a zero mask) and fires only on a write whose old value
// equals from and new value equals to.
const trainOpMask = bridge.OpAddrCompareMask | bridge.OpWrite | bridge.OpOldValueEq | bridge.OpValueEq

// Train installs a training watchpoint matching writes where the old value
// equals from and the new value equals to, at any address.
func (c *Controller) Train(from, to uint32, size uint32) error {
	if size == 0 {
		size = 1
	}
	w := bridge.Watchpoint{
		OpMask:   trainOpMask,
		Size:     size,
		AddrMask: 0,
		Value:    to,
		OldValue: from,
	}
	idx, err := c.bridge.AddWatchpoint(w)
	if err != nil {
		return err
	}
	c.trainIndex = idx
	c.trainActive = true
	return nil
}

// TrainClear empties the ignore-address list.
func (c *Controller) TrainClear() {
	c.ignoreAddrs = make(map[uint32]bool)
}

// TrainIgnoreLast pushes the address of the most recently reported
// watchbreak onto the ignore list.
func (c *Controller) TrainIgnoreLast() error {
	if !c.haveBreak {
		return curated.Errorf(curated.ParseError, "train ignore", "no watchbreak has been reported yet")
	}
	c.ignoreAddrs[c.lastBreak.AccessAddr] = true
	return nil
}

// Active reports whether a training watchpoint is currently installed. The
// UI offers "ignore and continue" only when this is true and the core is
// paused on a watchbreak.
func (c *Controller) Active() bool { return c.trainActive }

// ConsumeWatchbreak drains the bridge's pending watchbreak, if any, and
// reports whether the run loop should suppress it because its address is on
// the ignore list: an ignored watchbreak resumes execution immediately
// instead of pausing.
func (c *Controller) ConsumeWatchbreak() (wb bridge.Watchbreak, ignored bool, ok bool, err error) {
	wb, ok, err = c.bridge.ConsumeWatchbreak()
	if err != nil || !ok {
		return bridge.Watchbreak{}, false, ok, err
	}
	c.lastBreak = wb
	c.haveBreak = true
	return wb, c.ignoreAddrs[wb.AccessAddr], true, nil
}
