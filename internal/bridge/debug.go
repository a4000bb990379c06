package bridge

import "github.com/e9kdbg/e9kdbg/internal/curated"

// Every debug entry point is optional at the core level: a core that
// doesn't export the backing symbol reports Unsupported, and the rest of
// the debug surface keeps working.

func (b *Bridge) Pause() error {
	if b.symbols.debugPause == nil {
		return curated.Errorf(curated.Unsupported, "pause")
	}
	b.symbols.debugPause()
	return nil
}

func (b *Bridge) Resume() error {
	if b.symbols.debugResume == nil {
		return curated.Errorf(curated.Unsupported, "resume")
	}
	b.symbols.debugResume()
	return nil
}

func (b *Bridge) IsPaused() bool {
	if b.symbols.debugIsPaused == nil {
		return false
	}
	return b.symbols.debugIsPaused()
}

func (b *Bridge) StepInstr() error {
	if b.symbols.debugStepInstr == nil {
		return curated.Errorf(curated.Unsupported, "step_instr")
	}
	b.symbols.debugStepInstr()
	return nil
}

func (b *Bridge) StepLine() error {
	if b.symbols.debugStepLine == nil {
		return curated.Errorf(curated.Unsupported, "step_line")
	}
	b.symbols.debugStepLine()
	return nil
}

func (b *Bridge) StepNext() error {
	if b.symbols.debugStepNext == nil {
		return curated.Errorf(curated.Unsupported, "step_next")
	}
	b.symbols.debugStepNext()
	return nil
}

func (b *Bridge) AddBreakpoint(addr uint32) error {
	if b.symbols.debugAddBreakpoint == nil {
		return curated.Errorf(curated.Unsupported, "add_breakpoint")
	}
	b.symbols.debugAddBreakpoint(addr & 0xffffff)
	return nil
}

func (b *Bridge) RemoveBreakpoint(addr uint32) error {
	if b.symbols.debugRemoveBreakpoint == nil {
		return curated.Errorf(curated.Unsupported, "remove_breakpoint")
	}
	b.symbols.debugRemoveBreakpoint(addr & 0xffffff)
	return nil
}

func (b *Bridge) AddTempBreakpoint(addr uint32) error {
	if b.symbols.debugAddTempBreakpoint == nil {
		return curated.Errorf(curated.Unsupported, "add_temp_breakpoint")
	}
	b.symbols.debugAddTempBreakpoint(addr & 0xffffff)
	return nil
}

func (b *Bridge) RemoveTempBreakpoint(addr uint32) error {
	if b.symbols.debugRemoveTempBreakpoint == nil {
		return curated.Errorf(curated.Unsupported, "remove_temp_breakpoint")
	}
	b.symbols.debugRemoveTempBreakpoint(addr & 0xffffff)
	return nil
}

func (b *Bridge) ResetWatchpoints() error {
	if b.symbols.debugResetWatchpoints == nil {
		return curated.Errorf(curated.Unsupported, "reset_watchpoints")
	}
	b.symbols.debugResetWatchpoints()
	return nil
}

// AddWatchpoint installs w and returns its stable table index.
func (b *Bridge) AddWatchpoint(w Watchpoint) (int, error) {
	if b.symbols.debugAddWatchpoint == nil {
		return 0, curated.Errorf(curated.Unsupported, "add_watchpoint")
	}
	return b.symbols.debugAddWatchpoint(w), nil
}

func (b *Bridge) RemoveWatchpoint(index int) error {
	if b.symbols.debugRemoveWatchpoint == nil {
		return curated.Errorf(curated.Unsupported, "remove_watchpoint")
	}
	b.symbols.debugRemoveWatchpoint(index)
	return nil
}

func (b *Bridge) ReadWatchpoints() ([]Watchpoint, error) {
	if b.symbols.debugReadWatchpoints == nil {
		return nil, curated.Errorf(curated.Unsupported, "read_watchpoints")
	}
	return b.symbols.debugReadWatchpoints(), nil
}

func (b *Bridge) WatchpointEnabledMask() (EnabledMask, error) {
	if b.symbols.debugGetWatchpointEnabledMask == nil {
		return 0, curated.Errorf(curated.Unsupported, "get_watchpoint_enabled_mask")
	}
	return b.symbols.debugGetWatchpointEnabledMask(), nil
}

func (b *Bridge) SetWatchpointEnabledMask(m EnabledMask) error {
	if b.symbols.debugSetWatchpointEnabledMask == nil {
		return curated.Errorf(curated.Unsupported, "set_watchpoint_enabled_mask")
	}
	b.symbols.debugSetWatchpointEnabledMask(m)
	return nil
}

// ConsumeWatchbreak returns the most recent watchbreak, if one is pending.
func (b *Bridge) ConsumeWatchbreak() (Watchbreak, bool, error) {
	if b.symbols.debugConsumeWatchbreak == nil {
		return Watchbreak{}, false, curated.Errorf(curated.Unsupported, "consume_watchbreak")
	}
	wb, ok := b.symbols.debugConsumeWatchbreak()
	return wb, ok, nil
}

func (b *Bridge) ResetProtects() error {
	if b.symbols.debugResetProtects == nil {
		return curated.Errorf(curated.Unsupported, "reset_protects")
	}
	b.symbols.debugResetProtects()
	return nil
}

func (b *Bridge) AddProtect(p Protect) (int, error) {
	if b.symbols.debugAddProtect == nil {
		return 0, curated.Errorf(curated.Unsupported, "add_protect")
	}
	return b.symbols.debugAddProtect(p), nil
}

func (b *Bridge) RemoveProtect(index int) error {
	if b.symbols.debugRemoveProtect == nil {
		return curated.Errorf(curated.Unsupported, "remove_protect")
	}
	b.symbols.debugRemoveProtect(index)
	return nil
}

func (b *Bridge) ReadProtects() ([]Protect, error) {
	if b.symbols.debugReadProtects == nil {
		return nil, curated.Errorf(curated.Unsupported, "read_protects")
	}
	return b.symbols.debugReadProtects(), nil
}

func (b *Bridge) ProtectEnabledMask() (EnabledMask, error) {
	if b.symbols.debugGetProtectEnabledMask == nil {
		return 0, curated.Errorf(curated.Unsupported, "get_protect_enabled_mask")
	}
	return b.symbols.debugGetProtectEnabledMask(), nil
}

func (b *Bridge) SetProtectEnabledMask(m EnabledMask) error {
	if b.symbols.debugSetProtectEnabledMask == nil {
		return curated.Errorf(curated.Unsupported, "set_protect_enabled_mask")
	}
	b.symbols.debugSetProtectEnabledMask(m)
	return nil
}

func (b *Bridge) ReadCallstack() ([]CallstackFrame, error) {
	if b.symbols.debugReadCallstack == nil {
		return nil, curated.Errorf(curated.Unsupported, "read_callstack")
	}
	return b.symbols.debugReadCallstack(), nil
}

// ReadMemory reads a single byte at addr.
func (b *Bridge) ReadMemory(addr uint32) (byte, error) {
	if b.symbols.debugReadMemory == nil {
		return 0, curated.Errorf(curated.Unsupported, "read_memory")
	}
	v, ok := b.symbols.debugReadMemory(addr & 0xffffff)
	if !ok {
		return 0, curated.Errorf(curated.MemoryError, "address out of range")
	}
	return v, nil
}

// WriteMemory writes value (size ∈ {1,2,4} bytes) at addr.
func (b *Bridge) WriteMemory(addr uint32, value uint32, size int) error {
	if b.symbols.debugWriteMemory == nil {
		return curated.Errorf(curated.Unsupported, "write_memory")
	}
	if size != 1 && size != 2 && size != 4 {
		return curated.Errorf(curated.MemoryError, "invalid write size")
	}
	if !b.symbols.debugWriteMemory(addr&0xffffff, value, size) {
		return curated.Errorf(curated.MemoryError, "write rejected")
	}
	return nil
}

func (b *Bridge) GetSpriteState(index int) (SpriteState, error) {
	if b.symbols.debugGetSpriteState == nil {
		return SpriteState{}, curated.Errorf(curated.Unsupported, "get_sprite_state")
	}
	s, ok := b.symbols.debugGetSpriteState(index)
	if !ok {
		return SpriteState{}, curated.Errorf(curated.Unsupported, "sprite index out of range")
	}
	return s, nil
}

func (b *Bridge) GetP1ROM() ([]byte, error) {
	if b.symbols.debugGetP1ROM == nil {
		return nil, curated.Errorf(curated.Unsupported, "get_p1_rom")
	}
	return b.symbols.debugGetP1ROM(), nil
}

// DisassembleQuick disassembles a single instruction at pc.
func (b *Bridge) DisassembleQuick(pc uint32) (text string, lengthBytes int, err error) {
	if b.symbols.debugDisassembleQuick == nil {
		return "", 0, curated.Errorf(curated.Unsupported, "disassemble_quick")
	}
	text, n := b.symbols.debugDisassembleQuick(pc & 0xffffff)
	return text, n, nil
}

func (b *Bridge) ReadRegs() (*Registers, error) {
	if b.symbols.debugReadRegs == nil {
		return nil, curated.Errorf(curated.Unsupported, "read_regs")
	}
	return b.symbols.debugReadRegs(), nil
}

func (b *Bridge) ReadCycleCount() (uint64, error) {
	if b.symbols.debugReadCycleCount == nil {
		return 0, curated.Errorf(curated.Unsupported, "read_cycle_count")
	}
	return b.symbols.debugReadCycleCount(), nil
}

func (b *Bridge) ReadCheckpoints() ([]uint32, error) {
	if b.symbols.debugReadCheckpoints == nil {
		return nil, curated.Errorf(curated.Unsupported, "read_checkpoints")
	}
	return b.symbols.debugReadCheckpoints(), nil
}

func (b *Bridge) ResetCheckpoints() error {
	if b.symbols.debugResetCheckpoints == nil {
		return curated.Errorf(curated.Unsupported, "reset_checkpoints")
	}
	b.symbols.debugResetCheckpoints()
	return nil
}

func (b *Bridge) SetCheckpointEnabled(index int, on bool) error {
	if b.symbols.debugSetCheckpointEnabled == nil {
		return curated.Errorf(curated.Unsupported, "set_checkpoint_enabled")
	}
	b.symbols.debugSetCheckpointEnabled(index, on)
	return nil
}

func (b *Bridge) GetCheckpointEnabled(index int) (bool, error) {
	if b.symbols.debugGetCheckpointEnabled == nil {
		return false, curated.Errorf(curated.Unsupported, "get_checkpoint_enabled")
	}
	return b.symbols.debugGetCheckpointEnabled(index), nil
}
