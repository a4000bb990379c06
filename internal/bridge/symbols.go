package bridge

import (
	"plugin"

	"github.com/e9kdbg/e9kdbg/internal/curated"
)

// coreSymbols holds every core entry point the bridge knows how to call,
// resolved once at Start and left nil when the core's plugin does not
// export the matching symbol. A nil field means the corresponding
// capability reports Unsupported; a missing symbol never aborts startup.
type coreSymbols struct {
	setEnvironment      func(envCallback) bool
	setVideoRefresh     func(func(data []byte, width, height, pitch int, format PixelFormat))
	setAudioSample      func(func(left, right int16))
	setAudioSampleBatch func(func(data []int16, frames int) int)
	setInputPoll        func(func())
	setInputState       func(func(port, device, index, id int) int16)

	init   func()
	deinit func()

	loadGame   func(rom []byte) bool
	unloadGame func()

	run   func()
	reset func()

	getSystemAVInfo func() AVInfo

	getMemoryData func(id int) []byte
	getMemorySize func(id int) int

	serializeSize  func() int
	serialize      func(buf []byte) bool
	unserialize    func(buf []byte) bool

	debugReadRegs func() *Registers

	debugPause    func()
	debugResume   func()
	debugIsPaused func() bool

	debugStepInstr func()
	debugStepLine  func()
	debugStepNext  func()

	debugAddBreakpoint     func(addr uint32)
	debugRemoveBreakpoint  func(addr uint32)
	debugAddTempBreakpoint func(addr uint32)
	debugRemoveTempBreakpoint func(addr uint32)

	debugResetWatchpoints func()
	debugAddWatchpoint    func(w Watchpoint) int
	debugRemoveWatchpoint func(index int)
	debugReadWatchpoints  func() []Watchpoint
	debugGetWatchpointEnabledMask func() EnabledMask
	debugSetWatchpointEnabledMask func(EnabledMask)
	debugConsumeWatchbreak        func() (Watchbreak, bool)

	debugResetProtects func()
	debugAddProtect    func(p Protect) int
	debugRemoveProtect func(index int)
	debugReadProtects  func() []Protect
	debugGetProtectEnabledMask func() EnabledMask
	debugSetProtectEnabledMask func(EnabledMask)

	debugReadCallstack  func() []CallstackFrame
	debugReadMemory     func(addr uint32) (byte, bool)
	debugWriteMemory    func(addr uint32, value uint32, size int) bool
	debugGetSpriteState func(index int) (SpriteState, bool)
	debugGetP1ROM       func() []byte
	debugDisassembleQuick func(pc uint32) (string, int)
	debugReadCycleCount   func() uint64

	debugReadCheckpoints   func() []uint32
	debugResetCheckpoints  func()
	debugSetCheckpointEnabled func(index int, on bool)
	debugGetCheckpointEnabled func(index int) bool

	setVblankCallback func(func())
}

// envCallback mirrors the libretro-style environment callback signature: a
// command id plus an opaque data pointer, returning whether the command was
// handled.
type envCallback func(cmd int, data interface{}) bool

// lookupSymbol resolves name as a plugin symbol of type T. Using a generic
// helper instead of one reflect call per field keeps every individual lookup
// independent, which is what lets a single missing symbol downgrade just one
// capability rather than aborting the whole bind pass.
func lookupSymbol[T any](p *plugin.Plugin, name string) (T, bool) {
	var zero T
	raw, err := p.Lookup(name)
	if err != nil {
		return zero, false
	}
	fn, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return fn, true
}

func bindAll(cs *coreSymbols, p *plugin.Plugin) {
	bind(p, "set_environment", &cs.setEnvironment)
	bind(p, "set_video_refresh", &cs.setVideoRefresh)
	bind(p, "set_audio_sample", &cs.setAudioSample)
	bind(p, "set_audio_sample_batch", &cs.setAudioSampleBatch)
	bind(p, "set_input_poll", &cs.setInputPoll)
	bind(p, "set_input_state", &cs.setInputState)
	bind(p, "init", &cs.init)
	bind(p, "deinit", &cs.deinit)
	bind(p, "load_game", &cs.loadGame)
	bind(p, "unload_game", &cs.unloadGame)
	bind(p, "run", &cs.run)
	bind(p, "reset", &cs.reset)
	bind(p, "get_system_av_info", &cs.getSystemAVInfo)
	bind(p, "get_memory_data", &cs.getMemoryData)
	bind(p, "get_memory_size", &cs.getMemorySize)
	bind(p, "serialize_size", &cs.serializeSize)
	bind(p, "serialize", &cs.serialize)
	bind(p, "unserialize", &cs.unserialize)
	bind(p, "debug_read_regs", &cs.debugReadRegs)
	bind(p, "debug_pause", &cs.debugPause)
	bind(p, "debug_resume", &cs.debugResume)
	bind(p, "debug_is_paused", &cs.debugIsPaused)
	bind(p, "debug_step_instr", &cs.debugStepInstr)
	bind(p, "debug_step_line", &cs.debugStepLine)
	bind(p, "debug_step_next", &cs.debugStepNext)
	bind(p, "debug_add_breakpoint", &cs.debugAddBreakpoint)
	bind(p, "debug_remove_breakpoint", &cs.debugRemoveBreakpoint)
	bind(p, "debug_add_temp_breakpoint", &cs.debugAddTempBreakpoint)
	bind(p, "debug_remove_temp_breakpoint", &cs.debugRemoveTempBreakpoint)
	bind(p, "debug_reset_watchpoints", &cs.debugResetWatchpoints)
	bind(p, "debug_add_watchpoint", &cs.debugAddWatchpoint)
	bind(p, "debug_remove_watchpoint", &cs.debugRemoveWatchpoint)
	bind(p, "debug_read_watchpoints", &cs.debugReadWatchpoints)
	bind(p, "debug_get_watchpoint_enabled_mask", &cs.debugGetWatchpointEnabledMask)
	bind(p, "debug_set_watchpoint_enabled_mask", &cs.debugSetWatchpointEnabledMask)
	bind(p, "debug_consume_watchbreak", &cs.debugConsumeWatchbreak)
	bind(p, "debug_reset_protects", &cs.debugResetProtects)
	bind(p, "debug_add_protect", &cs.debugAddProtect)
	bind(p, "debug_remove_protect", &cs.debugRemoveProtect)
	bind(p, "debug_read_protects", &cs.debugReadProtects)
	bind(p, "debug_get_protect_enabled_mask", &cs.debugGetProtectEnabledMask)
	bind(p, "debug_set_protect_enabled_mask", &cs.debugSetProtectEnabledMask)
	bind(p, "debug_read_callstack", &cs.debugReadCallstack)
	bind(p, "debug_read_memory", &cs.debugReadMemory)
	bind(p, "debug_write_memory", &cs.debugWriteMemory)
	bind(p, "debug_get_sprite_state", &cs.debugGetSpriteState)
	bind(p, "debug_get_p1_rom", &cs.debugGetP1ROM)
	bind(p, "debug_disassemble_quick", &cs.debugDisassembleQuick)
	bind(p, "debug_read_cycle_count", &cs.debugReadCycleCount)
	bind(p, "debug_read_checkpoints", &cs.debugReadCheckpoints)
	bind(p, "debug_reset_checkpoints", &cs.debugResetCheckpoints)
	bind(p, "debug_set_checkpoint_enabled", &cs.debugSetCheckpointEnabled)
	bind(p, "debug_get_checkpoint_enabled", &cs.debugGetCheckpointEnabled)
	bind(p, "set_vblank_callback", &cs.setVblankCallback)
}

// bind looks up name in p and, if present and of the right type, stores it
// through dst. A lookup or type-assertion failure leaves *dst nil.
func bind[T any](p *plugin.Plugin, name string, dst *T) {
	if fn, ok := lookupSymbol[T](p, name); ok {
		*dst = fn
	}
}

// requireMandatory checks the handful of symbols without which a core
// cannot be used at all.
func requireMandatory(cs *coreSymbols) error {
	missing := []string{}
	if cs.init == nil {
		missing = append(missing, "init")
	}
	if cs.loadGame == nil {
		missing = append(missing, "load_game")
	}
	if cs.run == nil {
		missing = append(missing, "run")
	}
	if cs.getSystemAVInfo == nil {
		missing = append(missing, "get_system_av_info")
	}
	if cs.serializeSize == nil || cs.serialize == nil || cs.unserialize == nil {
		missing = append(missing, "serialize_size/serialize/unserialize")
	}
	if len(missing) > 0 {
		return curated.Errorf(curated.LoadFailure, missing)
	}
	return nil
}
