// Command e9kdebugger is the source-level, time-travel debugger front end
// for a dynamically loaded emulator core: an interactive command-line
// session (`debugger` mode) and a headless run-and-compare harness (`smoke`
// mode), both built over the same host bridge, state-history engine, input
// record/replay, watch/protect/train controller and command engine.
//
// Top-level dispatch is by modalflag: each run mode owns its flag set and
// is selected by the first non-flag argument.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/e9kdbg/e9kdbg/internal/ansiterm"
	"github.com/e9kdbg/e9kdbg/internal/bridge"
	"github.com/e9kdbg/e9kdbg/internal/command"
	"github.com/e9kdbg/e9kdbg/internal/config"
	"github.com/e9kdbg/e9kdbg/internal/curated"
	"github.com/e9kdbg/e9kdbg/internal/dwarfinfo"
	"github.com/e9kdbg/e9kdbg/internal/inputrecord"
	"github.com/e9kdbg/e9kdbg/internal/logger"
	"github.com/e9kdbg/e9kdbg/internal/modalflag"
	"github.com/e9kdbg/e9kdbg/internal/romchecksum"
	"github.com/e9kdbg/e9kdbg/internal/runloop"
	"github.com/e9kdbg/e9kdbg/internal/smoketest"
	"github.com/e9kdbg/e9kdbg/internal/statehistory"
	"github.com/e9kdbg/e9kdbg/internal/watchtrain"
)

const defaultHistoryBudget = 64 * 1024 * 1024 // 64MiB rewind budget

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var modes modalflag.Modes
	modes.Output = os.Stderr
	modes.NewArgs(args)

	core := modes.AddString("core", "", "path to the emulator core plugin (.so)")
	rom := modes.AddString("rom", "", "path to the ROM image")
	systemDir := modes.AddString("system-dir", "", "core system/BIOS directory")
	saveDir := modes.AddString("save-dir", "", "save-state and rewind-slice directory")
	elf := modes.AddString("elf", "", "path to the debug ELF (defaults to -rom)")
	textBase := modes.AddString("text-base", "0", "hex .text base address")
	dataBase := modes.AddString("data-base", "0", "hex .data base address")
	bssBase := modes.AddString("bss-base", "0", "hex .bss base address")
	configPath := modes.AddString("config", "", "config file path (defaults to the platform dotdir)")
	statsAddr := modes.AddString("stats", "", "serve the live profiling dashboard on this address (empty disables)")

	debuggerFS := modes.NewMode("debugger")
	_ = debuggerFS

	smokeFS := modes.NewMode("smoke")
	smokeMode := smokeFS.String("mode", "record", "record|compare")
	smokeFolder := smokeFS.String("folder", "", "smoke-test output folder")
	smokeFrames := smokeFS.Uint64("frames", 600, "frame budget")

	cont, err := modes.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if cont == modalflag.ParseHelp {
		modes.Usage()
		return 0
	}

	if *core == "" || *rom == "" {
		fmt.Fprintln(os.Stderr, "e9kdebugger: -core and -rom are required")
		modes.Usage()
		return 1
	}

	elfPath := *elf
	if elfPath == "" {
		elfPath = *rom
	}
	key := dwarfinfo.Key{
		ELFPath:  elfPath,
		TextBase: parseHexUint32(*textBase),
		DataBase: parseHexUint32(*dataBase),
		BSSBase:  parseHexUint32(*bssBase),
	}

	cfgPath := *configPath
	var cfg *config.Config
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "e9kdebugger:", err)
		return 1
	}

	// The romset index fills in directories remembered from the last time
	// this ROM was opened, keyed by basename and confirmed by checksum.
	romBytes, err := os.ReadFile(*rom)
	if err != nil {
		fmt.Fprintln(os.Stderr, "e9kdebugger:", err)
		return 1
	}
	romChecksum := romchecksum.Sum64(romBytes)

	saveDirV, systemDirV := *saveDir, *systemDir
	romsetPath, romsetErr := config.DefaultROMSetPath()
	var romset *config.ROMSet
	if romsetErr == nil {
		if romset, err = config.LoadROMSet(romsetPath); err != nil {
			romset = config.NewROMSet()
		}
		if entry, ok := romset.Lookup(filepath.Base(*rom)); ok && entry.Checksum == romChecksum {
			if saveDirV == "" {
				saveDirV = entry.SaveDir
			}
			if systemDirV == "" {
				systemDirV = entry.SystemDir
			}
		}
	}

	if *statsAddr != "" {
		runloop.MountDashboard(*statsAddr)
	}

	br := bridge.New()
	if err := br.Start(*core, *rom, systemDirV, saveDirV); err != nil {
		fmt.Fprintln(os.Stderr, "e9kdebugger:", err)
		return 1
	}
	defer br.Shutdown()

	switch modes.Mode() {
	case "smoke":
		return runSmoke(br, *smokeFolder, *smokeMode, *smokeFrames)
	default:
		code, lastFrame := runDebugger(br, key, cfg, cfgPath, saveDirV, *rom, romChecksum)
		if romset != nil {
			romset.Update(config.Entry{
				Basename:    filepath.Base(*rom),
				SaveDir:     saveDirV,
				SystemDir:   systemDirV,
				LastFrameNo: lastFrame,
				Checksum:    romChecksum,
			})
			if err := romset.Save(romsetPath); err != nil {
				logger.Logf("romset", "index not persisted: %v", err)
			}
		}
		return code
	}
}

func parseHexUint32(s string) uint32 {
	v, _ := strconv.ParseUint(s, 0, 32)
	return uint32(v)
}

func runSmoke(br *bridge.Bridge, folder, mode string, frames uint64) int {
	var m smoketest.Mode
	switch mode {
	case "record":
		m = smoketest.ModeRecord
	case "compare":
		m = smoketest.ModeCompare
	default:
		fmt.Fprintln(os.Stderr, "e9kdebugger: smoke -mode must be record or compare")
		return 1
	}

	h, err := smoketest.New(folder, m, frames, br, inputrecord.NewLog())
	if err != nil {
		fmt.Fprintln(os.Stderr, "e9kdebugger:", err)
		return 1
	}
	if err := h.Run(); err != nil {
		if curated.Has(err, curated.SmokeFailure) {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Fprintln(os.Stderr, "e9kdebugger:", err)
		return 1
	}
	return 0
}

func runDebugger(br *bridge.Bridge, key dwarfinfo.Key, cfg *config.Config, cfgPath, saveDir, romPath string, romChecksum uint64) (int, uint64) {
	hist := statehistory.NewRing(historyBudget(cfg))
	if saveDir != "" {
		if restored, err := config.LoadRewindState(saveDir, romPath, romChecksum); err == nil {
			restored.SetBudget(historyBudget(cfg))
			hist = restored
		} else {
			logger.Logf("rewind", "no prior save-state restored: %v", err)
		}
	}

	input := inputrecord.NewLog()
	br.SetRecorder(input)
	wt := watchtrain.New(br)
	cmd := command.New(br, wt)
	cmd.SetHistory(hist)
	cmd.SetELFPath(key.ELFPath)
	if mode, ok := cfg.Component("ui", "transition"); ok {
		cmd.SetTransition(mode)
	}

	loop := runloop.NewLoop(br, hist, input, wt, cmd)
	cmd.SetCoreBridge(loop)
	cmd.SetBreakpointSink(loop)
	cmd.SetLoopControl(loop)

	profiler := runloop.NewProfiler(br)
	loop.SetProfiler(profiler)
	cmd.SetProfiler(profiler)

	idx, err := dwarfinfo.Load(key, dwarfinfo.STABSPreferDataFromEnv())
	if err != nil {
		logger.Logf("dwarfinfo", "debug-info load failed, continuing without symbols: %v", err)
	} else {
		cmd.SetIndex(idx)
	}

	term, err := ansiterm.New(os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "e9kdebugger:", err)
		return 1, 0
	}
	if err := term.RawMode(); err != nil {
		fmt.Fprintln(os.Stderr, "e9kdebugger:", err)
		return 1, 0
	}
	defer term.Close()

	loop.SetRunning(true)
	lastTick := time.Now()
	for {
		now := time.Now()
		loop.Tick(now.Sub(lastTick).Seconds())
		lastTick = now

		line, err := term.ReadLine("(e9kdbg) ")
		if err != nil {
			if err == io.EOF || err == ansiterm.ErrInterrupt {
				break
			}
			fmt.Fprintln(os.Stderr, "e9kdebugger:", err)
			break
		}
		if line == "quit" || line == "q" {
			break
		}
		out, err := cmd.Dispatch(line)
		if err != nil {
			fmt.Fprintln(os.Stdout, err)
			continue
		}
		if out != "" {
			fmt.Fprintln(os.Stdout, out)
		}
	}

	if saveDir != "" {
		if err := config.SaveRewindState(saveDir, romPath, hist, romChecksum); err != nil {
			logger.Logf("rewind", "save-state not persisted: %v", err)
		}
	}
	cfg.SetComponent("ui", "transition", cmd.Transition())
	if cfgPath != "" {
		_ = cfg.Save(cfgPath)
	} else {
		_ = cfg.SaveDefault()
	}
	return 0, loop.FrameCounter()
}

func historyBudget(cfg *config.Config) int {
	if v, ok := cfg.Component("rewind", "budget_bytes"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultHistoryBudget
}
