package command

import (
	"sort"
	"strings"

	"github.com/e9kdbg/e9kdbg/internal/curated"
	"github.com/e9kdbg/e9kdbg/internal/dwarfinfo"
	"github.com/e9kdbg/e9kdbg/internal/statehistory"
	"github.com/e9kdbg/e9kdbg/internal/watchtrain"
)

type handlerFunc func(e *Engine, tk *Tokens) (string, error)
type completerFunc func(e *Engine, tk *Tokens, prefix string) []string

type commandSpec struct {
	name      string
	short     string
	grammar   string
	notes     string
	handler   handlerFunc
	completer completerFunc
}

// Engine is the command dispatcher: a flat table of long/short command
// names, each with a handler and an optional completer, driving the host
// bridge, watch/protect/train controller, state-history ring and debug-info
// index.
type Engine struct {
	core CoreBridge
	wt   *watchtrain.Controller
	hist *statehistory.Ring
	idx  *dwarfinfo.Index
	loop LoopControl
	bpSink BreakpointSink
	profiler Profiler

	elfPath    string
	transition string

	console []string

	pendingWrites []*pendingWrite

	commands []commandSpec
	byName   map[string]*commandSpec
}

// New creates an Engine over core (the debug bridge) and wt (the
// watch/protect/train controller). idx, hist and loop may be wired later
// via the Set* methods as they become available (e.g. once a ROM and its
// ELF are loaded).
func New(core CoreBridge, wt *watchtrain.Controller) *Engine {
	e := &Engine{core: core, wt: wt, transition: "fade"}
	e.commands = commandTable()
	e.byName = make(map[string]*commandSpec, len(e.commands)*2)
	for i := range e.commands {
		c := &e.commands[i]
		e.byName[c.name] = c
		if c.short != "" {
			e.byName[c.short] = c
		}
	}
	return e
}

// SetCoreBridge rebinds the engine's core, e.g. once the run loop (which
// wraps breakpoint-suppression around stepping) is constructed after the
// engine itself.
func (e *Engine) SetCoreBridge(core CoreBridge)       { e.core = core }
func (e *Engine) SetIndex(idx *dwarfinfo.Index)       { e.idx = idx }
func (e *Engine) SetHistory(h *statehistory.Ring)     { e.hist = h }
func (e *Engine) SetLoopControl(l LoopControl)        { e.loop = l }
func (e *Engine) SetBreakpointSink(s BreakpointSink)  { e.bpSink = s }
func (e *Engine) SetELFPath(path string)              { e.elfPath = path }
func (e *Engine) SetProfiler(p Profiler)              { e.profiler = p }

// Transition returns the current cosmetic transition mode; SetTransition
// restores one loaded from config.
func (e *Engine) Transition() string       { return e.transition }
func (e *Engine) SetTransition(mode string) {
	if mode != "" {
		e.transition = mode
	}
}

// Console returns the retained console lines, oldest first.
func (e *Engine) Console() []string { return e.console }

// AppendConsoleLine appends a single line to the console buffer from
// outside Dispatch — used by the run loop to surface drained core
// debug-text lines and watchbreak notifications.
func (e *Engine) AppendConsoleLine(line string) { e.appendConsole(line) }

func (e *Engine) appendConsole(text string) {
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		e.console = append(e.console, line)
	}
}

// Dispatch tokenizes and runs one command line. Command names are matched
// case-insensitively; an empty line is a no-op.
func (e *Engine) Dispatch(line string) (string, error) {
	tk := Tokenise(line)
	name, ok := tk.Get()
	if !ok {
		return "", nil
	}
	cmd, ok := e.byName[strings.ToLower(name)]
	if !ok {
		return "", curated.Errorf(curated.ParseError, name, "unknown command")
	}
	out, err := cmd.handler(e, tk)
	if err != nil {
		return "", err
	}
	e.appendConsole(out)
	return out, nil
}

// Complete implements `complete(line, cursor) -> (items, prefix_pos)`:
// inside the command word it completes command names, otherwise it
// delegates to the resolved command's completer.
func (e *Engine) Complete(line string, cursor int) ([]string, int) {
	if cursor > len(line) {
		cursor = len(line)
	}
	head := line[:cursor]
	fields := strings.Fields(head)

	firstEnd := len(line)
	if sp := strings.IndexByte(line, ' '); sp >= 0 {
		firstEnd = sp
	}
	if len(fields) <= 1 && cursor <= firstEnd {
		prefix := strings.ToLower(head)
		return e.completeNames(prefix), 0
	}

	name := strings.ToLower(fields[0])
	cmd, ok := e.byName[name]
	if !ok || cmd.completer == nil {
		return nil, cursor
	}

	lastStart := cursor
	for lastStart > 0 && !isSpace(line[lastStart-1]) {
		lastStart--
	}
	prefix := line[lastStart:cursor]

	tk := Tokenise(line[:cursor])
	tk.Get() // consume the command name itself
	return cmd.completer(e, tk, prefix), lastStart
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' }

func (e *Engine) completeNames(prefix string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range e.commands {
		for _, n := range []string{c.name, c.short} {
			if n == "" || !strings.HasPrefix(n, prefix) || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Help renders either the full command table or one command's grammar and
// notes.
func (e *Engine) Help(name string) string {
	if name == "" {
		var sb strings.Builder
		for _, c := range e.commands {
			sb.WriteString(c.name)
			if c.short != "" {
				sb.WriteString(" (")
				sb.WriteString(c.short)
				sb.WriteString(")")
			}
			sb.WriteString(": ")
			sb.WriteString(c.grammar)
			sb.WriteString("\n")
		}
		return strings.TrimRight(sb.String(), "\n")
	}
	cmd, ok := e.byName[strings.ToLower(name)]
	if !ok {
		return "no such command: " + name
	}
	if cmd.notes == "" {
		return cmd.grammar
	}
	return cmd.grammar + " -- " + cmd.notes
}
