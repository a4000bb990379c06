package command

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/e9kdbg/e9kdbg/internal/bridge"
	"github.com/e9kdbg/e9kdbg/internal/curated"
	"github.com/e9kdbg/e9kdbg/internal/expr"
)

// commandTable builds the fixed dispatch table.
func commandTable() []commandSpec {
	return []commandSpec{
		{name: "help", short: "h", grammar: "help [cmd]", notes: "Lists or describes.", handler: cmdHelp},
		{name: "break", short: "b", grammar: "break <addr|symbol|file:line>",
			notes:     "Resolves file:line, then symbol, then hex address; installs a breakpoint.",
			handler:   cmdBreak, completer: completeSymbols},
		{name: "continue", short: "c", grammar: "continue", notes: "Resumes the core.", handler: cmdContinue},
		{name: "step", short: "s", grammar: "step", notes: "Source-line step.", handler: cmdStep},
		{name: "stepi", short: "i", grammar: "stepi", notes: "Instruction step.", handler: cmdStepi},
		{name: "next", short: "n", grammar: "next", notes: "Step over.", handler: cmdNext},
		{name: "write", grammar: "write <dest> <hex>",
			notes:     "Width inferred from hex-digit count (1/2/4 bytes).",
			handler:   cmdWrite, completer: completeSymbols},
		{name: "print", short: "p", grammar: "print <expr>", handler: cmdPrint, completer: completePrint},
		{name: "watch", short: "wa",
			grammar: "watch [addr] [r|w|rw] [size=N] [mask=0x..] [val=0x..] [old=0x..] [diff=0x..] | watch del <idx> | watch clear",
			handler: cmdWatch},
		{name: "protect",
			grammar: "protect <addr> block|set=0x.. [size=N] | protect del <addr> [size=N] | protect clear",
			handler: cmdProtect},
		{name: "train", grammar: "train <from> <to> [size=N] | train ignore | train clear", handler: cmdTrain},
		{name: "loop", grammar: "loop <from> <to> | loop | loop clear", handler: cmdLoop},
		{name: "diff", grammar: "diff <fromFrame> <toFrame> [size=8|16|32]", handler: cmdDiff},
		{name: "cls", grammar: "cls", notes: "Clears the console buffer.", handler: cmdCls},
		{name: "transition", grammar: "transition <mode>", notes: "Cosmetic; persisted in config.",
			handler: cmdTransition, completer: completeTransition},
		{name: "profile", grammar: "profile | profile clear | profile top <n>",
			notes:   "Per-checkpoint call counts and cycle deltas.",
			handler: cmdProfile},
		{name: "dumpgraph", grammar: "dumpgraph <path>",
			notes:   "Writes the loaded type graph as Graphviz dot.",
			handler: cmdDumpgraph},
	}
}

func cmdHelp(e *Engine, tk *Tokens) (string, error) {
	name, _ := tk.Get()
	return e.Help(name), nil
}

func cmdBreak(e *Engine, tk *Tokens) (string, error) {
	target, ok := tk.Get()
	if !ok {
		return "", curated.Errorf(curated.ParseError, "break", "missing target")
	}
	addr, err := e.resolveBreakTarget(target)
	if err != nil {
		return "", err
	}
	if e.bpSink != nil {
		err = e.bpSink.AddBreakpoint(addr)
	} else {
		err = e.core.AddBreakpoint(addr)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("breakpoint set at 0x%06X", addr), nil
}

func cmdContinue(e *Engine, tk *Tokens) (string, error) {
	if err := e.core.Resume(); err != nil {
		return "", err
	}
	return "continuing", nil
}

func cmdStep(e *Engine, tk *Tokens) (string, error) {
	if err := e.core.StepLine(); err != nil {
		return "", err
	}
	return "", nil
}

func cmdStepi(e *Engine, tk *Tokens) (string, error) {
	if err := e.core.StepInstr(); err != nil {
		return "", err
	}
	return "", nil
}

func cmdNext(e *Engine, tk *Tokens) (string, error) {
	if err := e.core.StepNext(); err != nil {
		return "", err
	}
	return "", nil
}

func cmdWrite(e *Engine, tk *Tokens) (string, error) {
	dest, ok := tk.Get()
	if !ok {
		return "", curated.Errorf(curated.ParseError, "write", "missing destination")
	}
	hexVal, ok := tk.Get()
	if !ok {
		return "", curated.Errorf(curated.ParseError, "write", "missing value")
	}
	addr, err := e.resolveWriteDest(dest)
	if err != nil {
		return "", err
	}
	val, err := parseHexAddr(hexVal)
	if err != nil {
		return "", err
	}
	size := widthFromHexDigits(hexVal)
	if err := e.core.WriteMemory(addr, val, size); err != nil {
		return "", err
	}

	if kw, ok := tk.Peek(); ok && strings.EqualFold(kw, "over") {
		tk.Get()
		nTok, ok := tk.Get()
		if !ok {
			return "", curated.Errorf(curated.ParseError, "write", "missing frame count after 'over'")
		}
		n, err := strconv.Atoi(nTok)
		if err != nil || n < 1 {
			return "", curated.Errorf(curated.ParseError, nTok, "frame count must be a positive integer")
		}
		if n > 1 {
			e.pendingWrites = append(e.pendingWrites, &pendingWrite{addr: addr, value: val, size: size, framesLeft: n - 1})
		}
		return fmt.Sprintf("wrote %d byte(s) to 0x%06X, repeating over %d more frame(s)", size, addr, n-1), nil
	}

	return fmt.Sprintf("wrote %d byte(s) to 0x%06X", size, addr), nil
}

// pendingWrite is a `write ... over <n>` entry: the initial write already
// happened, so only framesLeft repeats remain, one per advanced frame.
type pendingWrite struct {
	addr       uint32
	value      uint32
	size       int
	framesLeft int
}

// ApplyPendingWrites re-issues every outstanding `write ... over <n>` write,
// decrementing each one's remaining frame count and dropping it once
// exhausted. Called by the run loop once per advanced frame.
func (e *Engine) ApplyPendingWrites() {
	if len(e.pendingWrites) == 0 {
		return
	}
	kept := e.pendingWrites[:0]
	for _, w := range e.pendingWrites {
		e.core.WriteMemory(w.addr, w.value, w.size)
		w.framesLeft--
		if w.framesLeft > 0 {
			kept = append(kept, w)
		}
	}
	e.pendingWrites = kept
}

func cmdPrint(e *Engine, tk *Tokens) (string, error) {
	text := tk.Remainder()
	if text == "" {
		return "", curated.Errorf(curated.ParseError, "print", "missing expression")
	}
	env := &exprEnv{core: e.core, idx: e.idx}
	return expr.EvalAndPrint(text, env)
}

func cmdCls(e *Engine, tk *Tokens) (string, error) {
	e.console = nil
	return "", nil
}

func cmdTransition(e *Engine, tk *Tokens) (string, error) {
	mode, ok := tk.Get()
	if !ok {
		return e.transition, nil
	}
	e.transition = mode
	return "", nil
}

var transitionModes = []string{"none", "fade", "wipe", "crossfade"}

func completeTransition(e *Engine, tk *Tokens, prefix string) []string {
	var out []string
	for _, m := range transitionModes {
		if strings.HasPrefix(m, prefix) {
			out = append(out, m)
		}
	}
	return out
}

// completePrint completes a print expression: member names when the prefix
// ends in a '.' or '->' chain, otherwise the union of variable, symbol and
// register names.
func completePrint(e *Engine, tk *Tokens, prefix string) []string {
	env := &exprEnv{core: e.core, idx: e.idx}
	return expr.CompleteEval(prefix, env, env)
}

func completeSymbols(e *Engine, tk *Tokens, prefix string) []string {
	if e.idx == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	add := func(n string) {
		if n == "" || !strings.HasPrefix(n, prefix) || seen[n] {
			return
		}
		seen[n] = true
		out = append(out, n)
	}
	for _, g := range e.idx.Globals() {
		add(g.Name)
	}
	for _, s := range e.idx.Symbols() {
		add(s.Name)
	}
	return out
}

// parseWatchArgs parses the keyword/key=value tokens of `watch`, composing
// the resulting op_mask from whichever keywords were given.
func parseWatchArgs(tk *Tokens) (bridge.Watchpoint, error) {
	w := bridge.Watchpoint{Size: 1}
	haveRW := false
	for {
		tok, ok := tk.Get()
		if !ok {
			break
		}
		switch strings.ToLower(tok) {
		case "r":
			w.OpMask |= bridge.OpRead
			haveRW = true
		case "w":
			w.OpMask |= bridge.OpWrite
			haveRW = true
		case "rw":
			w.OpMask |= bridge.OpRead | bridge.OpWrite
			haveRW = true
		default:
			k, v, ok := splitKV(tok)
			if !ok {
				return w, curated.Errorf(curated.ParseError, tok, "unrecognized watch argument")
			}
			n, err := strconv.ParseUint(strings.TrimPrefix(v, "0x"), 16, 32)
			if err != nil {
				if n2, err2 := strconv.ParseUint(v, 10, 32); err2 == nil {
					n, err = n2, nil
				} else {
					return w, curated.Errorf(curated.ParseError, tok, "invalid value")
				}
			}
			switch k {
			case "size":
				w.Size = uint32(n)
				w.OpMask |= bridge.OpAccessSize
			case "mask":
				w.AddrMask = uint32(n)
				w.OpMask |= bridge.OpAddrCompareMask
			case "val":
				w.Value = uint32(n)
				w.OpMask |= bridge.OpValueEq
			case "old":
				w.OldValue = uint32(n)
				w.OpMask |= bridge.OpOldValueEq
			case "diff":
				w.Diff = uint32(n)
				w.OpMask |= bridge.OpValueNeqOld
			default:
				return w, curated.Errorf(curated.ParseError, tok, "unrecognized watch argument")
			}
		}
	}
	if !haveRW {
		w.OpMask |= bridge.OpRead | bridge.OpWrite
	}
	return w, nil
}

func splitKV(tok string) (key, value string, ok bool) {
	i := strings.IndexByte(tok, '=')
	if i < 0 {
		return "", "", false
	}
	return strings.ToLower(tok[:i]), tok[i+1:], true
}

func cmdWatch(e *Engine, tk *Tokens) (string, error) {
	first, ok := tk.Peek()
	if ok && strings.EqualFold(first, "clear") {
		tk.Get()
		if err := e.wt.ResetWatch(); err != nil {
			return "", err
		}
		return "watchpoints cleared", nil
	}
	if ok && strings.EqualFold(first, "del") {
		tk.Get()
		idxTok, ok := tk.Get()
		if !ok {
			return "", curated.Errorf(curated.ParseError, "watch del", "missing index")
		}
		idx, err := strconv.Atoi(idxTok)
		if err != nil {
			return "", curated.Errorf(curated.ParseError, idxTok, "not a valid index")
		}
		if err := e.wt.RemoveWatch(idx); err != nil {
			return "", err
		}
		return fmt.Sprintf("watchpoint %d removed", idx), nil
	}

	if !ok {
		wps, err := e.core.ReadWatchpoints()
		if err != nil {
			return "", err
		}
		return formatWatchpoints(wps), nil
	}

	addrTok, _ := tk.Get()
	addr, err := parseHexAddr(addrTok)
	if err != nil {
		return "", err
	}
	w, err := parseWatchArgs(tk)
	if err != nil {
		return "", err
	}
	idx, err := e.wt.Watch(addr, w.OpMask, w.Size)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("watchpoint %d installed at 0x%06X", idx, addr), nil
}

func formatWatchpoints(wps []bridge.Watchpoint) string {
	if len(wps) == 0 {
		return "no watchpoints"
	}
	var sb strings.Builder
	for i, w := range wps {
		fmt.Fprintf(&sb, "%d: addr=0x%06X size=%d mask=0x%X\n", i, w.Addr, w.Size, uint32(w.OpMask))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func cmdProtect(e *Engine, tk *Tokens) (string, error) {
	first, ok := tk.Peek()
	if ok && strings.EqualFold(first, "clear") {
		tk.Get()
		if err := e.wt.ResetProtect(); err != nil {
			return "", err
		}
		return "protects cleared", nil
	}
	if ok && strings.EqualFold(first, "del") {
		tk.Get()
		addrTok, ok := tk.Get()
		if !ok {
			return "", curated.Errorf(curated.ParseError, "protect del", "missing address")
		}
		addr, err := parseHexAddr(addrTok)
		if err != nil {
			return "", err
		}
		idx, err := e.findProtectIndex(addr)
		if err != nil {
			return "", err
		}
		if err := e.wt.RemoveProtect(idx); err != nil {
			return "", err
		}
		return fmt.Sprintf("protect at 0x%06X removed", addr), nil
	}

	addrTok, ok := tk.Get()
	if !ok {
		return "", curated.Errorf(curated.ParseError, "protect", "missing address")
	}
	addr, err := parseHexAddr(addrTok)
	if err != nil {
		return "", err
	}
	modeTok, ok := tk.Get()
	if !ok {
		return "", curated.Errorf(curated.ParseError, "protect", "missing block|set=0x..")
	}
	mode := bridge.ProtectBlock
	var value uint32
	if strings.EqualFold(modeTok, "block") {
		mode = bridge.ProtectBlock
	} else if k, v, ok := splitKV(modeTok); ok && k == "set" {
		mode = bridge.ProtectSet
		n, err := strconv.ParseUint(strings.TrimPrefix(v, "0x"), 16, 32)
		if err != nil {
			return "", curated.Errorf(curated.ParseError, modeTok, "invalid set value")
		}
		value = uint32(n)
	} else {
		return "", curated.Errorf(curated.ParseError, modeTok, "expected block or set=0x..")
	}

	sizeBits := 8
	for {
		tok, ok := tk.Get()
		if !ok {
			break
		}
		k, v, ok := splitKV(tok)
		if !ok || k != "size" {
			return "", curated.Errorf(curated.ParseError, tok, "unrecognized protect argument")
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", curated.Errorf(curated.ParseError, tok, "invalid size")
		}
		sizeBits = n
	}

	idx, err := e.wt.Protect(addr, sizeBits, mode, value, 0)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("protect %d installed at 0x%06X", idx, addr), nil
}

func (e *Engine) findProtectIndex(addr uint32) (int, error) {
	ps, err := e.core.ReadProtects()
	if err != nil {
		return 0, err
	}
	for i, p := range ps {
		if p.Addr == addr&0xffffff {
			return i, nil
		}
	}
	return 0, curated.Errorf(curated.ResolutionError, "protect", "no protect entry at that address")
}

func cmdTrain(e *Engine, tk *Tokens) (string, error) {
	first, ok := tk.Peek()
	if ok && strings.EqualFold(first, "clear") {
		tk.Get()
		e.wt.TrainClear()
		return "training ignore list cleared", nil
	}
	if ok && strings.EqualFold(first, "ignore") {
		tk.Get()
		if err := e.wt.TrainIgnoreLast(); err != nil {
			return "", err
		}
		return "address added to training ignore list", nil
	}

	fromTok, ok := tk.Get()
	if !ok {
		return "", curated.Errorf(curated.ParseError, "train", "missing <from>")
	}
	toTok, ok := tk.Get()
	if !ok {
		return "", curated.Errorf(curated.ParseError, "train", "missing <to>")
	}
	from, err := parseHexAddr(fromTok)
	if err != nil {
		return "", err
	}
	to, err := parseHexAddr(toTok)
	if err != nil {
		return "", err
	}
	size := uint32(1)
	if sizeTok, ok := tk.Get(); ok {
		k, v, ok := splitKV(sizeTok)
		if !ok || k != "size" {
			return "", curated.Errorf(curated.ParseError, sizeTok, "expected size=N")
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", curated.Errorf(curated.ParseError, sizeTok, "invalid size")
		}
		size = uint32(n)
	}
	if err := e.wt.Train(from, to, size); err != nil {
		return "", err
	}
	return "training watchpoint installed", nil
}

func cmdLoop(e *Engine, tk *Tokens) (string, error) {
	if e.loop == nil {
		return "", curated.Errorf(curated.Unsupported, "loop control not wired")
	}
	first, ok := tk.Peek()
	if ok && strings.EqualFold(first, "clear") {
		tk.Get()
		e.loop.SetLoopRange(0, 0, false)
		return "loop range cleared", nil
	}
	if !ok {
		from, to, enabled := e.loop.LoopRange()
		if !enabled {
			return "no loop range set", nil
		}
		return fmt.Sprintf("looping [%d, %d)", from, to), nil
	}
	fromTok, _ := tk.Get()
	toTok, ok := tk.Get()
	if !ok {
		return "", curated.Errorf(curated.ParseError, "loop", "missing <to>")
	}
	from, err := strconv.ParseUint(fromTok, 10, 64)
	if err != nil {
		return "", curated.Errorf(curated.ParseError, fromTok, "not a valid frame number")
	}
	to, err := strconv.ParseUint(toTok, 10, 64)
	if err != nil {
		return "", curated.Errorf(curated.ParseError, toTok, "not a valid frame number")
	}
	e.loop.SetLoopRange(from, to, true)
	return fmt.Sprintf("looping [%d, %d)", from, to), nil
}

const diffLineCap = 64

func cmdDiff(e *Engine, tk *Tokens) (string, error) {
	if e.hist == nil {
		return "", curated.Errorf(curated.Unsupported, "no state history wired")
	}
	fromTok, ok := tk.Get()
	if !ok {
		return "", curated.Errorf(curated.ParseError, "diff", "missing <fromFrame>")
	}
	toTok, ok := tk.Get()
	if !ok {
		return "", curated.Errorf(curated.ParseError, "diff", "missing <toFrame>")
	}
	from, err := strconv.ParseUint(fromTok, 10, 64)
	if err != nil {
		return "", curated.Errorf(curated.ParseError, fromTok, "not a valid frame number")
	}
	to, err := strconv.ParseUint(toTok, 10, 64)
	if err != nil {
		return "", curated.Errorf(curated.ParseError, toTok, "not a valid frame number")
	}

	wordBits := 32
	if sizeTok, ok := tk.Get(); ok {
		k, v, ok := splitKV(sizeTok)
		if !ok || k != "size" {
			return "", curated.Errorf(curated.ParseError, sizeTok, "expected size=8|16|32")
		}
		n, err := strconv.Atoi(v)
		if err != nil || (n != 8 && n != 16 && n != 32) {
			return "", curated.Errorf(curated.ParseError, sizeTok, "size must be 8, 16 or 32")
		}
		wordBits = n
	}

	saved := e.hist.CurrentFrameNo()
	a, err := e.hist.RestoreFrameNo(from)
	if err != nil {
		return "", err
	}
	b, err := e.hist.RestoreFrameNo(to)
	if err != nil {
		return "", err
	}
	e.hist.RestoreFrameNo(saved)

	return formatDiff(a, b, wordBits), nil
}

func formatDiff(a, b []byte, wordBits int) string {
	step := wordBits / 8
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sb strings.Builder
	lines := 0
	for addr := 0; addr+step <= n; addr += step {
		var av, bv uint32
		for i := 0; i < step; i++ {
			av |= uint32(a[addr+i]) << (8 * uint(i))
			bv |= uint32(b[addr+i]) << (8 * uint(i))
		}
		if av == bv {
			continue
		}
		if lines >= diffLineCap {
			sb.WriteString("... truncated\n")
			break
		}
		fmt.Fprintf(&sb, "0x%06X: 0x%0*X -> 0x%0*X  delta=%+d\n",
			addr, step*2, av, step*2, bv, int64(bv)-int64(av))
		lines++
	}
	if lines == 0 {
		return "no differences"
	}
	return strings.TrimRight(sb.String(), "\n")
}

func cmdProfile(e *Engine, tk *Tokens) (string, error) {
	if e.profiler == nil {
		return "", curated.Errorf(curated.Unsupported, "profiler not wired")
	}
	first, ok := tk.Peek()
	if ok && strings.EqualFold(first, "clear") {
		tk.Get()
		e.profiler.Clear()
		return "profile counters cleared", nil
	}
	n := 10
	if ok && strings.EqualFold(first, "top") {
		tk.Get()
		nTok, ok := tk.Get()
		if ok {
			v, err := strconv.Atoi(nTok)
			if err != nil || v < 1 {
				return "", curated.Errorf(curated.ParseError, nTok, "count must be a positive integer")
			}
			n = v
		}
	}
	stats := e.profiler.Top(n)
	if len(stats) == 0 {
		return "no checkpoints recorded", nil
	}
	var sb strings.Builder
	for _, s := range stats {
		fmt.Fprintf(&sb, "0x%06X: calls=%d cycles=%d\n", s.Addr, s.Calls, s.Cycles)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func cmdDumpgraph(e *Engine, tk *Tokens) (string, error) {
	if e.idx == nil {
		return "", curated.Errorf(curated.Unsupported, "no debug-info index wired")
	}
	path, ok := tk.Get()
	if !ok {
		return "", curated.Errorf(curated.ParseError, "dumpgraph", "missing <path>")
	}
	f, err := os.Create(path)
	if err != nil {
		return "", curated.Errorf(curated.ParseError, path, err.Error())
	}
	defer f.Close()
	if err := e.idx.DumpGraph(f); err != nil {
		return "", err
	}
	return fmt.Sprintf("type graph written to %s", path), nil
}
