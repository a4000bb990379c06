package command

import (
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/e9kdbg/e9kdbg/internal/curated"
)

var fileLineRe = regexp.MustCompile(`^(\S.*):(\d+)$`)
var addrLineRe = regexp.MustCompile(`^\s*([0-9a-fA-F]+):`)

// resolveBreakTarget resolves a break target in order: file:line via
// `objdump -l -d`, then symbol via the loaded debug-info index's symbol
// table (itself built from `objdump --syms`), then a bare hex address.
func (e *Engine) resolveBreakTarget(target string) (uint32, error) {
	if strings.Contains(target, ":") && e.elfPath != "" {
		if addr, err := resolveFileLine(e.elfPath, target); err == nil {
			return addr, nil
		}
	}
	if e.idx != nil {
		if sym, ok := e.idx.Symbol(target); ok {
			return sym.Addr, nil
		}
	}
	return parseHexAddr(target)
}

// resolveWriteDest resolves a write destination: a symbol name (via the
// debug-info index) or a hex address.
func (e *Engine) resolveWriteDest(target string) (uint32, error) {
	if e.idx != nil {
		if sym, ok := e.idx.Symbol(target); ok {
			return sym.Addr, nil
		}
	}
	return parseHexAddr(target)
}

func parseHexAddr(s string) (uint32, error) {
	t := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(t, 16, 32)
	if err != nil {
		return 0, curated.Errorf(curated.ParseError, s, "not a valid hex address")
	}
	return uint32(v), nil
}

// widthFromHexDigits infers a write's value width from its hex-digit count:
// 1, 2 or 4 bytes.
func widthFromHexDigits(hex string) int {
	t := strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")
	n := len(t)
	switch {
	case n <= 2:
		return 1
	case n <= 4:
		return 2
	default:
		return 4
	}
}

// resolveFileLine scans `objdump -l -d <elfPath>` for the first instruction
// address whose preceding source-line annotation matches target (matched
// by basename:line, since objdump emits the compiler's original path).
func resolveFileLine(elfPath, target string) (uint32, error) {
	out, err := exec.Command("objdump", "-l", "-d", elfPath).Output()
	if err != nil {
		return 0, curated.Errorf(curated.LoadFailure, err)
	}

	reqBase := target
	if i := strings.LastIndex(target, "/"); i >= 0 {
		reqBase = target[i+1:]
	}

	pending := ""
	for _, line := range strings.Split(string(out), "\n") {
		trimmed := strings.TrimSpace(line)
		if m := fileLineRe.FindStringSubmatch(trimmed); m != nil && !strings.Contains(m[1], " ") {
			pending = filepath.Base(m[1]) + ":" + m[2]
			continue
		}
		if pending == "" {
			continue
		}
		if m := addrLineRe.FindStringSubmatch(line); m != nil {
			if pending == reqBase {
				addr, err := strconv.ParseUint(m[1], 16, 32)
				if err == nil {
					return uint32(addr), nil
				}
			}
			pending = ""
		}
	}
	return 0, curated.Errorf(curated.ResolutionError, target, "file:line not found")
}
