package command

import (
	"fmt"

	"github.com/e9kdbg/e9kdbg/internal/curated"
	"github.com/e9kdbg/e9kdbg/internal/dwarfinfo"
	"github.com/e9kdbg/e9kdbg/internal/expr"
)

// exprEnv adapts the engine's core bridge and debug-info index to
// expr.Env, resolving DWARF register numbers to named registers
// (D0..D7 -> 0..7, A0..A7 -> 8..15).
type exprEnv struct {
	core CoreBridge
	idx  *dwarfinfo.Index
}

func dwarfRegName(reg int) (string, bool) {
	switch {
	case reg >= 0 && reg <= 7:
		return fmt.Sprintf("D%d", reg), true
	case reg >= 8 && reg <= 15:
		return fmt.Sprintf("A%d", reg-8), true
	case reg == 16:
		return "PC", true
	case reg == 17:
		return "SR", true
	default:
		return "", false
	}
}

func (e *exprEnv) regValue(reg int) (uint32, bool) {
	name, ok := dwarfRegName(reg)
	if !ok || e.core == nil {
		return 0, false
	}
	regs, err := e.core.ReadRegs()
	if err != nil || regs == nil {
		return 0, false
	}
	return regs.Get(name)
}

func (e *exprEnv) Global(name string) (dwarfinfo.Variable, bool) {
	if e.idx == nil {
		return dwarfinfo.Variable{}, false
	}
	for _, g := range e.idx.Globals() {
		if g.Name == name {
			return g, true
		}
	}
	return dwarfinfo.Variable{}, false
}

func (e *exprEnv) Symbol(name string) (dwarfinfo.Symbol, bool) {
	if e.idx == nil {
		return dwarfinfo.Symbol{}, false
	}
	return e.idx.Symbol(name)
}

func (e *exprEnv) Register(name string) (uint32, bool) {
	if e.core == nil {
		return 0, false
	}
	regs, err := e.core.ReadRegs()
	if err != nil || regs == nil {
		return 0, false
	}
	return regs.Get(name)
}

func (e *exprEnv) Local(name string, pc uint32) (dwarfinfo.Local, bool) {
	if e.idx == nil {
		return dwarfinfo.Local{}, false
	}
	l, err := e.idx.ResolveLocal(name, pc, e.regValue)
	if err != nil {
		return dwarfinfo.Local{}, false
	}
	return l, true
}

func (e *exprEnv) PC() uint32 {
	v, _ := e.Register("PC")
	return v
}

func (e *exprEnv) ResolveType(ti uint32) (*dwarfinfo.Type, bool) {
	if e.idx == nil {
		return nil, false
	}
	return e.idx.ResolveType(ti)
}

func (e *exprEnv) Deref(ti uint32) (uint32, *dwarfinfo.Type, bool) {
	if e.idx == nil {
		return ti, nil, false
	}
	return e.idx.Deref(ti)
}

func (e *exprEnv) ReadMemory(addr uint32, size int) (uint64, error) {
	if e.core == nil {
		return 0, curated.Errorf(curated.MemoryError, "no core loaded")
	}
	var v uint64
	for i := 0; i < size; i++ {
		b, err := e.core.ReadMemory(addr + uint32(i))
		if err != nil {
			return 0, curated.Errorf(curated.MemoryError, err)
		}
		v |= uint64(b) << (8 * uint(i))
	}
	return v, nil
}

// GlobalNames, SymbolNames and RegisterNames make exprEnv an
// expr.NameSource for the print completer.
func (e *exprEnv) GlobalNames() []string {
	if e.idx == nil {
		return nil
	}
	gs := e.idx.Globals()
	out := make([]string, 0, len(gs))
	for _, g := range gs {
		out = append(out, g.Name)
	}
	return out
}

func (e *exprEnv) SymbolNames() []string {
	if e.idx == nil {
		return nil
	}
	ss := e.idx.Symbols()
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.Name)
	}
	return out
}

func (e *exprEnv) RegisterNames() []string {
	if e.core == nil {
		return nil
	}
	regs, err := e.core.ReadRegs()
	if err != nil || regs == nil {
		return nil
	}
	return regs.Names()
}

var _ expr.Env = (*exprEnv)(nil)
var _ expr.NameSource = (*exprEnv)(nil)
