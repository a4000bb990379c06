package dwarfinfo

import (
	"os/exec"

	"github.com/e9kdbg/e9kdbg/internal/curated"
)

// Key identifies a loaded index's inputs: keyed by (elf_path, text_base,
// data_base, bss_base).
type Key struct {
	ELFPath  string
	TextBase uint32
	DataBase uint32
	BSSBase  uint32
}

// Index is the debug-info index: DIE tree, symbol table, globals/statics,
// CFI row tables and type graph for one loaded ELF.
type Index struct {
	key Key

	dies     map[uint32]*DIE
	roots    []uint32 // top-level DIE offsets (depth 0, compile units)
	symbols  *symbolTable
	globals  []Variable
	fdes     []FDE
	types    []*Type
	typeByDIE map[uint32]uint32 // DIE offset -> index into types

	preferDataForSTSYM bool
}

// Loaded reports whether idx still matches key, letting a cached index
// detect staleness.
func (idx *Index) Loaded(key Key) bool {
	return idx != nil && idx.key == key
}

// Load builds a fresh Index for key, idempotently: symbols, DWARF info,
// CFI, a STABS fallback when DWARF produced nothing, then the type graph.
func Load(key Key, preferDataForSTSYM bool) (*Index, error) {
	idx := &Index{
		key:                key,
		dies:               make(map[uint32]*DIE),
		symbols:            newSymbolTable(),
		typeByDIE:          make(map[uint32]uint32),
		preferDataForSTSYM: preferDataForSTSYM,
	}

	symOut, err := runTool("objdump", "--syms", key.ELFPath)
	if err != nil {
		return nil, curated.Errorf(curated.LoadFailure, err)
	}
	parseSymbols(idx, symOut)

	dwarfOut, err := runTool("readelf", "--debug-dump=info", key.ELFPath)
	if err != nil {
		return nil, curated.Errorf(curated.LoadFailure, err)
	}
	parseDwarfInfo(idx, dwarfOut)

	cfiOut, _ := runTool("readelf", "--debug-dump=frames", key.ELFPath)
	parseCFI(idx, cfiOut)

	if len(idx.dies) == 0 {
		stabsOut, err := runTool("objdump", "-G", key.ELFPath)
		if err != nil {
			return nil, curated.Errorf(curated.LoadFailure, err)
		}
		parseSTABS(idx, stabsOut, key, preferDataForSTSYM)
	} else {
		idx.collectGlobalsFromDIEs()
	}

	resolveTypeGraph(idx)

	return idx, nil
}

func runTool(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Symbol looks up name in the symbol table.
func (idx *Index) Symbol(name string) (Symbol, bool) {
	return idx.symbols.Lookup(name)
}

// Symbols returns every known symbol.
func (idx *Index) Symbols() []Symbol {
	return idx.symbols.All()
}

// Globals returns the distilled globals/statics list.
func (idx *Index) Globals() []Variable {
	return idx.globals
}

// DIE returns the DIE at offset, if present.
func (idx *Index) DIE(offset uint32) (*DIE, bool) {
	d, ok := idx.dies[offset]
	return d, ok
}

// FindScopeForPC picks the deepest subprogram/lexical_block/
// inlined_subroutine whose range contains pc, ties broken by smaller range.
func (idx *Index) FindScopeForPC(pc uint32) (*DIE, bool) {
	var best *DIE
	var bestSize uint32
	for _, d := range idx.dies {
		if d.Tag != TagSubprogram && d.Tag != TagLexicalBlock && d.Tag != TagInlinedSubroutine {
			continue
		}
		if !d.rangeContains(pc) {
			continue
		}
		size := d.rangeSize()
		if best == nil || d.Depth > best.Depth || (d.Depth == best.Depth && size < bestSize) {
			best = d
			bestSize = size
		}
	}
	return best, best != nil
}

// ComputeCFA resolves the canonical frame address at pc by linear search
// over FDEs.
func (idx *Index) ComputeCFA(pc uint32, regValue func(reg int) (uint32, bool)) (uint32, error) {
	for _, fde := range idx.fdes {
		if pc < fde.PCStart || pc >= fde.PCEnd {
			continue
		}
		reg, offset := fde.DefaultCFAReg, fde.DefaultCFAOffset
		for _, row := range fde.Rows {
			if row.Loc <= pc {
				reg, offset = row.CFAReg, row.CFAOffset
			} else {
				break
			}
		}
		base, ok := regValue(reg)
		if !ok {
			return 0, curated.Errorf(curated.ResolutionError, "dwarfinfo", "cfa register unavailable")
		}
		return uint32(int64(base) + offset), nil
	}
	return 0, curated.Errorf(curated.ResolutionError, "dwarfinfo", "no FDE covers pc")
}
