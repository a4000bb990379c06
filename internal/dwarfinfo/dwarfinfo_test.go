package dwarfinfo

import "testing"

const sampleDwarfDump = `
 <0><b>: Abbrev Number: 1 (DW_TAG_compile_unit)
    <c>   DW_AT_name        : main.c
 <1><2b>: Abbrev Number: 2 (DW_TAG_base_type)
    <2c>   DW_AT_byte_size   : 4
    <2d>   DW_AT_encoding    : DW_ATE_signed
    <2e>   DW_AT_name        : int
 <1><40>: Abbrev Number: 3 (DW_TAG_pointer_type)
    <41>   DW_AT_byte_size   : 4
    <42>   DW_AT_type        : 0x2b
 <1><50>: Abbrev Number: 4 (DW_TAG_variable)
    <51>   DW_AT_name        : x
    <52>   DW_AT_type        : 0x2b
    <53>   DW_AT_location    : 2 byte block: 3 0  (DW_OP_addr: 1000)
 <1><60>: Abbrev Number: 5 (DW_TAG_variable)
    <61>   DW_AT_name        : p
    <62>   DW_AT_type        : 0x40
    <63>   DW_AT_location    : 2 byte block: 3 0  (DW_OP_addr: 1004)
 <1><70>: Abbrev Number: 6 (DW_TAG_subprogram)
    <71>   DW_AT_name        : main
    <72>   DW_AT_low_pc      : 0x1000
    <73>   DW_AT_high_pc     : 0x40
    <74>   DW_AT_frame_base  : 1 byte block: 9c  (DW_OP_call_frame_cfa)
 <2><80>: Abbrev Number: 7 (DW_TAG_formal_parameter)
    <81>   DW_AT_name        : argc
    <82>   DW_AT_type        : 0x2b
    <83>   DW_AT_location    : 2 byte block: 91 78  (DW_OP_fbreg: -8)
`

const sampleCFIDump = `
Contents of the .debug_frame section:

00000000 0000000000000010 ffffffff CIE
  Version:               1
  Augmentation:          ""
  Code alignment factor: 1
  Data alignment factor: -4
  Return address column: 14

  DW_CFA_def_cfa: r13 ofs 0
  DW_CFA_nop

00000014 0000000000000020 00000000 FDE cie=00000000 pc=00001000..00001040
  DW_CFA_advance_loc: 4 to 00001004
  DW_CFA_def_cfa_offset: 8
  DW_CFA_advance_loc: 8 to 0000100c
  DW_CFA_def_cfa_register: 14
  DW_CFA_nop
`

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	idx := &Index{
		dies:      make(map[uint32]*DIE),
		symbols:   newSymbolTable(),
		typeByDIE: make(map[uint32]uint32),
	}
	parseDwarfInfo(idx, sampleDwarfDump)
	parseCFI(idx, sampleCFIDump)
	idx.collectGlobalsFromDIEs()
	resolveTypeGraph(idx)
	return idx
}

func TestParseDwarfInfoBuildsTree(t *testing.T) {
	idx := buildTestIndex(t)
	d, ok := idx.DIE(0x70)
	if !ok || d.Tag != TagSubprogram || d.Name != "main" {
		t.Fatalf("expected subprogram main at 0x70, got %+v ok=%v", d, ok)
	}
	if d.LowPC != 0x1000 {
		t.Fatalf("low_pc = %#x, want 0x1000", d.LowPC)
	}
	if !d.HighPCIsOffset || d.HighPC != 0x40 {
		t.Fatalf("high_pc offset detection failed: %+v", d)
	}
}

func TestCollectGlobals(t *testing.T) {
	idx := buildTestIndex(t)
	if len(idx.globals) != 2 {
		t.Fatalf("expected 2 globals, got %d: %+v", len(idx.globals), idx.globals)
	}
	names := map[string]uint32{}
	for _, g := range idx.globals {
		names[g.Name] = g.Addr
	}
	if names["x"] != 0x1000 || names["p"] != 0x1004 {
		t.Fatalf("unexpected global addresses: %+v", names)
	}
}

func TestTypeGraphPointerResolvesTarget(t *testing.T) {
	idx := buildTestIndex(t)
	pti, ok := idx.TypeForDIEOffset(0x40)
	if !ok {
		t.Fatal("pointer type not in graph")
	}
	pt, _ := idx.ResolveType(pti)
	if pt.Kind != TypePointer || !pt.HasTarget {
		t.Fatalf("expected resolved pointer, got %+v", pt)
	}
	target, _ := idx.ResolveType(pt.TargetType)
	if target.Kind != TypeBase || target.Name != "int" || target.Encoding != EncSigned {
		t.Fatalf("expected int base type target, got %+v", target)
	}
}

// TestComputeCFAMonotonic exercises the FDE lookup at pcs on either side of
// the test CFI's advance points, checking that each gets the row whose loc
// is the nearest one <= pc.
func TestComputeCFAMonotonic(t *testing.T) {
	idx := buildTestIndex(t)
	regs := func(reg int) (uint32, bool) {
		if reg == 13 {
			return 0x2000, true
		}
		if reg == 14 {
			return 0x2100, true
		}
		return 0, false
	}

	cfaEarly, err := idx.ComputeCFA(0x1001, regs)
	if err != nil {
		t.Fatalf("ComputeCFA(0x1001): %v", err)
	}
	if cfaEarly != 0x2000 {
		t.Fatalf("expected default cfa = r13+0 = 0x2000, got %#x", cfaEarly)
	}

	cfaMid, err := idx.ComputeCFA(0x1005, regs)
	if err != nil {
		t.Fatalf("ComputeCFA(0x1005): %v", err)
	}
	if cfaMid != 0x2008 {
		t.Fatalf("expected cfa = r13+8 = 0x2008 after first advance, got %#x", cfaMid)
	}

	cfaLate, err := idx.ComputeCFA(0x100d, regs)
	if err != nil {
		t.Fatalf("ComputeCFA(0x100d): %v", err)
	}
	if cfaLate != 0x2108 {
		t.Fatalf("expected cfa = r14+8 = 0x2108 after register change, got %#x", cfaLate)
	}
}

func TestFindScopeForPC(t *testing.T) {
	idx := buildTestIndex(t)
	scope, ok := idx.FindScopeForPC(0x1010)
	if !ok || scope.Name != "main" {
		t.Fatalf("expected to find main scope, got %+v ok=%v", scope, ok)
	}
	if _, ok := idx.FindScopeForPC(0x5000); ok {
		t.Fatal("expected no scope to contain an out-of-range pc")
	}
}

func TestResolveLocalFormalParameter(t *testing.T) {
	idx := buildTestIndex(t)
	regs := func(reg int) (uint32, bool) {
		if reg == 13 {
			return 0x3000, true
		}
		return 0, false
	}
	local, err := idx.ResolveLocal("argc", 0x1001, regs)
	if err != nil {
		t.Fatalf("ResolveLocal: %v", err)
	}
	if !local.HasAddr || local.Address != 0x3000-8 {
		t.Fatalf("expected fbreg-based address cfa-8, got %+v", local)
	}

	if _, err := idx.ResolveLocal("nosuch", 0x1001, regs); err == nil {
		t.Fatal("expected ResolutionError for unknown local")
	}
}

func TestSymbolTableOpenAddressed(t *testing.T) {
	tbl := newSymbolTable()
	for i := 0; i < 64; i++ {
		tbl.Insert(Symbol{Name: string(rune('a' + i%26)), Addr: uint32(i)})
	}
	if tbl.Len() == 0 {
		t.Fatal("expected symbols inserted")
	}
	// last write for a repeated name wins
	tbl.Insert(Symbol{Name: "z", Addr: 0xdead})
	sym, ok := tbl.Lookup("z")
	if !ok || sym.Addr != 0xdead {
		t.Fatalf("expected last-write-wins semantics, got %+v ok=%v", sym, ok)
	}
}
