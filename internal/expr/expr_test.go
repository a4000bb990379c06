package expr

import (
	"testing"

	"github.com/e9kdbg/e9kdbg/internal/curated"
	"github.com/e9kdbg/e9kdbg/internal/dwarfinfo"
)

// fakeEnv is a minimal, self-contained Env for exercising the evaluator
// without a loaded dwarfinfo.Index or live bridge.
type fakeEnv struct {
	types     []*dwarfinfo.Type
	globals   map[string]dwarfinfo.Variable
	symbols   map[string]dwarfinfo.Symbol
	registers map[string]uint32
	locals    map[string]dwarfinfo.Local
	mem       map[uint32]byte
	pc        uint32
}

func (e *fakeEnv) Global(name string) (dwarfinfo.Variable, bool) {
	v, ok := e.globals[name]
	return v, ok
}

func (e *fakeEnv) Symbol(name string) (dwarfinfo.Symbol, bool) {
	s, ok := e.symbols[name]
	return s, ok
}

func (e *fakeEnv) Register(name string) (uint32, bool) {
	v, ok := e.registers[name]
	return v, ok
}

func (e *fakeEnv) Local(name string, pc uint32) (dwarfinfo.Local, bool) {
	l, ok := e.locals[name]
	return l, ok
}

func (e *fakeEnv) PC() uint32 { return e.pc }

func (e *fakeEnv) ResolveType(ti uint32) (*dwarfinfo.Type, bool) {
	if int(ti) >= len(e.types) {
		return nil, false
	}
	return e.types[ti], true
}

func (e *fakeEnv) Deref(ti uint32) (uint32, *dwarfinfo.Type, bool) {
	seen := make(map[uint32]bool)
	for {
		t, ok := e.ResolveType(ti)
		if !ok {
			return ti, nil, false
		}
		if t.Kind != dwarfinfo.TypeTypedef && t.Kind != dwarfinfo.TypeConst && t.Kind != dwarfinfo.TypeVolatile {
			return ti, t, true
		}
		if seen[ti] || !t.HasTarget {
			return ti, t, true
		}
		seen[ti] = true
		ti = t.TargetType
	}
}

func (e *fakeEnv) ReadMemory(addr uint32, size int) (uint64, error) {
	var v uint64
	for i := 0; i < size; i++ {
		b, ok := e.mem[addr+uint32(i)]
		if !ok {
			return 0, curated.Errorf(curated.MemoryError, "unmapped address")
		}
		v |= uint64(b) << (8 * uint(i))
	}
	return v, nil
}

func putLE32(mem map[uint32]byte, addr uint32, v uint32) {
	mem[addr] = byte(v)
	mem[addr+1] = byte(v >> 8)
	mem[addr+2] = byte(v >> 16)
	mem[addr+3] = byte(v >> 24)
}

// buildEnv wires up: int x @0x1000=42; int *p @0x1004 pointing at x;
// struct Point pt @0x2000 {x:42, y:7}; int arr[3] @0x3000 = {10,20,30}.
func buildEnv() *fakeEnv {
	types := []*dwarfinfo.Type{
		{Kind: dwarfinfo.TypeBase, Name: "int", ByteSize: 4, Encoding: dwarfinfo.EncSigned},           // 0
		{Kind: dwarfinfo.TypePointer, ByteSize: 4, TargetType: 0, HasTarget: true},                     // 1
		{Kind: dwarfinfo.TypeStruct, Name: "Point", ByteSize: 8, Members: []dwarfinfo.TypeMember{
			{Name: "x", Offset: 0, Type: 0},
			{Name: "y", Offset: 4, Type: 0},
		}}, // 2
		{Kind: dwarfinfo.TypeArray, TargetType: 0, HasTarget: true, ArrayCount: 3}, // 3
	}

	mem := make(map[uint32]byte)
	putLE32(mem, 0x1000, 42)
	putLE32(mem, 0x1004, 0x1000)
	putLE32(mem, 0x2000, 42)
	putLE32(mem, 0x2004, 7)
	putLE32(mem, 0x3000, 10)
	putLE32(mem, 0x3004, 20)
	putLE32(mem, 0x3008, 30)

	return &fakeEnv{
		types: types,
		globals: map[string]dwarfinfo.Variable{
			"x":  {Name: "x", Addr: 0x1000, TypeRef: 0, HasTypeRef: true},
			"p":  {Name: "p", Addr: 0x1004, TypeRef: 1, HasTypeRef: true},
			"pt": {Name: "pt", Addr: 0x2000, TypeRef: 2, HasTypeRef: true},
			"arr": {Name: "arr", Addr: 0x3000, TypeRef: 3, HasTypeRef: true},
		},
		symbols:   map[string]dwarfinfo.Symbol{},
		registers: map[string]uint32{},
		locals:    map[string]dwarfinfo.Local{},
		mem:       mem,
	}
}

func mustPrint(t *testing.T, env Env, text, want string) {
	t.Helper()
	got, err := EvalAndPrint(text, env)
	if err != nil {
		t.Fatalf("EvalAndPrint(%q): %v", text, err)
	}
	if got != want {
		t.Fatalf("EvalAndPrint(%q) = %q, want %q", text, got, want)
	}
}

func TestPrintScalarGlobal(t *testing.T) {
	mustPrint(t, buildEnv(), "x", "x: 42 (0x2A)")
}

func TestPrintAddressOf(t *testing.T) {
	mustPrint(t, buildEnv(), "&x", "&x: 0x1000")
}

func TestPrintDerefPointer(t *testing.T) {
	mustPrint(t, buildEnv(), "*p", "*p: 42 (0x2A)")
}

func TestPrintPointerVariable(t *testing.T) {
	mustPrint(t, buildEnv(), "p", "p: 0x1000")
}

func TestPrintStruct(t *testing.T) {
	mustPrint(t, buildEnv(), "pt", "pt:\n  x: 42 (0x2A)\n  y: 7 (0x7)")
}

func TestPrintMember(t *testing.T) {
	mustPrint(t, buildEnv(), "pt.x", "pt.x: 42 (0x2A)")
}

func TestPrintArrayIndex(t *testing.T) {
	mustPrint(t, buildEnv(), "arr[1]", "arr[1]: 20 (0x14)")
}

func TestPrintArrayWhole(t *testing.T) {
	mustPrint(t, buildEnv(), "arr", "arr:\n  [0]: 10 (0xA)\n  [1]: 20 (0x14)\n  [2]: 30 (0x1E)")
}

// TestFastPathRawAddressDeref exercises the "no debug info loaded" fast
// path: a bare numeric literal dereferences as a raw memory read.
func TestFastPathRawAddressDeref(t *testing.T) {
	mustPrint(t, buildEnv(), "*0x1000", "*0x1000: 42 (0x2A)")
}

func TestFastPathUnreadableAddress(t *testing.T) {
	env := buildEnv()
	got, err := EvalAndPrint("*0x9999", env)
	if err != nil {
		t.Fatalf("EvalAndPrint: %v", err)
	}
	if got != "*0x9999: <unreadable>" {
		t.Fatalf("got %q", got)
	}
}

// TestParseFailureOnTruncation exercises a truncated expression: it fails
// to parse rather than silently evaluating a prefix of it.
func TestParseFailureOnTruncation(t *testing.T) {
	cases := []string{"pt.", "arr[", "*", "&", "(x", "x->"}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Fatalf("Parse(%q) succeeded, want a parse error", c)
		}
	}
}

type fakeNameSource struct {
	globals, symbols, registers []string
}

func (n fakeNameSource) GlobalNames() []string   { return n.globals }
func (n fakeNameSource) SymbolNames() []string   { return n.symbols }
func (n fakeNameSource) RegisterNames() []string { return n.registers }

// TestCompleteEvalMembers exercises member completion: a prefix ending in a
// '.' chain completes against the base expression's struct members,
// case-sensitively.
func TestCompleteEvalMembers(t *testing.T) {
	env := buildEnv()
	src := fakeNameSource{globals: []string{"x", "p", "pt", "arr"}}

	got := CompleteEval("pt.", env, src)
	if len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Fatalf("CompleteEval(\"pt.\") = %v, want [x y]", got)
	}

	got = CompleteEval("pt.y", env, src)
	if len(got) != 1 || got[0] != "y" {
		t.Fatalf("CompleteEval(\"pt.y\") = %v, want [y]", got)
	}

	// no '.'/'->': falls back to plain identifier completion.
	got = CompleteEval("p", env, src)
	if len(got) != 2 || got[0] != "p" || got[1] != "pt" {
		t.Fatalf("CompleteEval(\"p\") = %v, want [p pt]", got)
	}
}

// TestCompleteClosure exercises completion's contract: a prefix-closed,
// deduplicated, sorted set drawn from every namespace.
func TestCompleteClosure(t *testing.T) {
	src := fakeNameSource{
		globals:   []string{"x", "p", "pt", "arr"},
		symbols:   []string{"printf", "main"},
		registers: []string{"D0", "D1", "PC"},
	}

	all := Complete("", src)
	if len(all) != 9 {
		t.Fatalf("expected 9 unique names, got %d: %v", len(all), all)
	}
	for i := 1; i < len(all); i++ {
		if all[i-1] >= all[i] {
			t.Fatalf("result not sorted: %v", all)
		}
	}

	pPrefixed := Complete("p", src)
	want := []string{"p", "printf", "pt"}
	if len(pPrefixed) != len(want) {
		t.Fatalf("Complete(\"p\") = %v, want %v", pPrefixed, want)
	}
	for i, w := range want {
		if pPrefixed[i] != w {
			t.Fatalf("Complete(\"p\")[%d] = %q, want %q (full: %v)", i, pPrefixed[i], w, pPrefixed)
		}
	}

	for _, name := range pPrefixed {
		if len(name) == 0 || name[0] != 'p' {
			t.Fatalf("completion %q does not have prefix 'p'", name)
		}
	}
}
