package expr

import "github.com/e9kdbg/e9kdbg/internal/dwarfinfo"

// Value is the evaluator's intermediate result: either an lvalue (a typed
// address to read through) or an immediate already materialized at eval
// time.
type Value struct {
	HasType bool
	TypeRef uint32

	// IsSyntheticPointer marks the result of `&x`: a pointer value with no
	// DWARF pointer-type DIE of its own. SyntheticPointerTo names the
	// pointee's type-graph index so `*&x` and member access still resolve.
	IsSyntheticPointer bool
	SyntheticPointerTo uint32
	SyntheticHasTarget bool

	HasAddress bool
	Address    uint32

	HasImmediate bool
	Immediate    uint32
}

// Env is the live debugging context an expression is evaluated against:
// debug-info lookups plus register/memory access, supplied by the command
// engine. Identifiers resolve in the order global -> symbol -> register ->
// local.
type Env interface {
	Global(name string) (dwarfinfo.Variable, bool)
	Symbol(name string) (dwarfinfo.Symbol, bool)
	Register(name string) (uint32, bool)
	Local(name string, pc uint32) (dwarfinfo.Local, bool)
	PC() uint32

	ResolveType(ti uint32) (*dwarfinfo.Type, bool)
	Deref(ti uint32) (uint32, *dwarfinfo.Type, bool)

	// ReadMemory reads size bytes (1 to 8) starting at addr and returns
	// them assembled little-endian.
	ReadMemory(addr uint32, size int) (uint64, error)
}

// pointerSize is the width of a reconstructed pointer value read from
// memory: addresses print as 32-bit hex.
const pointerSize = 4
