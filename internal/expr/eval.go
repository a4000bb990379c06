package expr

import (
	"github.com/e9kdbg/e9kdbg/internal/curated"
	"github.com/e9kdbg/e9kdbg/internal/dwarfinfo"
)

// Eval evaluates an AST node against env, resolving identifiers in the
// order global variable -> symbol -> register -> local.
func Eval(n *Node, env Env) (Value, error) {
	switch n.Kind {
	case NodeNumber:
		return Value{HasImmediate: true, Immediate: uint32(n.Number)}, nil
	case NodeIdent:
		return evalIdent(n.Name, env)
	case NodeAddr:
		return evalAddr(n.X, env)
	case NodeDeref:
		return evalDeref(n.X, env)
	case NodeMember:
		return evalMember(n.X, n.Name, false, env)
	case NodeArrow:
		return evalMember(n.X, n.Name, true, env)
	case NodeIndex:
		return evalIndex(n.X, n.Index, env)
	default:
		return Value{}, curated.Errorf(curated.ParseError, "expr", "unknown node kind")
	}
}

// evalIdent resolves name against env in the order global -> symbol ->
// register -> local.
func evalIdent(name string, env Env) (Value, error) {
	if g, ok := env.Global(name); ok {
		return Value{HasType: g.HasTypeRef, TypeRef: g.TypeRef, HasAddress: true, Address: g.Addr}, nil
	}
	if s, ok := env.Symbol(name); ok {
		return Value{HasAddress: true, Address: s.Addr}, nil
	}
	if v, ok := env.Register(name); ok {
		return Value{HasImmediate: true, Immediate: v}, nil
	}
	if l, ok := env.Local(name, env.PC()); ok {
		return Value{
			HasType:      l.HasType,
			TypeRef:      l.TypeRef,
			HasAddress:   l.HasAddr,
			Address:      l.Address,
			HasImmediate: l.HasImm,
			Immediate:    l.Immediate,
		}, nil
	}
	return Value{}, curated.Errorf(curated.ResolutionError, name, "not found")
}

// evalAddr evaluates &x: x must be addressable (an lvalue), and the result
// is a synthetic pointer carrying no DWARF pointer-type DIE of its own.
func evalAddr(x *Node, env Env) (Value, error) {
	v, err := Eval(x, env)
	if err != nil {
		return Value{}, err
	}
	if !v.HasAddress {
		return Value{}, curated.Errorf(curated.ResolutionError, "expr", "operand of '&' is not addressable")
	}
	return Value{
		IsSyntheticPointer: true,
		SyntheticPointerTo: v.TypeRef,
		SyntheticHasTarget: v.HasType,
		HasImmediate:       true,
		Immediate:          v.Address,
	}, nil
}

// evalDeref evaluates *x. When x carries no type (the untyped numeric
// fast-path, or a symbol with no DWARF type) its scalar value is treated as
// the address directly, letting `print *0xADDR` work without debug info
// loaded.
func evalDeref(x *Node, env Env) (Value, error) {
	v, err := Eval(x, env)
	if err != nil {
		return Value{}, err
	}
	addr, elemTi, hasElem, err := targetOf(v, env)
	if err != nil {
		return Value{}, err
	}
	return Value{HasType: hasElem, TypeRef: elemTi, HasAddress: true, Address: addr}, nil
}

// evalMember evaluates x.m (arrow=false) or x->m (arrow=true).
func evalMember(x *Node, name string, arrow bool, env Env) (Value, error) {
	base, err := Eval(x, env)
	if err != nil {
		return Value{}, err
	}

	var structAddr uint32
	var structTi uint32
	var haveStructTi bool
	if arrow {
		addr, elemTi, hasElem, err := targetOf(base, env)
		if err != nil {
			return Value{}, err
		}
		structAddr, structTi, haveStructTi = addr, elemTi, hasElem
	} else {
		if !base.HasAddress {
			return Value{}, curated.Errorf(curated.ResolutionError, "expr", "operand of '.' is not addressable")
		}
		structAddr, structTi, haveStructTi = base.Address, base.TypeRef, base.HasType
	}
	if !haveStructTi {
		return Value{}, curated.Errorf(curated.ResolutionError, name, "no type information for member access")
	}

	_, t, ok := env.Deref(structTi)
	if !ok || t == nil || t.Kind != dwarfinfo.TypeStruct {
		return Value{}, curated.Errorf(curated.ResolutionError, name, "base is not a struct or union")
	}
	for _, m := range t.Members {
		if m.Name == name {
			return Value{HasType: true, TypeRef: m.Type, HasAddress: true, Address: structAddr + uint32(m.Offset)}, nil
		}
	}
	return Value{}, curated.Errorf(curated.ResolutionError, name, "no such member")
}

// evalIndex evaluates x[i] for both array and pointer bases.
func evalIndex(x *Node, index int64, env Env) (Value, error) {
	base, err := Eval(x, env)
	if err != nil {
		return Value{}, err
	}
	addr, elemTi, hasElem, err := targetOf(base, env)
	if err != nil {
		return Value{}, err
	}
	if !hasElem {
		return Value{}, curated.Errorf(curated.ResolutionError, "expr", "operand of '[]' is not indexable")
	}
	elemSize := byteSizeOfType(elemTi, env)
	addr = addr + uint32(index)*uint32(elemSize)
	return Value{HasType: true, TypeRef: elemTi, HasAddress: true, Address: addr}, nil
}

// targetOf resolves the address a pointer/array-typed value refers to, and
// the type-graph index of what it points to. An array decays to its own
// base address with no memory load; a pointer's stored value is loaded and
// used as the target address; anything else (or no type at all) has its
// own scalar value reinterpreted as a raw address, which is what lets `*x`
// work on an untyped number or a plain integer.
func targetOf(v Value, env Env) (addr uint32, elemTi uint32, hasElem bool, err error) {
	if v.IsSyntheticPointer {
		return v.Immediate, v.SyntheticPointerTo, v.SyntheticHasTarget, nil
	}
	if !v.HasType {
		raw, _, err := valueScalar(v, env)
		if err != nil {
			return 0, 0, false, err
		}
		return uint32(raw), 0, false, nil
	}
	_, t, ok := env.Deref(v.TypeRef)
	if !ok || t == nil {
		raw, _, err := valueScalar(v, env)
		if err != nil {
			return 0, 0, false, err
		}
		return uint32(raw), 0, false, nil
	}
	switch t.Kind {
	case dwarfinfo.TypeArray:
		if !v.HasAddress {
			return 0, 0, false, curated.Errorf(curated.ResolutionError, "expr", "array value has no address")
		}
		return v.Address, t.TargetType, t.HasTarget, nil
	case dwarfinfo.TypePointer:
		raw, _, err := valueScalar(v, env)
		if err != nil {
			return 0, 0, false, err
		}
		return uint32(raw), t.TargetType, t.HasTarget, nil
	default:
		raw, _, err := valueScalar(v, env)
		if err != nil {
			return 0, 0, false, err
		}
		return uint32(raw), 0, false, nil
	}
}

// byteSizeOfType returns ti's effective size after stripping
// typedef/const/volatile, defaulting to a 32-bit word when unknown.
func byteSizeOfType(ti uint32, env Env) int {
	_, t, ok := env.Deref(ti)
	if !ok || t == nil || t.ByteSize <= 0 {
		return 4
	}
	return t.ByteSize
}

// valueScalar reads v's raw numeric content: its immediate if it has one,
// or a memory load at its address otherwise, sized by its resolved type.
func valueScalar(v Value, env Env) (uint64, int, error) {
	size := 4
	if v.IsSyntheticPointer {
		size = pointerSize
	} else if v.HasType {
		size = byteSizeOfType(v.TypeRef, env)
	}
	if size <= 0 || size > 8 {
		size = 4
	}
	if v.HasImmediate {
		return uint64(v.Immediate), size, nil
	}
	if v.HasAddress {
		raw, err := env.ReadMemory(v.Address, size)
		if err != nil {
			return 0, size, curated.Errorf(curated.MemoryError, err)
		}
		return raw, size, nil
	}
	return 0, 0, curated.Errorf(curated.ResolutionError, "expr", "value has neither an address nor an immediate")
}
