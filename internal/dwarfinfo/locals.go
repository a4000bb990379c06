package dwarfinfo

import "github.com/e9kdbg/e9kdbg/internal/curated"

// Local is a resolved frame-local or formal-parameter value: either an
// address to read through, or an immediate already known at resolve time.
type Local struct {
	Name      string
	TypeRef   uint32
	HasType   bool
	Address   uint32
	HasAddr   bool
	Immediate uint32
	HasImm    bool
}

// RegValueFunc resolves a DWARF register number to its live value, following
// the "D0..D7 -> 0..7, A0..A7 -> 8..15" register-number convention (owned by
// the caller, since only the caller has a live Registers view).
type RegValueFunc func(reg int) (uint32, bool)

// ResolveLocal walks the scope chain from innermost outward starting at pc,
// looking for a variable/formal_parameter DIE named name. The frame base is
// computed via idx.ComputeCFA whenever the enclosing subprogram's frame base
// is DW_OP_call_frame_cfa, whatever the candidates' location kinds.
func (idx *Index) ResolveLocal(name string, pc uint32, regValue RegValueFunc) (Local, error) {
	scope, ok := idx.FindScopeForPC(pc)
	if !ok {
		return Local{}, curated.Errorf(curated.ResolutionError, "dwarfinfo", "no scope contains pc")
	}

	frameBase, subprog, ok := idx.frameBaseForScope(scope, pc, regValue)
	if !ok {
		return Local{}, curated.Errorf(curated.ResolutionError, "dwarfinfo", "no enclosing subprogram")
	}

	for s := scope; s != nil; {
		for _, childOffset := range s.Children {
			child, ok := idx.dies[childOffset]
			if !ok {
				continue
			}
			if child.Tag != TagVariable && child.Tag != TagFormalParameter {
				continue
			}
			candName := child.Name
			if candName == "" && child.HasAbstractOrigin {
				if origin, ok := idx.dies[child.AbstractOrigin]; ok {
					candName = origin.Name
				}
			}
			if candName != name {
				continue
			}
			return idx.materializeLocal(name, child, frameBase, regValue)
		}
		if s.Offset == subprog.Offset {
			break
		}
		parent, ok := idx.dies[s.Parent]
		if !ok {
			break
		}
		s = parent
	}

	return Local{}, curated.Errorf(curated.ResolutionError, name, "not found in scope")
}

// frameBaseForScope finds the nearest enclosing subprogram and computes its
// frame base.
func (idx *Index) frameBaseForScope(scope *DIE, pc uint32, regValue RegValueFunc) (uint32, *DIE, bool) {
	s := scope
	for s != nil {
		if s.Tag == TagSubprogram {
			break
		}
		parent, ok := idx.dies[s.Parent]
		if !ok {
			return 0, nil, false
		}
		s = parent
	}
	if s == nil {
		return 0, nil, false
	}
	if s.LocKind != LocCFA {
		// Only DW_OP_call_frame_cfa is recognized as a frame base; any
		// other frame_base encoding resolves to 0.
		return 0, s, true
	}
	cfa, err := idx.ComputeCFA(pc, regValue)
	if err != nil {
		return 0, s, true
	}
	return cfa, s, true
}

// materializeLocal resolves d's location kind into an address or
// immediate.
func (idx *Index) materializeLocal(name string, d *DIE, frameBase uint32, regValue RegValueFunc) (Local, error) {
	l := Local{Name: name, TypeRef: d.TypeRef, HasType: d.HasType}
	switch d.LocKind {
	case LocFbreg:
		l.Address = uint32(int64(frameBase) + d.LocOffset)
		l.HasAddr = true
	case LocBreg:
		base, ok := regValue(d.LocReg)
		if !ok {
			return Local{}, curated.Errorf(curated.ResolutionError, name, "register unavailable")
		}
		l.Address = uint32(int64(base) + d.LocOffset)
		l.HasAddr = true
	case LocAddr:
		l.Address = uint32(d.LocOffset)
		l.HasAddr = true
	case LocConst:
		l.Immediate = uint32(d.LocOffset)
		l.HasImm = true
	case LocReg:
		v, ok := regValue(d.LocReg)
		if !ok {
			return Local{}, curated.Errorf(curated.ResolutionError, name, "register unavailable")
		}
		l.Immediate = v
		l.HasImm = true
	case LocCFA:
		// frameBase already is the subprogram's CFA; a variable whose own
		// location is CFA lives at that exact address.
		l.Address = frameBase
		l.HasAddr = true
	default:
		return Local{}, curated.Errorf(curated.ResolutionError, name, "no location")
	}
	return l, nil
}
