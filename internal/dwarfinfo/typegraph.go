package dwarfinfo

import "strings"

// resolveTypeGraph builds the type graph from idx.dies: one Type node per
// type-shaped DIE, with pointer/typedef/const/volatile/array edges and
// struct members resolved in a second pass (so forward references — a
// struct containing a pointer to itself — resolve correctly). The pointer
// case does not recurse into its target during resolution, which is what
// terminates the cycle naturally.
func resolveTypeGraph(idx *Index) {
	for offset, d := range idx.dies {
		kind, ok := typeKindForTag(d.Tag)
		if !ok {
			continue
		}
		t := &Type{Kind: kind, Name: d.Name}
		if d.HasByteSize {
			t.ByteSize = d.ByteSize
		}
		if kind == TypeBase {
			t.Encoding = encodingFromString(d.Encoding)
		}
		idx.types = append(idx.types, t)
		idx.typeByDIE[offset] = uint32(len(idx.types) - 1)
	}

	for offset, d := range idx.dies {
		ti, ok := idx.typeByDIE[offset]
		if !ok {
			continue
		}
		t := idx.types[ti]

		switch t.Kind {
		case TypePointer, TypeTypedef, TypeConst, TypeVolatile:
			if d.HasType {
				if target, ok := idx.typeByDIE[d.TypeRef]; ok {
					t.TargetType, t.HasTarget = target, true
				}
			}
		case TypeArray:
			if d.HasType {
				if target, ok := idx.typeByDIE[d.TypeRef]; ok {
					t.TargetType, t.HasTarget = target, true
				}
			}
			t.ArrayCount = arrayCountFromChildren(idx, d)
		case TypeStruct:
			for _, childOffset := range d.Children {
				child, ok := idx.dies[childOffset]
				if !ok || child.Tag != TagMember {
					continue
				}
				m := TypeMember{Name: child.Name, Offset: child.DataMemberLocation}
				if child.HasType {
					if mt, ok := idx.typeByDIE[child.TypeRef]; ok {
						m.Type = mt
					}
				}
				t.Members = append(t.Members, m)
			}
		}
	}
}

func typeKindForTag(tag Tag) (TypeKind, bool) {
	switch tag {
	case TagBaseType:
		return TypeBase, true
	case TagPointerType:
		return TypePointer, true
	case TagStructureType, TagUnionType:
		return TypeStruct, true
	case TagArrayType:
		return TypeArray, true
	case TagTypedef:
		return TypeTypedef, true
	case TagConstType:
		return TypeConst, true
	case TagVolatileType:
		return TypeVolatile, true
	case TagEnumerationType:
		return TypeEnum, true
	default:
		return TypeInvalid, false
	}
}

func encodingFromString(s string) Encoding {
	ls := strings.ToLower(s)
	switch {
	case strings.Contains(ls, "unsigned"):
		return EncUnsigned
	case strings.Contains(ls, "signed"):
		return EncSigned
	case strings.Contains(ls, "float"):
		return EncFloat
	case strings.Contains(ls, "boolean"):
		return EncBoolean
	default:
		return EncUnknown
	}
}

// arrayCountFromChildren reads the element count off the array's
// DW_TAG_subrange_type child: DW_AT_count directly, or DW_AT_upper_bound+1.
func arrayCountFromChildren(idx *Index, d *DIE) int64 {
	for _, childOffset := range d.Children {
		child, ok := idx.dies[childOffset]
		if !ok || child.Tag != TagSubrangeType {
			continue
		}
		if child.HasCount {
			return child.Count
		}
		if child.HasUpperBound {
			return child.UpperBound + 1
		}
	}
	return 0
}

// ResolveType returns the Type node at index ti.
func (idx *Index) ResolveType(ti uint32) (*Type, bool) {
	if int(ti) >= len(idx.types) {
		return nil, false
	}
	return idx.types[ti], true
}

// TypeForDIEOffset returns the type-graph index for the type DIE at offset,
// if one was built.
func (idx *Index) TypeForDIEOffset(offset uint32) (uint32, bool) {
	ti, ok := idx.typeByDIE[offset]
	return ti, ok
}

// Deref follows typedef/const/volatile edges until it reaches a
// non-qualifying node.
func (idx *Index) Deref(ti uint32) (uint32, *Type, bool) {
	seen := make(map[uint32]bool)
	for {
		t, ok := idx.ResolveType(ti)
		if !ok {
			return ti, nil, false
		}
		if t.Kind != TypeTypedef && t.Kind != TypeConst && t.Kind != TypeVolatile {
			return ti, t, true
		}
		if seen[ti] || !t.HasTarget {
			return ti, t, true
		}
		seen[ti] = true
		ti = t.TargetType
	}
}
