package dwarfinfo

import (
	"strconv"
	"strings"

	"github.com/e9kdbg/e9kdbg/internal/leb128"
)

// parseSymbols parses `objdump --syms` output. Typical rows look like:
//
//	00001234 g     F .text	00000010 main
//
// address, flags, section, size, name — tolerant of the exact flag-column
// width since those vary by binutils version.
func parseSymbols(idx *Index, text string) {
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		addr, err := strconv.ParseUint(fields[0], 16, 32)
		if err != nil {
			continue
		}
		name := fields[len(fields)-1]
		if name == "" || strings.HasPrefix(name, ".") {
			continue
		}
		idx.symbols.Insert(Symbol{Name: name, Addr: uint32(addr)})
	}
}

// parseDwarfInfo parses `readelf --debug-dump=info` output: DIE header
// lines of the form
//
//	 <1><2b>: Abbrev Number: 2 (DW_TAG_subprogram)
//
// followed by indented attribute lines until the next header.
func parseDwarfInfo(idx *Index, text string) {
	lines := strings.Split(text, "\n")

	var cur *DIE
	var parentStack []uint32 // offsets, indexed by depth

	for _, line := range lines {
		if depth, offset, tag, ok := parseDieHeader(line); ok {
			d := &DIE{Offset: offset, Depth: depth, Tag: tagFromString(tag)}
			if depth > 0 && depth <= len(parentStack) {
				parent := parentStack[depth-1]
				d.Parent = parent
				if pd, ok := idx.dies[parent]; ok {
					pd.Children = append(pd.Children, d.Offset)
				}
			}
			if depth >= len(parentStack) {
				parentStack = append(parentStack, d.Offset)
			} else {
				parentStack = parentStack[:depth]
				parentStack = append(parentStack, d.Offset)
			}
			idx.dies[offset] = d
			if depth == 0 {
				idx.roots = append(idx.roots, offset)
			}
			cur = d
			continue
		}
		if cur == nil {
			continue
		}
		parseAttribute(cur, line)
	}
}

// parseDieHeader recognizes ` <depth><offset>: ... (DW_TAG_xxx)`.
func parseDieHeader(line string) (depth int, offset uint32, tag string, ok bool) {
	p := strings.IndexByte(line, '<')
	if p < 0 {
		return
	}
	q := strings.IndexByte(line[p+1:], '>')
	if q < 0 {
		return
	}
	q += p + 1
	depthStr := line[p+1 : q]
	d, err := strconv.Atoi(depthStr)
	if err != nil {
		return
	}

	rest := line[q+1:]
	p2 := strings.IndexByte(rest, '<')
	if p2 < 0 {
		return
	}
	q2 := strings.IndexByte(rest[p2+1:], '>')
	if q2 < 0 {
		return
	}
	q2 += p2 + 1
	offStr := rest[p2+1 : q2]
	off, err := strconv.ParseUint(offStr, 16, 32)
	if err != nil {
		return
	}

	tagStart := strings.Index(line, "DW_TAG_")
	if tagStart < 0 {
		return
	}
	tagEnd := tagStart
	for tagEnd < len(line) && line[tagEnd] != ')' && line[tagEnd] != ',' && line[tagEnd] != ' ' && line[tagEnd] != '\t' {
		tagEnd++
	}
	return d, uint32(off), line[tagStart:tagEnd], true
}

func tagFromString(s string) Tag {
	switch s {
	case "DW_TAG_compile_unit":
		return TagCompileUnit
	case "DW_TAG_base_type":
		return TagBaseType
	case "DW_TAG_pointer_type":
		return TagPointerType
	case "DW_TAG_structure_type":
		return TagStructureType
	case "DW_TAG_union_type":
		return TagUnionType
	case "DW_TAG_array_type":
		return TagArrayType
	case "DW_TAG_subrange_type":
		return TagSubrangeType
	case "DW_TAG_typedef":
		return TagTypedef
	case "DW_TAG_const_type":
		return TagConstType
	case "DW_TAG_volatile_type":
		return TagVolatileType
	case "DW_TAG_enumeration_type":
		return TagEnumerationType
	case "DW_TAG_enumerator":
		return TagEnumerator
	case "DW_TAG_member":
		return TagMember
	case "DW_TAG_subprogram":
		return TagSubprogram
	case "DW_TAG_lexical_block":
		return TagLexicalBlock
	case "DW_TAG_inlined_subroutine":
		return TagInlinedSubroutine
	case "DW_TAG_variable":
		return TagVariable
	case "DW_TAG_formal_parameter":
		return TagFormalParameter
	default:
		return TagUnknown
	}
}

// parseAttribute recognizes one indented `DW_AT_xxx` line and folds it into
// d.
func parseAttribute(d *DIE, line string) {
	switch {
	case strings.Contains(line, "DW_AT_abstract_origin"):
		if v, ok := trailingHex(line); ok {
			d.AbstractOrigin = uint32(v)
			d.HasAbstractOrigin = true
		}
	case strings.Contains(line, "DW_AT_name"):
		if v, ok := parseNameValue(line); ok {
			d.Name = v
		}
	case strings.Contains(line, "DW_AT_type"):
		if v, ok := trailingHex(line); ok {
			d.TypeRef = uint32(v)
			d.HasType = true
		}
	case strings.Contains(line, "DW_AT_low_pc"):
		if v, ok := trailingHex(line); ok {
			d.LowPC = uint32(v)
		}
	case strings.Contains(line, "DW_AT_high_pc"):
		if v, ok := trailingHex(line); ok {
			d.HighPC = uint32(v)
			// A value less than low_pc is a length, not an absolute address.
			d.HighPCIsOffset = uint32(v) < d.LowPC
		}
	case strings.Contains(line, "DW_AT_byte_size"):
		if v, ok := trailingDec(line); ok {
			d.ByteSize = int(v)
			d.HasByteSize = true
		}
	case strings.Contains(line, "DW_AT_frame_base"):
		if strings.Contains(line, "DW_OP_call_frame_cfa") {
			d.LocKind = LocCFA
		}
	case strings.Contains(line, "DW_AT_data_member_location"):
		if v, ok := trailingDec(line); ok {
			d.DataMemberLocation = v
			d.HasMemberLocation = true
		}
	case strings.Contains(line, "DW_AT_upper_bound"):
		if v, ok := trailingDec(line); ok {
			d.UpperBound = v
			d.HasUpperBound = true
		}
	case strings.Contains(line, "DW_AT_count"):
		if v, ok := trailingDec(line); ok {
			d.Count = v
			d.HasCount = true
		}
	case strings.Contains(line, "DW_AT_encoding"):
		if v, ok := parseNameValue(line); ok {
			d.Encoding = v
		}
	case strings.Contains(line, "DW_AT_location"):
		parseLocation(d, line)
	}
}

func parseLocation(d *DIE, line string) {
	switch {
	case strings.Contains(line, "DW_OP_stack_value") && strings.Contains(line, "DW_OP_addr"):
		if v, ok := opOperandHex(line, "DW_OP_addr"); ok {
			d.LocKind = LocConst
			d.LocOffset = v
		}
	case strings.Contains(line, "DW_OP_addr"):
		if v, ok := opOperandHex(line, "DW_OP_addr"); ok {
			d.LocKind = LocAddr
			d.LocOffset = v
		}
	case strings.Contains(line, "DW_OP_fbreg"):
		if v, ok := opOperand(line, "DW_OP_fbreg"); ok {
			d.LocKind = LocFbreg
			d.LocOffset = v
		}
	case strings.Contains(line, "DW_OP_breg"):
		if reg, v, ok := opRegOperand(line, "DW_OP_breg"); ok {
			d.LocKind = LocBreg
			d.LocReg = reg
			d.LocOffset = v
		}
	case strings.Contains(line, "DW_OP_reg"):
		if reg, ok := opReg(line, "DW_OP_reg"); ok {
			d.LocKind = LocReg
			d.LocReg = reg
		}
	case strings.Contains(line, "DW_OP_call_frame_cfa"):
		d.LocKind = LocCFA
	case strings.Contains(line, "byte block:"):
		// Older readelf builds leave the expression undecoded; decode the
		// raw block ourselves.
		parseRawLocationBlock(d, line)
	}
}

// parseRawLocationBlock decodes an undecoded "N byte block: 91 68" location
// expression: opcode byte followed by its ULEB/SLEB128 operands.
func parseRawLocationBlock(d *DIE, line string) {
	p := strings.Index(line, "byte block:")
	if p < 0 {
		return
	}
	fields := strings.Fields(line[p+len("byte block:"):])
	raw := make([]byte, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSuffix(f, ")")
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			break
		}
		raw = append(raw, byte(v))
	}
	if len(raw) == 0 {
		return
	}

	op := raw[0]
	body := raw[1:]
	switch {
	case op == 0x03 && len(body) >= 4: // DW_OP_addr, 4-byte target address
		d.LocKind = LocAddr
		d.LocOffset = int64(uint32(body[0]) | uint32(body[1])<<8 | uint32(body[2])<<16 | uint32(body[3])<<24)
	case op == 0x91: // DW_OP_fbreg sleb128
		v, _ := leb128.DecodeSLEB128(body)
		d.LocKind = LocFbreg
		d.LocOffset = v
	case op >= 0x50 && op <= 0x6f: // DW_OP_reg0..31
		d.LocKind = LocReg
		d.LocReg = int(op - 0x50)
	case op >= 0x70 && op <= 0x8f: // DW_OP_breg0..31 sleb128
		v, _ := leb128.DecodeSLEB128(body)
		d.LocKind = LocBreg
		d.LocReg = int(op - 0x70)
		d.LocOffset = v
	case op == 0x9c: // DW_OP_call_frame_cfa
		d.LocKind = LocCFA
	}
}

// parseNameValue extracts the text after the last colon on the line,
// trimmed — the same convention readelf uses for `DW_AT_name` and
// `DW_AT_encoding`.
func parseNameValue(line string) (string, bool) {
	idx := strings.LastIndexByte(line, ':')
	if idx < 0 || idx+1 >= len(line) {
		return "", false
	}
	v := strings.TrimSpace(line[idx+1:])
	if v == "" {
		return "", false
	}
	// strip a trailing external-string marker, e.g. "main" or (indirect string, offset: 0x12): main
	if p := strings.LastIndex(v, ": "); p >= 0 && strings.HasPrefix(v, "(indirect") {
		v = v[p+2:]
	}
	return v, true
}

// trailingHex extracts the last hex token (optionally 0x-prefixed) on the
// line.
func trailingHex(line string) (int64, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, false
	}
	tok := strings.TrimSuffix(fields[len(fields)-1], ")")
	tok = strings.TrimPrefix(tok, "0x")
	v, err := strconv.ParseInt(tok, 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func trailingDec(line string) (int64, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, false
	}
	tok := strings.TrimSuffix(fields[len(fields)-1], ")")
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// opOperand extracts the signed/hex operand following "op:" in a location
// expression line, e.g. "DW_OP_fbreg: -24" or "DW_OP_addr: 1000".
func opOperand(line, op string) (int64, bool) {
	p := strings.Index(line, op)
	if p < 0 {
		return 0, false
	}
	rest := line[p+len(op):]
	rest = strings.TrimPrefix(rest, ":")
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, false
	}
	tok := strings.TrimSuffix(fields[0], ")")
	tok = strings.TrimSuffix(tok, ";")
	if strings.HasPrefix(tok, "0x") {
		v, err := strconv.ParseInt(strings.TrimPrefix(tok, "0x"), 16, 64)
		return v, err == nil
	}
	v, err := strconv.ParseInt(tok, 10, 64)
	return v, err == nil
}

// opOperandHex is opOperand specialized for DW_OP_addr: readelf renders
// address operands as bare hex with no "0x" prefix ("(DW_OP_addr: 1000)"
// means 0x1000), unlike the signed-decimal offsets used by DW_OP_fbreg/
// DW_OP_bregN.
func opOperandHex(line, op string) (int64, bool) {
	p := strings.Index(line, op)
	if p < 0 {
		return 0, false
	}
	rest := line[p+len(op):]
	rest = strings.TrimPrefix(rest, ":")
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, false
	}
	tok := strings.TrimSuffix(fields[0], ")")
	tok = strings.TrimSuffix(tok, ";")
	tok = strings.TrimPrefix(tok, "0x")
	v, err := strconv.ParseInt(tok, 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// opRegOperand extracts the register number embedded in the opcode name
// itself ("DW_OP_breg5") plus its signed offset operand.
func opRegOperand(line, opPrefix string) (reg int, offset int64, ok bool) {
	p := strings.Index(line, opPrefix)
	if p < 0 {
		return
	}
	rest := line[p+len(opPrefix):]
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == 0 {
		return
	}
	n, err := strconv.Atoi(rest[:i])
	if err != nil {
		return
	}
	v, vok := opOperand(line, opPrefix+rest[:i])
	return n, v, vok
}

func opReg(line, opPrefix string) (reg int, ok bool) {
	p := strings.Index(line, opPrefix)
	if p < 0 {
		return
	}
	rest := line[p+len(opPrefix):]
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == 0 {
		return
	}
	n, err := strconv.Atoi(rest[:i])
	if err != nil {
		return
	}
	return n, true
}

// collectGlobalsFromDIEs distills the globals/statics list from top-level
// DW_TAG_variable DIEs with an address location.
func (idx *Index) collectGlobalsFromDIEs() {
	for _, d := range idx.dies {
		if d.Tag != TagVariable || d.Depth > 1 {
			continue
		}
		if d.LocKind != LocAddr || d.Name == "" {
			continue
		}
		v := Variable{Name: d.Name, Addr: uint32(d.LocOffset), TypeRef: d.TypeRef, HasTypeRef: d.HasType}
		if d.HasByteSize {
			v.ByteSize, v.HasByteSize = d.ByteSize, true
		}
		idx.globals = append(idx.globals, v)
	}
}
