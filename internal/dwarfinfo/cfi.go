package dwarfinfo

import (
	"strconv"
	"strings"
)

// parseCFI parses `readelf --debug-dump=frames` output: a CIE block
// establishing the default CFA rule, followed by zero or more FDE blocks
// each listing a textual CFA program. We "play" the program rather than
// store the raw opcodes, so ComputeCFA is a simple sorted-row lookup at
// query time.
func parseCFI(idx *Index, text string) {
	if text == "" {
		return
	}

	var cieDefaultReg int
	var cieDefaultOffset int64
	haveCIE := false

	var cur *FDE
	var curReg int
	var curOffset int64
	var curLoc uint32

	flushFDE := func() {
		if cur == nil {
			return
		}
		idx.fdes = append(idx.fdes, *cur)
		cur = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.Contains(line, " CIE") || strings.HasSuffix(trimmed, "CIE") {
			flushFDE()
			cieDefaultReg, cieDefaultOffset = 0, 0
			haveCIE = true
			continue
		}

		if strings.Contains(line, "FDE cie=") {
			flushFDE()
			start, end, ok := parsePCRange(line)
			if !ok {
				continue
			}
			reg, off := 0, int64(0)
			if haveCIE {
				reg, off = cieDefaultReg, cieDefaultOffset
			}
			cur = &FDE{PCStart: start, PCEnd: end, DefaultCFAReg: reg, DefaultCFAOffset: off}
			curReg, curOffset, curLoc = reg, off, start
			continue
		}

		switch {
		case strings.Contains(trimmed, "DW_CFA_def_cfa_offset:"):
			if v, ok := trailingDec(trimmed); ok {
				curOffset = v
				if cur != nil {
					cur.Rows = appendRow(cur.Rows, curLoc, curReg, curOffset)
				} else {
					cieDefaultOffset = v
				}
			}
		case strings.Contains(trimmed, "DW_CFA_def_cfa_register:"):
			if v, ok := trailingDec(trimmed); ok {
				curReg = int(v)
				if cur != nil {
					cur.Rows = appendRow(cur.Rows, curLoc, curReg, curOffset)
				} else {
					cieDefaultReg = int(v)
				}
			}
		case strings.Contains(trimmed, "DW_CFA_def_cfa:"):
			if reg, off, ok := parseDefCFA(trimmed); ok {
				curReg, curOffset = reg, off
				if cur != nil {
					cur.Rows = appendRow(cur.Rows, curLoc, curReg, curOffset)
				} else {
					cieDefaultReg, cieDefaultOffset = reg, off
				}
			}
		case strings.HasPrefix(trimmed, "DW_CFA_advance_loc"):
			if loc, ok := parseAdvanceLoc(trimmed); ok {
				curLoc = loc
			}
		case strings.HasPrefix(trimmed, "DW_CFA_nop"), strings.HasPrefix(trimmed, "DW_CFA_offset"),
			strings.HasPrefix(trimmed, "DW_CFA_restore"), strings.HasPrefix(trimmed, "DW_CFA_remember_state"),
			strings.HasPrefix(trimmed, "DW_CFA_restore_state"):
			// no effect on the CFA reg/offset we track
		}
	}
	flushFDE()

	for i := range idx.fdes {
		rows := idx.fdes[i].Rows
		for j := 1; j < len(rows); j++ {
			k := j
			for k > 0 && rows[k-1].Loc > rows[k].Loc {
				rows[k-1], rows[k] = rows[k], rows[k-1]
				k--
			}
		}
		idx.fdes[i].Rows = rows
	}
}

func appendRow(rows []FDERow, loc uint32, reg int, offset int64) []FDERow {
	if n := len(rows); n > 0 && rows[n-1].Loc == loc {
		rows[n-1].CFAReg, rows[n-1].CFAOffset = reg, offset
		return rows
	}
	return append(rows, FDERow{Loc: loc, CFAReg: reg, CFAOffset: offset})
}

// parsePCRange extracts "pc=00001000..00001040" from an FDE header line.
func parsePCRange(line string) (start, end uint32, ok bool) {
	p := strings.Index(line, "pc=")
	if p < 0 {
		return
	}
	rest := line[p+3:]
	dots := strings.Index(rest, "..")
	if dots < 0 {
		return
	}
	startStr := rest[:dots]
	rest = rest[dots+2:]
	endStr := ""
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if !isHexDigit(c) {
			break
		}
		endStr += string(c)
	}
	s, err1 := strconv.ParseUint(startStr, 16, 32)
	e, err2 := strconv.ParseUint(endStr, 16, 32)
	if err1 != nil || err2 != nil {
		return
	}
	return uint32(s), uint32(e), true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// parseDefCFA parses "DW_CFA_def_cfa: r13 ofs 0" (or "r13 (rN) ofs N").
func parseDefCFA(line string) (reg int, offset int64, ok bool) {
	p := strings.Index(line, "DW_CFA_def_cfa:")
	if p < 0 {
		return
	}
	fields := strings.Fields(line[p+len("DW_CFA_def_cfa:"):])
	if len(fields) < 1 {
		return
	}
	reg, ok = parseRegToken(fields[0])
	if !ok {
		return 0, 0, false
	}
	for i, f := range fields {
		if (f == "ofs" || f == "offset") && i+1 < len(fields) {
			v, err := strconv.ParseInt(strings.TrimSuffix(fields[i+1], ")"), 10, 64)
			if err == nil {
				offset = v
			}
		}
	}
	return reg, offset, true
}

// parseRegToken parses a register token like "r13" into 13.
func parseRegToken(tok string) (int, bool) {
	tok = strings.TrimPrefix(tok, "r")
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseAdvanceLoc extracts the absolute target address from a GNU readelf
// "DW_CFA_advance_loc: N to 00001004" line.
func parseAdvanceLoc(line string) (uint32, bool) {
	p := strings.Index(line, "to ")
	if p < 0 {
		return 0, false
	}
	rest := line[p+3:]
	end := 0
	for end < len(rest) && isHexDigit(rest[end]) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(rest[:end], 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
